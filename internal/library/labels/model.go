package labels

// Encoding of the exported CSV.
type Encoding string

const (
	EncodingUTF8     Encoding = "utf8"
	EncodingShiftJIS Encoding = "sjis" // ラベルプリンタ付属ソフト (CP932) 向け
)

// MaxBooks は1回のエクスポートで扱う上限
const MaxBooks = 100

// MaxRows は1回のエクスポートで出すラベル枚数の上限
const MaxRows = 1000

// Row: 背ラベル1枚分。1冊につき total_copies 枚出力する。
type Row struct {
	BookID int64
	CopyNo int
	Copies int
	Title  string
	Author string
	Genre  string
	ISBN   string
}

func ParseEncoding(s string) (Encoding, bool) {
	switch s {
	case "", "utf8", "utf-8":
		return EncodingUTF8, true
	case "sjis", "shift_jis", "cp932":
		return EncodingShiftJIS, true
	}
	return "", false
}

func (e Encoding) ContentType() string {
	if e == EncodingShiftJIS {
		return "text/csv; charset=Shift_JIS"
	}
	return "text/csv; charset=utf-8"
}
