package requests

import (
	"database/sql"
	"time"
)

// Status は貸出リクエストのライフサイクル
//
//	requested -> success -> returned
//	requested -> declined
//
// declined / returned は終端。
type Status string

const (
	StatusRequested Status = "requested"
	StatusSuccess   Status = "success"
	StatusDeclined  Status = "declined"
	StatusReturned  Status = "returned"
)

// AllStatuses is ordered by admin-queue priority.
var AllStatuses = []Status{StatusRequested, StatusSuccess, StatusDeclined, StatusReturned}

func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool { return s == StatusDeclined || s == StatusReturned }

// Active statuses block book removal.
func (s Status) Active() bool { return s == StatusRequested || s == StatusSuccess }

// Rank is the admin queue order: requested < success < declined < returned.
func (s Status) Rank() int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return len(AllStatuses)
}

// Request は requests テーブルの1行
type Request struct {
	RequestID   int64        `db:"request_id"`
	RequestULID string       `db:"request_ulid"`
	MemberID    int64        `db:"member_id"`
	BookID      int64        `db:"book_id"`
	RequestDate time.Time    `db:"request_date"`
	IssuedDate  sql.NullTime `db:"issued_date"`
	ReturnDate  sql.NullTime `db:"return_date"`
	Status      Status       `db:"status"`
}
