package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"library-backend/internal/library/requests"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
)

// Service is the read side. It never writes.
type Service struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewService(conn *sql.DB, driver string) *Service {
	return &Service{db: sqlx.NewDb(conn, driver), dialect: db.Dialect(driver)}
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting in
// either MySQL or SQLite string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// pattern folds full-width input (IME) to ASCII, lower-cases it and escapes
// wildcards. Returns "" when there is nothing to search for.
func pattern(q string) string {
	q = strings.TrimSpace(cases.Lower(language.Und).String(width.Fold.String(q)))
	if q == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(q) + "%"
}

// anyLike matches pat against any of cols. Both dialects compare
// case-insensitively (MySQL _ci collation, SQLite ASCII LIKE).
func anyLike(pat string, cols ...string) exp.ExpressionList {
	ors := make([]exp.Expression, 0, len(cols))
	for _, c := range cols {
		ors = append(ors, goqu.L("? LIKE ? ESCAPE '!'", goqu.I(c), pat))
	}
	return goqu.Or(ors...)
}

func normalizePage(p int) int {
	if p < 1 {
		return 1
	}
	return p
}

// page runs the count and the LIMIT/OFFSET query for ds.
func page[T any](ctx context.Context, s *Service, ds *goqu.SelectDataset, p int, order ...exp.OrderedExpression) (Page[T], error) {
	p = normalizePage(p)
	out := Page[T]{Items: []T{}, Page: p, PageSize: PageSize}

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return out, fmt.Errorf("build count: %w", err)
	}
	if err := s.db.GetContext(ctx, &out.Total, countSQL, countArgs...); err != nil {
		return out, fmt.Errorf("count: %w", err)
	}
	if out.Total == 0 {
		return out, nil
	}

	q, args, err := ds.Order(order...).
		Limit(uint(PageSize)).
		Offset(uint((p - 1) * PageSize)).
		ToSQL()
	if err != nil {
		return out, fmt.Errorf("build list: %w", err)
	}
	if err := s.db.SelectContext(ctx, &out.Items, q, args...); err != nil {
		return out, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

// ---- books ----

var bookCols = []any{
	"book_id", "title", "author", "publisher", "genre", "isbn_no", "pages",
	"total_copies", "available_copies", "price", "created_at",
}

func (s *Service) ListBooks(ctx context.Context, f BookFilter) (Page[BookRow], error) {
	ds := s.dialect.From("books").Prepared(true)
	if pat := pattern(f.Q); pat != "" {
		ds = ds.Where(anyLike(pat, "title", "author", "isbn_no", "publisher"))
	}
	if g := strings.TrimSpace(f.Genre); g != "" {
		ds = ds.Where(goqu.C("genre").Eq(g))
	}
	if f.AvailableOnly {
		ds = ds.Where(goqu.C("available_copies").Gt(0))
	}
	items, err := page[BookRow](ctx, s, ds.Select(bookCols...), f.Page,
		goqu.C("title").Asc(), goqu.C("book_id").Asc())
	return items, err
}

// Genres returns the distinct non-empty genres, sorted.
func (s *Service) Genres(ctx context.Context) ([]string, error) {
	q, args, err := s.dialect.From("books").Prepared(true).
		Select(goqu.C("genre")).Distinct().
		Where(goqu.C("genre").Neq("")).
		Order(goqu.C("genre").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}
	out := []string{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	return out, nil
}

// ---- requests ----

// statusRank orders the admin queue: requested, success, declined, returned.
var statusRank = func() exp.LiteralExpression {
	var b strings.Builder
	b.WriteString("CASE r.status")
	for _, st := range requests.AllStatuses {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", st, st.Rank())
	}
	fmt.Fprintf(&b, " ELSE %d END", len(requests.AllStatuses))
	return goqu.L(b.String())
}()

// ListRequests shows everything to admins and only their own requests to
// members.
func (s *Service) ListRequests(ctx context.Context, actor auth.Actor, f RequestFilter) (Page[RequestRow], error) {
	if !actor.IsAdmin() {
		f.MemberID = actor.MemberID
	}

	ds := s.dialect.From(goqu.T("requests").As("r")).Prepared(true).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.member_id").Eq(goqu.I("r.member_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("r.book_id"))))

	if pat := pattern(f.Q); pat != "" {
		ds = ds.Where(anyLike(pat, "m.first_name", "m.last_name", "b.title", "r.status"))
	}
	if len(f.Statuses) > 0 {
		vals := make([]any, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			vals = append(vals, string(st))
		}
		ds = ds.Where(goqu.I("r.status").In(vals...))
	}
	if f.From != nil {
		ds = ds.Where(goqu.I("r.request_date").Gte(f.From.UTC()))
	}
	if f.To != nil {
		ds = ds.Where(goqu.I("r.request_date").Lte(f.To.UTC()))
	}
	if f.MemberID != 0 {
		ds = ds.Where(goqu.I("r.member_id").Eq(f.MemberID))
	}
	if f.BookID != 0 {
		ds = ds.Where(goqu.I("r.book_id").Eq(f.BookID))
	}

	ds = ds.Select(
		goqu.I("r.request_id"), goqu.I("r.request_ulid"), goqu.I("r.member_id"),
		goqu.I("m.first_name").As("member_first_name"),
		goqu.I("m.last_name").As("member_last_name"),
		goqu.I("m.email").As("member_email"),
		goqu.I("r.book_id"),
		goqu.I("b.title").As("book_title"),
		goqu.I("b.isbn_no").As("book_isbn"),
		goqu.I("r.request_date"), goqu.I("r.issued_date"), goqu.I("r.return_date"), goqu.I("r.status"),
	)
	return page[RequestRow](ctx, s, ds, f.Page, statusRank.Asc(), goqu.I("r.request_id").Asc())
}

// ---- members ----

func (s *Service) ListMembers(ctx context.Context, role auth.Role, f MemberFilter) (Page[MemberRow], error) {
	if err := auth.RequireAdmin(role); err != nil {
		return Page[MemberRow]{}, err
	}
	ds := s.dialect.From("members").Prepared(true)
	if pat := pattern(f.Q); pat != "" {
		ds = ds.Where(anyLike(pat, "first_name", "last_name", "email"))
	}
	ds = ds.Select("member_id", "first_name", "last_name", "email", "phone_number",
		"role", "membership_status", "created_at")
	return page[MemberRow](ctx, s, ds, f.Page,
		goqu.C("last_name").Asc(), goqu.C("first_name").Asc(), goqu.C("member_id").Asc())
}

// ParseStatuses reads a comma separated status list.
func ParseStatuses(raw string) ([]requests.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []requests.Status
	for _, part := range strings.Split(raw, ",") {
		st, ok := requests.ParseStatus(strings.TrimSpace(part))
		if !ok {
			return nil, apperr.ErrInvalid(fmt.Sprintf("unknown status %q", part))
		}
		out = append(out, st)
	}
	return out, nil
}
