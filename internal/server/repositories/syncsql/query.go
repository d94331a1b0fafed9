package syncsql

import (
	"strconv"
	"strings"
	"time"
)

// Query accumulates WHERE conditions and their positional arguments.
type Query struct {
	conds []string
	args  []any
}

// Arg binds v and returns its placeholder.
func (q *Query) Arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// Where adds a condition; conditions are ANDed.
func (q *Query) Where(cond string) {
	q.conds = append(q.conds, cond)
}

// Window adds the predicate for w on alias, binding since when needed.
func (q *Query) Window(alias string, w Window, since time.Time) {
	pos := 0
	if w.NeedsSince() {
		q.args = append(q.args, since)
		pos = len(q.args)
	}
	q.Where(Predicate(alias, w, pos))
}

// Companies restricts alias.company_id to ids. No-op for an empty list.
func (q *Query) Companies(alias string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	q.Where(alias + ".company_id = ANY(" + q.Arg(CompanyArray(ids)) + "::bigint[])")
}

// SQL renders "base WHERE ... suffix".
func (q *Query) SQL(base, suffix string) string {
	var b strings.Builder
	b.WriteString(base)
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	return b.String()
}

// Args returns the bound arguments in placeholder order.
func (q *Query) Args() []any {
	return q.args
}
