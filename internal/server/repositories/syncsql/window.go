// Package syncsql builds the WHERE fragments shared by every change-feed
// query so that all syncable tables partition rows the same way.
package syncsql

import (
	"fmt"
	"strconv"
	"strings"
)

// Window selects which slice of a table a change-feed query returns.
type Window int

const (
	// Live is every row that is not tombstoned (first sync).
	Live Window = iota
	// Created is live rows created after since.
	Created
	// Updated is live rows touched after since that already existed at since.
	Updated
	// Deleted is rows tombstoned after since.
	Deleted
)

func (w Window) String() string {
	switch w {
	case Live:
		return "live"
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "window(" + strconv.Itoa(int(w)) + ")"
	}
}

// NeedsSince reports whether the window takes a since argument.
func (w Window) NeedsSince() bool {
	return w != Live
}

// Predicate returns the condition for window w on table alias a. When the
// window needs a since bound it is referenced as $pos.
func Predicate(a string, w Window, pos int) string {
	p := "$" + strconv.Itoa(pos)
	switch w {
	case Created:
		return fmt.Sprintf("%[1]s.deleted_at IS NULL AND %[1]s.created_at > %[2]s", a, p)
	case Updated:
		return fmt.Sprintf("%[1]s.deleted_at IS NULL AND %[1]s.updated_at > %[2]s AND %[1]s.created_at <= %[2]s", a, p)
	case Deleted:
		// rows that never got a stable id were never seen by any client
		return fmt.Sprintf("%[1]s.deleted_at > %[2]s AND %[1]s.stable_id IS NOT NULL", a, p)
	default:
		return a + ".deleted_at IS NULL"
	}
}

// CompanyArray renders ids as a Postgres bigint[] literal, e.g. "{1,2}", so
// it can be bound as a plain text parameter and cast with ::bigint[].
func CompanyArray(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
