// Package sqlxrepos implements the domain repositories over PostgreSQL.
//
// Every query is scoped by owner_id, mirroring the row-level security the
// managed database enforces when reached through its own API.
package sqlxrepos

import "strconv"

func itoa(n int) string {
	return strconv.Itoa(n)
}
