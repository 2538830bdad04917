package ledger

import "database/sql"

// DB exposes the connection to external tests.
func (s *Store) DB() *sql.DB { return s.db }
