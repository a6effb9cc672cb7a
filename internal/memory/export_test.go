package memory

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// FailExecContaining injects a failure into secondary-index writes
// whose SQL contains substr. An empty substr restores normal behavior.
func (s *Store) FailExecContaining(substr string) {
	if substr == "" {
		s.hooks.exec = nil
		return
	}
	s.hooks.exec = func(db execer, query string, args ...any) (sql.Result, error) {
		if strings.Contains(query, substr) {
			return nil, errors.New("injected failure")
		}
		return db.Exec(query, args...)
	}
}

// SetNowFunc overrides the clock used by Normalize. Returns a restore
// function.
func SetNowFunc(fn func() time.Time) func() {
	prev := nowFunc
	nowFunc = fn
	return func() { nowFunc = prev }
}
