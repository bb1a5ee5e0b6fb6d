package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/example/event-attendance/internal/persistence"
)

// mapError translates driver errors into the persistence sentinels callers
// branch on.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return persistence.ErrDuplicate
	}
	return err
}
