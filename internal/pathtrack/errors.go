package pathtrack

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionOrderingError reports a session whose RecordBefore and RecordAfter
// calls did not pair up.
type SessionOrderingError struct {
	Session string
	ID      uuid.UUID
	Before  int
	After   int
}

func (e *SessionOrderingError) Error() string {
	return fmt.Sprintf("tracking session %q (%s): %d original paths but %d output paths recorded",
		e.Session, e.ID, e.Before, e.After)
}
