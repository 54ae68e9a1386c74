package storage

import (
	"errors"
	"fmt"

	"github.com/varaamo/reservable/services/reservation-service/internal/availability"
)

// ErrRejected is matched by every *RejectedError.
var ErrRejected = errors.New("reservation rejected")

// RejectedError is returned when the engine refuses a reservation while the
// unit is locked.
type RejectedError struct {
	Reason availability.Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRejected, e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// Rejection extracts the engine reason from err, if any.
func Rejection(err error) (availability.Reason, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return availability.ReasonNone, false
}
