package appointment

import (
	"errors"
)

// GenericErrorMessage is shown when neither the backend nor local validation
// produced a readable message.
const GenericErrorMessage = "Something went wrong. Please try again."

// Local validation failures. These are raised before any request is sent.
var (
	ErrInvalidDateTime         = errors.New("please select a valid date and time")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidAmount           = errors.New("payment amount must be a non-negative number")
	ErrMissingPractitioner     = errors.New("please select a practitioner")
	ErrMissingService          = errors.New("please select a service")
	ErrMissingAppointment      = errors.New("appointment id is required")
)

var localErrors = []error{
	ErrInvalidDateTime,
	ErrInvalidStatusTransition,
	ErrInvalidAmount,
	ErrMissingPractitioner,
	ErrMissingService,
	ErrMissingAppointment,
}

// userMessager is implemented by backend errors that carry the server's
// human readable message.
type userMessager interface {
	UserMessage() string
}

// IsLocal reports whether err was produced by client-side validation.
func IsLocal(err error) bool {
	for _, target := range localErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Message turns err into the text handed to OnError: the backend message when
// there is one, the validation text for local failures, a generic fallback
// otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	if IsLocal(err) {
		return err.Error()
	}
	return GenericErrorMessage
}
