package shared

import "errors"

// GenericErrorMessage is shown when an error carries no operator-safe text.
const GenericErrorMessage = "Something went wrong. Please try again."

type userSafeError struct {
	msg string
	err error
}

func (e *userSafeError) Error() string { return e.msg }

func (e *userSafeError) Unwrap() error { return e.err }

// UserSafe wraps err with a message that may be shown to an operator
// verbatim. Service errors are never surfaced raw; only messages passed
// through here reach notifications.
func UserSafe(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &userSafeError{msg: msg, err: err}
}

// UserSafeError builds a new operator-facing error from scratch.
func UserSafeError(msg string) error {
	return &userSafeError{msg: msg}
}

// UserSafeMessage extracts the operator-facing text from err, falling
// back to GenericErrorMessage for anything not explicitly marked safe.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var safe *userSafeError
	if errors.As(err, &safe) {
		return safe.msg
	}
	return GenericErrorMessage
}

// IsUserSafe reports whether err carries operator-facing text.
func IsUserSafe(err error) bool {
	var safe *userSafeError
	return errors.As(err, &safe)
}
