package core

// Error codes reported to live clients.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeUnknownClient  = "unknown_client"
	ErrCodeInternal       = "internal_error"
)

var (
	// ErrUnknownClient is returned when a connection id is not registered.
	ErrUnknownClient = NewError(ErrCodeUnknownClient, "unknown client")
	// ErrEmptyRoom is returned when a room key is blank.
	ErrEmptyRoom = NewError(ErrCodeBadRequest, "room is required")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
