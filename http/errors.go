package http

import "fmt"

// BindingEnvVar names the setting that selects the bucket binding.
const BindingEnvVar = "BUCKETGATE_BUCKET_BINDING"

// Error is a request failure with the status and message sent to the client.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func newError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}
