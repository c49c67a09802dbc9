package utils

type ErrorType int

const (
	ErrInternal ErrorType = iota
	ErrBadInput
	ErrNotAllowed
	ErrNotFound
	ErrConflict
)

// Failure is a user-facing error. Handlers return it to have the dispatcher
// reply with Message instead of a generic internal error.
type Failure struct {
	Type    ErrorType
	Message string
	Data    map[string]any
}

func (f Failure) Error() string {
	return f.Message
}

func BadInput(msg string) Failure {
	return Failure{Type: ErrBadInput, Message: msg}
}

func NotFound(msg string) Failure {
	return Failure{Type: ErrNotFound, Message: msg}
}

func Conflict(msg string) Failure {
	return Failure{Type: ErrConflict, Message: msg}
}

// NotAllowed reveals nothing about what exists.
func NotAllowed() Failure {
	return Failure{Type: ErrNotAllowed, Message: "No tienes permiso."}
}
