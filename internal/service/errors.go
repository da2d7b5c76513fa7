package service

// ValidationError marks input the operator has to fix. The message is
// shown to the user exactly as written here, in Portuguese.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError marks a write that collides with data already registered,
// such as a CPF held by another active record.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
