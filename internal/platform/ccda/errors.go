package ccda

// ParsingError reports a well-formedness failure or an unexpected low-level
// fault while building the element tree. It wraps the underlying cause.
type ParsingError struct {
	Op  string
	Err error
}

func (e *ParsingError) Error() string {
	if e.Err == nil {
		return "ccda: " + e.Op
	}
	return "ccda: " + e.Op + ": " + e.Err.Error()
}

func (e *ParsingError) Unwrap() error { return e.Err }

// ValidationError reports structurally parseable input that violates a domain
// invariant. The message carries structural metadata only (tag names, section
// kinds, counts), never document content.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "ccda: " + e.Msg }
