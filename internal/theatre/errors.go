package theatre

import (
	"fmt"
	"strings"
)

// FieldError is a single field-level validation failure. Ticket is the
// zero-based index of the offending ticket in the request, or -1 for
// request-level failures.
type FieldError struct {
	Ticket  int    `json:"ticket"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Ticket < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("tickets[%d].%s: %s", e.Ticket, e.Field, e.Message)
}

// ValidationError aggregates field errors for a whole booking request.
// Any entry aborts the entire request.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(ticket int, field, message string) {
	e.Fields = append(e.Fields, FieldError{Ticket: ticket, Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}
