package shared

// Outcome classifies a successful call. Failures are reported as errors.
type Outcome int

const (
	// OutcomeSuccess means Value carries the payload.
	OutcomeSuccess Outcome = iota
	// OutcomeWarning means the call worked but produced nothing to show,
	// or only part of a write went through. Value is the zero value.
	OutcomeWarning
)

// String returns the string representation.
func (o Outcome) String() string {
	if o == OutcomeWarning {
		return "Warning"
	}
	return "Success"
}

// SuccessMessage is the message attached to every successful result.
const SuccessMessage = "Success"

// Result is the non-error outcome of an application operation.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Message string
}

// Success wraps a payload.
func Success[T any](v T) *Result[T] {
	return &Result[T]{Outcome: OutcomeSuccess, Value: v, Message: SuccessMessage}
}

// Warning builds a soft-empty result carrying only a message.
func Warning[T any](message string) *Result[T] {
	return &Result[T]{Outcome: OutcomeWarning, Message: message}
}

// IsWarning reports whether the result is soft-empty.
func (r *Result[T]) IsWarning() bool {
	return r != nil && r.Outcome == OutcomeWarning
}
