package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Field is one piece of structured context attached to an error. Fields keep
// the order they were added in so log lines and verbose output are stable.
type Field struct {
	Key   string
	Value any
}

// ClassifiedError is an error with a category, a severity and a retry hint.
type ClassifiedError struct {
	category Category
	severity Severity
	retry    RetryStrategy
	message  string
	cause    error
	fields   []Field
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.category))
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() Category { return e.category }
func (e *ClassifiedError) Severity() Severity { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string { return e.message }

// Fields returns the attached context in insertion order.
func (e *ClassifiedError) Fields() []Field { return e.fields }

// Field returns the value of the last field named key.
func (e *ClassifiedError) Field(key string) (any, bool) {
	for i := len(e.fields) - 1; i >= 0; i-- {
		if e.fields[i].Key == key {
			return e.fields[i].Value, true
		}
	}
	return nil, false
}

// Is matches another ClassifiedError with the same category and message, so
// a template error built once can be used as a sentinel.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

func (e *ClassifiedError) IsCategory(category Category) bool { return e.category == category }

// CanRetry reports whether the failed operation may be attempted again
// without the author changing anything.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry == RetryBackoff || e.retry == RetryRateLimit
}

func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory reports whether the first ClassifiedError in err's chain has category.
func HasCategory(err error, category Category) bool {
	classified, ok := AsClassified(err)
	return ok && classified.IsCategory(category)
}

// IsFatal reports whether err carries a fatal classification.
func IsFatal(err error) bool {
	classified, ok := AsClassified(err)
	return ok && classified.IsFatal()
}

// GetCategory returns err's category, CategoryInternal when unclassified.
func GetCategory(err error) Category {
	if classified, ok := AsClassified(err); ok {
		return classified.category
	}
	return CategoryInternal
}

// Retryable reports whether err is classified as safe to retry.
func Retryable(err error) bool {
	classified, ok := AsClassified(err)
	return ok && classified.CanRetry()
}

func formatFields(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %v", f.Key, f.Value)
	}
	return b.String()
}
