package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error with the defaults of category.
func NewError(category Category, message string) *ErrorBuilder {
	info := category.info()
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: info.severity,
		retry:    info.retry,
		message:  message,
	}}
}

// WrapError starts an error of category caused by err.
func WrapError(err error, category Category, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithSeverity(severity Severity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.err.retry = strategy
	return b
}

// WithContext appends a structured field.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.fields = append(b.err.fields, Field{Key: key, Value: value})
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder { return b.WithSeverity(SeverityWarning) }
func (b *ErrorBuilder) Retryable() *ErrorBuilder { return b.WithRetry(RetryBackoff) }
func (b *ErrorBuilder) RateLimit() *ErrorBuilder { return b.WithRetry(RetryRateLimit) }

// Build returns the error. The builder may be reused; later changes do not
// affect errors already built.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.fields = append([]Field(nil), b.err.fields...)
	return &out
}

func ConfigError(message string) *ErrorBuilder { return NewError(CategoryConfig, message) }
func ValidationError(message string) *ErrorBuilder { return NewError(CategoryValidation, message) }

// RouteError reports a malformed route pattern.
func RouteError(message string) *ErrorBuilder { return NewError(CategoryRoute, message) }

// IdentityError reports identity map misuse. It always aborts the build.
func IdentityError(message string) *ErrorBuilder { return NewError(CategoryIdentity, message) }

// ReferenceError reports references broken in the finished tree.
func ReferenceError(message string) *ErrorBuilder { return NewError(CategoryReference, message) }

func RenderError(message string) *ErrorBuilder { return NewError(CategoryRender, message) }

// NetworkError reports a failed external probe. Retryable by default.
func NetworkError(message string) *ErrorBuilder { return NewError(CategoryNetwork, message) }

func FileSystemError(message string) *ErrorBuilder { return NewError(CategoryFileSystem, message) }
func InternalError(message string) *ErrorBuilder { return NewError(CategoryInternal, message) }
