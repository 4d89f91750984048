package errors

// Category groups errors by the part of the build that produced them. It
// decides the default severity of a new error and the CLI exit code.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	// CategoryRoute covers malformed route patterns. An item no rule matches
	// is not an error.
	CategoryRoute Category = "route"
	// CategoryIdentity covers identity map misuse: recording after freeze,
	// reading before freeze, two items claiming one current path.
	CategoryIdentity   Category = "identity"
	CategoryReference  Category = "reference"
	CategoryRender     Category = "render"
	CategoryNetwork    Category = "network"
	CategoryFileSystem Category = "filesystem"
	CategoryInternal   Category = "internal"
)

// Severity is the impact of an error on the running build.
type Severity string

const (
	SeverityFatal   Severity = "fatal"   // aborts the build at once
	SeverityError   Severity = "error"   // fails the build after reporting
	SeverityWarning Severity = "warning" // reported, build continues
)

// RetryStrategy says whether an operation failing with the error may be retried.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryRateLimit  RetryStrategy = "rate_limit"
	RetryUserAction RetryStrategy = "user"
)

type categoryInfo struct {
	severity Severity
	retry    RetryStrategy
	exitCode int
	// hidden categories are engine faults; the CLI prints a generic line
	// unless verbose output was requested.
	hidden bool
}

var categories = map[Category]categoryInfo{
	CategoryValidation: {severity: SeverityFatal, retry: RetryNever, exitCode: 2},
	CategoryReference:  {severity: SeverityError, retry: RetryUserAction, exitCode: 3},
	CategoryConfig:     {severity: SeverityFatal, retry: RetryNever, exitCode: 7},
	CategoryRoute:      {severity: SeverityFatal, retry: RetryNever, exitCode: 7},
	CategoryNetwork:    {severity: SeverityError, retry: RetryBackoff, exitCode: 8},
	CategoryIdentity:   {severity: SeverityFatal, retry: RetryNever, exitCode: 10, hidden: true},
	CategoryInternal:   {severity: SeverityFatal, retry: RetryNever, exitCode: 10, hidden: true},
	CategoryFileSystem: {severity: SeverityError, retry: RetryNever, exitCode: 11},
	CategoryRender:     {severity: SeverityFatal, retry: RetryNever, exitCode: 11},
}

func (c Category) info() categoryInfo {
	if info, ok := categories[c]; ok {
		return info
	}
	return categoryInfo{severity: SeverityError, retry: RetryNever, exitCode: 1}
}

// ExitCode is the process exit status for a failure of this category.
func (c Category) ExitCode() int { return c.info().exitCode }
