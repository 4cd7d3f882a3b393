package shared

// DomainError represents a domain-level error with a stable machine code.
// The code is surfaced to API clients as the GraphQL extensions.code value.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Extensions exposes the error code for GraphQL error formatting.
func (e *DomainError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists   = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthenticated = NewDomainError("UNAUTHENTICATED", "Authentication required")
	ErrForbidden       = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInternal        = NewDomainError("INTERNAL_ERROR", "Internal error")
)
