package trend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a monitoring failure.
type ErrorType string

const (
	ErrorAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorRateLimit      ErrorType = "RATE_LIMIT_ERROR"
	ErrorConnection     ErrorType = "CONNECTION_ERROR"
	ErrorAPI            ErrorType = "API_ERROR"
	ErrorParsing        ErrorType = "PARSING_ERROR"
	ErrorTimeout        ErrorType = "TIMEOUT_ERROR"
	ErrorUnknown        ErrorType = "UNKNOWN_ERROR"
)

// Sentinel errors fetchers can wrap to get deterministic classification
// instead of relying on message text.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrConnection     = errors.New("connection failed")
	ErrAPI            = errors.New("api request failed")
	ErrParsing        = errors.New("response parsing failed")
	ErrTimeout        = errors.New("request timed out")
)

// MonitoringError tags a failure with its type and originating platform.
// It is a signal to consumers and logs, never persisted.
type MonitoringError struct {
	Type     ErrorType
	Platform Platform
	Message  string
	Err      error
}

func (e *MonitoringError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Platform, e.Type, e.Message)
}

func (e *MonitoringError) Unwrap() error {
	return e.Err
}

// NewMonitoringError wraps err with its classified type. If err is already
// a MonitoringError it is returned unchanged.
func NewMonitoringError(platform Platform, err error) *MonitoringError {
	var merr *MonitoringError
	if errors.As(err, &merr) {
		return merr
	}

	return &MonitoringError{
		Type:     Classify(err),
		Platform: platform,
		Message:  err.Error(),
		Err:      err,
	}
}

// Classify determines the error type. Structured sentinel errors are
// checked first; otherwise the message text is inspected for known
// substrings. The text heuristic is fragile but matches what upstream
// clients actually return.
func Classify(err error) ErrorType {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ErrorRateLimit
	case errors.Is(err, ErrAuthentication):
		return ErrorAuthentication
	case errors.Is(err, ErrTimeout):
		return ErrorTimeout
	case errors.Is(err, ErrConnection):
		return ErrorConnection
	case errors.Is(err, ErrParsing):
		return ErrorParsing
	case errors.Is(err, ErrAPI):
		return ErrorAPI
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"):
		return ErrorRateLimit
	case strings.Contains(msg, "auth"):
		return ErrorAuthentication
	case strings.Contains(msg, "timeout"):
		return ErrorTimeout
	case strings.Contains(msg, "connect"), strings.Contains(msg, "network"):
		return ErrorConnection
	case strings.Contains(msg, "parse"), strings.Contains(msg, "json"):
		return ErrorParsing
	default:
		return ErrorUnknown
	}
}
