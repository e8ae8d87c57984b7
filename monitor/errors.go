package monitor

import "errors"

var (
	// ErrNilClient is returned by Wrap when no client is given.
	ErrNilClient = errors.New("monitor: client is nil")

	// ErrServiceNameRequired is returned by Wrap when the configuration
	// has no service name.
	ErrServiceNameRequired = errors.New("monitor: service name is required")

	// ErrOperationUnsupported is returned when the wrapped client does not
	// implement the requested operation.
	ErrOperationUnsupported = errors.New("monitor: operation not supported by wrapped client")
)

// throttlingCodes are the provider error codes that indicate rate limiting.
var throttlingCodes = map[string]bool{
	"ThrottlingException":           true,
	"TooManyRequestsException":      true,
	"ServiceQuotaExceededException": true,
}

// IsRateLimited reports whether err carries a throttling error code.
func IsRateLimited(err error) bool {
	code, _, _ := probeError(err)
	return throttlingCodes[code]
}

// probeError extracts provider error metadata without depending on a
// concrete SDK error type. The AWS SDK's smithy errors expose ErrorCode
// and ErrorMessage; anything else falls back to err.Error().
func probeError(err error) (code, message, requestID string) {
	if err == nil {
		return "", "", ""
	}
	message = err.Error()

	var coder interface{ ErrorCode() string }
	if errors.As(err, &coder) {
		code = coder.ErrorCode()
	}
	var messager interface{ ErrorMessage() string }
	if errors.As(err, &messager) {
		if m := messager.ErrorMessage(); m != "" {
			message = m
		}
	}
	var requester interface{ ServiceRequestID() string }
	if errors.As(err, &requester) {
		requestID = requester.ServiceRequestID()
	}
	return code, message, requestID
}
