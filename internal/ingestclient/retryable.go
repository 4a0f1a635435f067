package ingestclient

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

var retryableStatuses = []int{
	http.StatusTooManyRequests,     // 429
	http.StatusInternalServerError, // 500
	http.StatusBadGateway,          // 502
	http.StatusServiceUnavailable,  // 503
	http.StatusGatewayTimeout,      // 504
}

// IsRetryableStatus returns true if statusCode is one worth retrying.
func IsRetryableStatus(statusCode int) bool {
	return statusCode >= 400 && slices.Contains(retryableStatuses, statusCode)
}

// IsRetryableError inspects connection-level errors to decide whether a
// retry is worthwhile, mirroring the teacher's api.IsRetryableError.
func IsRetryableError(err error) bool {
	if neterr, ok := err.(net.Error); ok && neterr.Timeout() {
		return true
	}

	if urlerr, ok := err.(*url.Error); ok {
		if strings.Contains(urlerr.Error(), "use of closed network connection") {
			return true
		}
		if neturlerr, ok := urlerr.Err.(net.Error); ok && neturlerr.Timeout() {
			return true
		}
	}

	s := err.Error()
	return strings.Contains(s, "request canceled while waiting for connection") ||
		strings.HasSuffix(s, "connection refused") ||
		strings.HasSuffix(s, "connection reset by peer") ||
		strings.Contains(s, "no such host")
}
