package tokenfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/franco-bianco/pumpfeed/spltoken/metadata"
)

var (
	// ErrTransport marks a failed or timed out RPC call.
	ErrTransport = errors.New("rpc transport")
	// ErrNotFound marks an account that does not exist. It is an outcome, not a failure.
	ErrNotFound = errors.New("not found")
	// ErrDecode marks on-chain bytes that do not match the expected layout.
	ErrDecode = metadata.ErrDecode
)

func transportError(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: deadline exceeded: %v", ErrTransport, method, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
}

// classifyRPCError buckets an RPC error for metrics.
func classifyRPCError(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "network_error"
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "timeout"
		}
		return "network_error"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "i/o timeout"):
		return "timeout"
	case hasStatus(lower, 429) || strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit"):
		return "rate_limited"
	case hasStatus(lower, 500, 502, 503, 504):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "unexpected eof"):
		return "network_error"
	default:
		return "client_error"
	}
}

// hasStatus reports whether msg carries one of codes as an HTTP status,
// e.g. "status 503", "status code: 503", "http 503" or "(503)".
func hasStatus(msg string, codes ...int) bool {
	for _, code := range codes {
		c := strconv.Itoa(code)
		for _, pattern := range []string{"status " + c, "status code " + c, "status code: " + c, "http " + c, "(" + c + ")", c + " " + http.StatusText(code)} {
			if strings.Contains(msg, strings.ToLower(pattern)) {
				return true
			}
		}
	}
	return false
}
