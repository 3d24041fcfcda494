package gossip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

var networkErrorSignatures = []string{
	"connection refused",
	"connection reset",
	"no route to host",
	"network is unreachable",
	"host is unreachable",
	"i/o timeout",
	"no such host",
	"timeout",
	"eof",
}

// IsNetworkError reports whether err is an expected transport failure
// (timeouts, refused or reset connections, unreachable hosts, DNS errors).
// Such failures are normal for pNodes behind firewalls and are not worth
// an error-level log line.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.ETIMEDOUT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range networkErrorSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// LogFailure logs an RPC failure at debug level when it is an expected
// network error or an empty pod list, and at error level otherwise.
func LogFailure(logger *zap.Logger, msg string, err error) {
	if IsNetworkError(err) || errors.Is(err, ErrEmptyResult) {
		logger.Debug(fmt.Sprintf("%s: %v", msg, err))
		return
	}
	logger.Error(fmt.Sprintf("%s: %v", msg, err))
}
