// Package resilience classifies batch-level failures so transports can map
// them to a status without inspecting error strings.
package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind is the class of a batch-level failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to the status the API returns for it.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindError tags an error with a Kind.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	return e.Err.Error()
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// BadRequest marks err as caused by the caller's input.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: KindBadRequest, Err: err}
}

// Unavailable marks err as an unreachable upstream (SQL server, classifier).
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: KindUnavailable, Err: err}
}

// KindOf returns the Kind of the first KindError in err's chain. Untagged
// network failures count as unavailable; everything else is internal.
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	if IsTransient(err) {
		return KindUnavailable
	}
	return KindInternal
}

// IsTransient returns true if the error (or any error in its chain) matches
// common transient error patterns (network timeouts, connection resets, DNS
// failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Check for network-level transient errors.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection reset / refused / DNS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from drivers and HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
