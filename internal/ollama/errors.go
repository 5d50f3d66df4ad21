package ollama

import (
	"context"
	"errors"
	"net"
)

// ErrorKind classifies failures of the inference server.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindUnavailable means the server could not be reached.
	KindUnavailable
	// KindTimeout means the call exceeded its deadline.
	KindTimeout
	// KindProtocol means the server answered with something unusable.
	KindProtocol
	// KindNotFound means the model does not exist on the server or registry.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "service_unavailable"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol_error"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels below, so errors.Is(err, ErrTimeout) works
// for any timeout regardless of operation or message.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinel errors for easy checking.
var (
	ErrUnavailable = &ClientError{Kind: KindUnavailable, Message: "ollama is not available"}
	ErrTimeout     = &ClientError{Kind: KindTimeout, Message: "request timed out"}
	ErrProtocol    = &ClientError{Kind: KindProtocol, Message: "unexpected response"}
	ErrNotFound    = &ClientError{Kind: KindNotFound, Message: "model not found"}
)

func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
func IsTimeout(err error) bool     { return errors.Is(err, ErrTimeout) }
func IsProtocol(err error) bool    { return errors.Is(err, ErrProtocol) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }

// transportError classifies an error returned by http.Client.Do.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Kind: KindTimeout, Op: op, Message: "request timed out", Cause: err}
	}

	return &ClientError{Kind: KindUnavailable, Op: op, Message: "ollama is not available", Cause: err}
}

func protocolError(op, message string, cause error) error {
	return &ClientError{Kind: KindProtocol, Op: op, Message: message, Cause: cause}
}
