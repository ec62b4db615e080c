package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("websocket client: configuration error")
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("websocket client: transport error")
	// ErrUpgradeDeclined matches every *UpgradeDeclinedError.
	ErrUpgradeDeclined = errors.New("websocket client: upgrade declined")
)

// ConfigurationError is returned when the pipeline cannot be configured for
// an upgrade. No bytes have been written to the connection when it is returned.
type ConfigurationError struct {
	Reason string
}

// TransportError is returned when the handshake could not reach a definitive
// upgraded / not upgraded answer.
type TransportError struct {
	Op  string
	Err error
}

// UpgradeDeclinedError is returned by the Bridge when the server answered the
// upgrade request with a well formed response that does not switch protocols.
type UpgradeDeclinedError struct {
	StatusCode int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("websocket client: cannot configure upgrade: %s", e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("websocket client: %s failed", e.Op)
	}
	return fmt.Sprintf("websocket client: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *UpgradeDeclinedError) Error() string {
	return fmt.Sprintf("websocket client: upgrade declined by server (http status code = %d)", e.StatusCode)
}

func (e *UpgradeDeclinedError) Is(target error) bool {
	return target == ErrUpgradeDeclined
}
