// Package errors defines custom error types for the v2x-go simulator.
// Errors are grouped by subsystem; setup-time contract violations (missing or
// malformed key material, capacity misconfiguration) are fatal at the run
// driver, protocol-level anomalies are tolerated silently by design.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for key material.
var (
	// ErrKeyNotFound indicates a key file is missing for the requested vehicle.
	ErrKeyNotFound = errors.New("keystore: key not found")

	// ErrInvalidKeyLength indicates key material has an unexpected length.
	ErrInvalidKeyLength = errors.New("keystore: invalid key length")

	// ErrMalformedKey indicates key material could not be parsed.
	ErrMalformedKey = errors.New("keystore: malformed key material")

	// ErrNoPrivateKey indicates no private key is loaded for the selected scheme.
	ErrNoPrivateKey = errors.New("keystore: no private key for scheme")
)

// Sentinel errors for the fragment codec and signing strategy.
var (
	// ErrChunkTooLarge indicates a fragment chunk would exceed capacity.
	ErrChunkTooLarge = errors.New("spdu: chunk exceeds fragment capacity")

	// ErrSignatureTooLarge indicates a signature exceeds the total capacity.
	ErrSignatureTooLarge = errors.New("spdu: signature exceeds total capacity")

	// ErrShortDatagram indicates a datagram is too short to hold a fragment.
	ErrShortDatagram = errors.New("spdu: datagram shorter than fragment record")

	// ErrInvalidFragment indicates a fragment violates its declared bounds.
	ErrInvalidFragment = errors.New("spdu: invalid fragment")
)

// Sentinel errors for the transport.
var (
	// ErrChannelClosed indicates the datagram channel has been closed.
	ErrChannelClosed = errors.New("transport: channel closed")
)

// Sentinel errors for configuration.
var (
	// ErrInvalidConfig indicates the scenario configuration is unusable.
	ErrInvalidConfig = errors.New("config: invalid scenario configuration")
)

// OpError wraps an error with the operation that failed.
type OpError struct {
	Op  string // Operation that failed, e.g. "keystore.LoadVehicleKey"
	Err error  // Underlying error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError creates a new OpError.
func NewOpError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
