package zwave

import (
	"errors"
	"fmt"
)

// Domain errors for the zwave package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, zwave.ErrLookupFailure) {
//	    // the reaction for this event was aborted
//	}
var (
	// ErrNodeExists is returned by Registry.Add when the node is already known.
	ErrNodeExists = errors.New("zwave: node already exists")

	// ErrNodeNotFound is wrapped by ErrLookupFailure when the node is unknown.
	ErrNodeNotFound = errors.New("zwave: node not found")

	// ErrValueNotFound is wrapped by ErrLookupFailure when the node has no
	// value with the requested command class and index.
	ErrValueNotFound = errors.New("zwave: value not found")

	// ErrLookupFailure is returned when a (node, command class, index) lookup fails.
	ErrLookupFailure = errors.New("zwave: value lookup failed")

	// ErrReadBackFailed is returned when reading a value from the manager fails.
	ErrReadBackFailed = errors.New("zwave: value read failed")

	// ErrInitializationFailed is returned when the manager reports a driver
	// failure before the network became ready.
	ErrInitializationFailed = errors.New("zwave: network initialisation failed")

	// ErrStartupTimeout is returned when no readiness report arrives in time.
	// It wraps ErrInitializationFailed.
	ErrStartupTimeout = fmt.Errorf("%w: startup timed out", ErrInitializationFailed)

	// ErrDispatcherStopped is returned when work is submitted after Stop.
	ErrDispatcherStopped = errors.New("zwave: dispatcher stopped")

	// ErrInvalidTransition is returned for an illegal lifecycle transition.
	ErrInvalidTransition = errors.New("zwave: invalid lifecycle transition")
)
