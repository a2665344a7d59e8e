package zwavemqtt

import "errors"

// Domain errors for the Z-Wave MQTT gateway package.
var (
	// ErrNotStarted is returned when an API call is made before Start.
	ErrNotStarted = errors.New("zwavemqtt: gateway not started")

	// ErrStopped is returned for calls made, or still pending, after Stop.
	ErrStopped = errors.New("zwavemqtt: gateway stopped")

	// ErrTimeout is returned when the daemon does not answer within the
	// request timeout.
	ErrTimeout = errors.New("zwavemqtt: request timed out")

	// ErrAPIFailed is returned when the daemon answers with success=false.
	ErrAPIFailed = errors.New("zwavemqtt: api call failed")

	// ErrInvalidMessage is returned when a message from the daemon is malformed.
	ErrInvalidMessage = errors.New("zwavemqtt: invalid message")

	// ErrInvalidConfig is returned when the gateway configuration is invalid.
	ErrInvalidConfig = errors.New("zwavemqtt: invalid configuration")
)
