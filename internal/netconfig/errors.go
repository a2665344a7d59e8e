package netconfig

import "errors"

var (
	// ErrNetworkMismatch is returned by Save when a node snapshot belongs to
	// a different network than the one being saved.
	ErrNetworkMismatch = errors.New("netconfig: node belongs to a different network")

	// ErrDuplicateNode is returned by Save when a node id appears twice.
	ErrDuplicateNode = errors.New("netconfig: duplicate node in snapshot")
)
