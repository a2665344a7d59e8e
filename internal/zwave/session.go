package zwave

// Session holds process-wide facts about the network being controlled.
//
// The network id is learned from driver_ready. InitFailed and ReadySignalled
// are terminal: once either is set the startup gate has been released.
// Like Registry, Session is only touched from the dispatcher goroutine.
type Session struct {
	NetworkID      uint32
	DriverReady    bool
	InitFailed     bool
	ReadySignalled bool
}

// SetNetwork records the network id reported by driver_ready.
//
// A second driver_ready is ignored so the id stays stable for the lifetime
// of the process. It reports whether the id was recorded.
func (s *Session) SetNetwork(networkID uint32) bool {
	if s.DriverReady {
		return false
	}
	s.NetworkID = networkID
	s.DriverReady = true
	return true
}

// Terminal reports whether startup has already concluded.
func (s *Session) Terminal() bool {
	return s.InitFailed || s.ReadySignalled
}
