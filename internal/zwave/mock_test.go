package zwave

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockManager is a mock implementation of Manager for testing.
type MockManager struct {
	mu sync.Mutex

	values   map[ValueID]bool
	watchers []Watcher

	calls        []string
	sets         []setCall
	associations []associationCall
	refreshes    []uint8
	writes       []uint32
	removed      []string

	// Errors to return from the corresponding methods.
	AddDriverErr    error
	RemoveDriverErr error
	SetErr          error
	GetErr          error
	WriteConfigErr  error

	// OnAddDriver, when set, runs in its own goroutine after AddDriver
	// succeeds. It receives the watchers registered at that moment.
	OnAddDriver func(watchers []Watcher)
}

type setCall struct {
	ID ValueID
	On bool
}

type associationCall struct {
	NetworkID uint32
	NodeID    uint8
	Group     uint8
	Target    uint8
}

// NewMockManager creates a new mock manager.
func NewMockManager() *MockManager {
	return &MockManager{values: make(map[ValueID]bool)}
}

func (m *MockManager) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *MockManager) AddDriver(_ context.Context, port string) error {
	m.mu.Lock()
	m.record("AddDriver:" + port)
	err := m.AddDriverErr
	hook := m.OnAddDriver
	watchers := append([]Watcher(nil), m.watchers...)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		go hook(watchers)
	}
	return nil
}

func (m *MockManager) RemoveDriver(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemoveDriver:" + name)
	m.removed = append(m.removed, name)
	return m.RemoveDriverErr
}

func (m *MockManager) AddWatcher(w Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AddWatcher")
	m.watchers = append(m.watchers, w)
}

func (m *MockManager) RemoveWatcher(w Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemoveWatcher")
	for i, existing := range m.watchers {
		if existing == w {
			m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
			return
		}
	}
}

func (m *MockManager) SetValue(_ context.Context, id ValueID, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("SetValue:%d:%t", id.NodeID, on))
	if m.SetErr != nil {
		return m.SetErr
	}
	m.sets = append(m.sets, setCall{ID: id, On: on})
	m.values[id] = on
	return nil
}

func (m *MockManager) GetValueAsBool(_ context.Context, id ValueID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("GetValue:%d", id.NodeID))
	if m.GetErr != nil {
		return false, m.GetErr
	}
	return m.values[id], nil
}

func (m *MockManager) AddAssociation(_ context.Context, networkID uint32, nodeID, group, target uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AddAssociation")
	m.associations = append(m.associations, associationCall{networkID, nodeID, group, target})
	return nil
}

func (m *MockManager) RefreshNodeInfo(_ context.Context, _ uint32, nodeID uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RefreshNodeInfo")
	m.refreshes = append(m.refreshes, nodeID)
	return nil
}

func (m *MockManager) WriteConfig(_ context.Context, networkID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("WriteConfig")
	if m.WriteConfigErr != nil {
		return m.WriteConfigErr
	}
	m.writes = append(m.writes, networkID)
	return nil
}

// SetState sets the value returned by GetValueAsBool for id.
func (m *MockManager) SetState(id ValueID, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[id] = on
}

// Sets returns a copy of all recorded SetValue calls.
func (m *MockManager) Sets() []setCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]setCall(nil), m.sets...)
}

// Calls returns a copy of the call log.
func (m *MockManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Associations returns a copy of recorded AddAssociation calls.
func (m *MockManager) Associations() []associationCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]associationCall(nil), m.associations...)
}

// Refreshes returns the node ids passed to RefreshNodeInfo.
func (m *MockManager) Refreshes() []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint8(nil), m.refreshes...)
}

// Removed returns the driver names passed to RemoveDriver.
func (m *MockManager) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

// Writes returns the network ids passed to WriteConfig.
func (m *MockManager) Writes() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint32(nil), m.writes...)
}

// WatcherCount returns the number of registered watchers.
func (m *MockManager) WatcherCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// MockMetrics records dispatcher instrumentation.
type MockMetrics struct {
	mu            sync.Mutex
	notifications map[NotificationType]int
	reactions     map[string]int
	nodes         int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		notifications: make(map[NotificationType]int),
		reactions:     make(map[string]int),
	}
}

func (m *MockMetrics) ObserveNotification(t NotificationType, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[t]++
}

func (m *MockMetrics) ObserveReaction(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions[outcome]++
}

func (m *MockMetrics) SetNodeCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = n
}

func (m *MockMetrics) Reactions(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reactions[outcome]
}

func (m *MockMetrics) Notifications(t NotificationType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications[t]
}

func (m *MockMetrics) Nodes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodes
}

// MockStore is an in-memory ConfigStore.
type MockStore struct {
	mu      sync.Mutex
	saved   map[uint32][]NodeSnapshot
	SaveErr error
	LoadErr error
}

func NewMockStore() *MockStore {
	return &MockStore{saved: make(map[uint32][]NodeSnapshot)}
}

func (s *MockStore) Save(_ context.Context, networkID uint32, nodes []NodeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.saved[networkID] = nodes
	return nil
}

func (s *MockStore) Load(_ context.Context, networkID uint32) ([]NodeSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.saved[networkID], nil
}

// Test fixtures shared across the package tests.
const testNetwork uint32 = 0xc0ffee01

var (
	sensorValue = ValueID{NetworkID: testNetwork, NodeID: 4, CommandClass: CommandClassSensorBinary}
	switchValue = ValueID{NetworkID: testNetwork, NodeID: 3, CommandClass: CommandClassSwitchBinary}
)

// populate registers the sensor and switch with their values.
func populate(reg *Registry) {
	sensor, _ := reg.Add(testNetwork, 4)
	reg.AddValue(sensor, sensorValue)
	sw, _ := reg.Add(testNetwork, 3)
	reg.AddValue(sw, switchValue)
}

// startupNotifications is the sequence a healthy manager emits after AddDriver.
func startupNotifications() []Notification {
	return []Notification{
		{Type: NotificationDriverReady, NetworkID: testNetwork, NodeID: 1},
		{Type: NotificationNodeAdded, NetworkID: testNetwork, NodeID: 1},
		{Type: NotificationNodeAdded, NetworkID: testNetwork, NodeID: 3},
		{Type: NotificationValueAdded, NetworkID: testNetwork, NodeID: 3, Value: switchValue},
		{Type: NotificationNodeAdded, NetworkID: testNetwork, NodeID: 4},
		{Type: NotificationValueAdded, NetworkID: testNetwork, NodeID: 4, Value: sensorValue},
		{Type: NotificationAllNodesQueried, NetworkID: testNetwork},
	}
}
