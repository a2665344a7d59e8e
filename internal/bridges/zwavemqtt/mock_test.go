package zwavemqtt

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-zwave/internal/zwave"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handlers      map[string]func(topic string, payload []byte)

	// onPublish, when set, is called synchronously for every publish.
	onPublish func(topic string, payload []byte)
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	hook := m.onPublish
	m.mu.Unlock()

	if hook != nil {
		hook(topic, payload)
	}
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

// PublishedTo returns messages published to topic.
func (m *MockMQTTClient) PublishedTo(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// SimulateMessage delivers a message to every handler whose subscription
// matches topic, honouring the single-level "+" wildcard.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	var matched []func(string, []byte)
	for filter, h := range m.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	m.mu.Unlock()

	for _, h := range matched {
		h(topic, payload)
	}
}

func topicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	if len(f) != len(t) {
		return false
	}
	for i := range f {
		if f[i] != "+" && f[i] != t[i] {
			return false
		}
	}
	return true
}

// mockDaemon answers API requests the way the gateway daemon does.
type mockDaemon struct {
	client *MockMQTTClient

	mu       sync.Mutex
	requests map[string][]APIRequest
	values   map[zwave.ValueID]bool
	fail     map[string]string
	silent   map[string]bool
}

// newMockDaemon wires a daemon to the client's publish hook.
func newMockDaemon(client *MockMQTTClient) *mockDaemon {
	d := &mockDaemon{
		client:   client,
		requests: make(map[string][]APIRequest),
		values:   make(map[zwave.ValueID]bool),
		fail:     make(map[string]string),
		silent:   make(map[string]bool),
	}
	client.mu.Lock()
	client.onPublish = d.handle
	client.mu.Unlock()
	return d
}

func (d *mockDaemon) handle(topic string, payload []byte) {
	prefix := "zwave/_CLIENTS/graylogic/api/"
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, "/set") {
		return
	}
	api := strings.TrimSuffix(strings.TrimPrefix(topic, prefix), "/set")

	var req APIRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}

	d.mu.Lock()
	d.requests[api] = append(d.requests[api], req)
	silent := d.silent[api]
	failMsg, fail := d.fail[api]
	resp := APIResponse{ID: req.ID, Success: !fail, Message: failMsg}
	if !fail {
		resp.Result = d.result(api, payload)
	}
	d.mu.Unlock()

	if silent {
		return
	}

	out, _ := json.Marshal(resp)
	// Answer asynchronously, like a real broker round trip.
	go d.client.SimulateMessage(ResponseTopic("zwave", "graylogic", api), out)
}

// result computes the API result. Called with d.mu held.
func (d *mockDaemon) result(api string, payload []byte) json.RawMessage {
	var typed struct {
		Args []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(payload, &typed); err != nil {
		return nil
	}

	switch api {
	case APISetValue:
		var id zwave.ValueID
		var on bool
		_ = json.Unmarshal(typed.Args[0], &id)
		_ = json.Unmarshal(typed.Args[1], &on)
		d.values[id] = on
	case APIGetValue:
		var id zwave.ValueID
		_ = json.Unmarshal(typed.Args[0], &id)
		out, _ := json.Marshal(d.values[id])
		return out
	}
	return nil
}

func (d *mockDaemon) Requests(api string) []APIRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]APIRequest(nil), d.requests[api]...)
}

func (d *mockDaemon) Fail(api, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[api] = message
}

func (d *mockDaemon) Silence(api string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent[api] = true
}

// recordingWatcher collects notifications.
type recordingWatcher struct {
	mu   sync.Mutex
	got  []zwave.Notification
	seen chan struct{}
}

func newRecordingWatcher() *recordingWatcher {
	return &recordingWatcher{seen: make(chan struct{}, 1024)}
}

func (w *recordingWatcher) Notify(n zwave.Notification) {
	w.mu.Lock()
	w.got = append(w.got, n)
	w.mu.Unlock()
	w.seen <- struct{}{}
}

func (w *recordingWatcher) Got() []zwave.Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]zwave.Notification(nil), w.got...)
}
