package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chzyer/readline"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/mqtt"
)

// TestRun_InvalidConfig verifies run fails with an explicit config path that
// does not exist.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_ZWAVE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run fails before touching the database
// or broker when the config does not validate.
func TestRun_ValidationFailure(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
zwave:
  sensor_node_id: 3
  switch_node_id: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_ZWAVE_CONFIG", configPath)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail when sensor and switch share a node id")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_ZWAVE_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GRAYLOGIC_ZWAVE_CONFIG", "/etc/graylogic/zwave.yaml")
	if got := getConfigPath(); got != "/etc/graylogic/zwave.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestLoadConfig_DefaultPathMissing(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd() error = %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("os.Chdir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.ZWave.Mode != config.ModeConsole || cfg.ZWave.SensorNodeID != 4 {
		t.Errorf("loadConfig() did not return defaults: %+v", cfg.ZWave)
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("loadConfig() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfig_RepositoryConfig(t *testing.T) {
	cfg, err := loadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Logging.Output = %q, want stderr", cfg.Logging.Output)
	}
}

func TestTopologyFromConfig(t *testing.T) {
	topo := topologyFromConfig(config.ZWaveConfig{
		ControllerNodeID: 1,
		SensorNodeID:     4,
		SwitchNodeID:     3,
		AssociationGroup: 2,
	})

	if topo.ControllerNodeID != 1 || topo.SensorNodeID != 4 || topo.SwitchNodeID != 3 || topo.AssociationGroup != 2 {
		t.Errorf("topologyFromConfig() = %+v", topo)
	}
}

func TestDriverOptions(t *testing.T) {
	opts := driverOptions(config.DriverOptionsConfig{
		ConfigPath:           "/usr/local/etc/openzwave",
		UserPath:             "../meta/",
		SaveLogLevel:         config.LogLevelDetail,
		QueueLogLevel:        config.LogLevelDebug,
		DumpTrigger:          config.LogLevelError,
		PollInterval:         5000,
		IntervalBetweenPolls: true,
		ValidateValueChanges: true,
	})

	want := map[string]any{
		"ConfigPath":           "/usr/local/etc/openzwave",
		"UserPath":             "../meta/",
		"SaveLogLevel":         8,
		"QueueLogLevel":        9,
		"DumpTrigger":          4,
		"PollInterval":         5000,
		"IntervalBetweenPolls": true,
		"ValidateValueChanges": true,
		"ConsoleOutput":        false,
	}
	if len(opts) != len(want) {
		t.Fatalf("driverOptions() returned %d options, want %d", len(opts), len(want))
	}
	for _, o := range opts {
		v, ok := want[o.Name]
		if !ok {
			t.Errorf("unexpected option %q", o.Name)
			continue
		}
		if o.Value != v {
			t.Errorf("option %s = %v, want %v", o.Name, o.Value, v)
		}
	}

	// Paths must be set before anything that reads them.
	if opts[0].Name != "ConfigPath" || opts[1].Name != "UserPath" {
		t.Errorf("first options = %s, %s; want ConfigPath, UserPath", opts[0].Name, opts[1].Name)
	}
}

// scriptedReader returns lines in order, then err. When block is set it
// waits for Close instead of returning err.
type scriptedReader struct {
	lines []string
	err   error
	block bool

	mu     sync.Mutex
	closed chan struct{}
	once   sync.Once
}

func newScriptedReader(err error, lines ...string) *scriptedReader {
	return &scriptedReader{lines: lines, err: err, closed: make(chan struct{})}
}

func (r *scriptedReader) Readline() (string, error) {
	r.mu.Lock()
	if len(r.lines) > 0 {
		line := r.lines[0]
		r.lines = r.lines[1:]
		r.mu.Unlock()
		return line, nil
	}
	r.mu.Unlock()

	if r.block {
		<-r.closed
		return "", io.EOF
	}
	return "", r.err
}

func (r *scriptedReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *scriptedReader) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

func TestWaitForExit(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		err   error
		want  bool
	}{
		{"empty line saves", []string{""}, io.EOF, true},
		{"whitespace line saves", []string{"  "}, io.EOF, true},
		{"text ignored until empty line", []string{"status", "help", ""}, io.EOF, true},
		{"end of input", []string{"status"}, io.EOF, false},
		{"interrupt", nil, readline.ErrInterrupt, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newScriptedReader(tt.err, tt.lines...)

			if got := waitForExit(context.Background(), r); got != tt.want {
				t.Errorf("waitForExit() = %t, want %t", got, tt.want)
			}
			if !r.isClosed() {
				t.Error("reader was not closed")
			}
		})
	}
}

func TestWaitForExit_ContextCancelled(t *testing.T) {
	r := newScriptedReader(nil)
	r.block = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- waitForExit(ctx, r) }()

	cancel()

	select {
	case save := <-done:
		if save {
			t.Error("waitForExit() = true after cancellation, want false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitForExit() did not return after cancellation")
	}
	if !r.isClosed() {
		t.Error("reader was not closed")
	}
}

// fakeInfraClient records calls made through the adapter.
type fakeInfraClient struct {
	published []string
	handlers  map[string]mqtt.MessageHandler
	connected bool
}

func (f *fakeInfraClient) Publish(topic string, _ []byte, _ byte, _ bool) error {
	f.published = append(f.published, topic)
	return nil
}

func (f *fakeInfraClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if f.handlers == nil {
		f.handlers = make(map[string]mqtt.MessageHandler)
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeInfraClient) IsConnected() bool { return f.connected }

func TestMQTTBridgeAdapter(t *testing.T) {
	client := &fakeInfraClient{connected: true}
	adapter := &mqttBridgeAdapter{client: client}

	if err := adapter.Publish("zwave/_CLIENTS/graylogic/api/setValue/set", nil, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(client.published) != 1 {
		t.Errorf("published %d messages, want 1", len(client.published))
	}

	var gotTopic string
	var gotPayload []byte
	err := adapter.Subscribe("zwave/_EVENTS/graylogic/notification", 1, func(topic string, payload []byte) {
		gotTopic, gotPayload = topic, payload
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	handler := client.handlers["zwave/_EVENTS/graylogic/notification"]
	if handler == nil {
		t.Fatal("handler not registered with client")
	}
	if err := handler("zwave/_EVENTS/graylogic/notification", []byte(`{}`)); err != nil {
		t.Errorf("wrapped handler error = %v, want nil", err)
	}
	if gotTopic != "zwave/_EVENTS/graylogic/notification" || string(gotPayload) != `{}` {
		t.Errorf("handler received %q %q", gotTopic, gotPayload)
	}

	if !adapter.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}
