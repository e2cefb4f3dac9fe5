package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/infrastructure/mqtt"
	"github.com/lumensync/lumen-core/internal/lightsync"
	"github.com/lumensync/lumen-core/internal/scene"
)

// pubRecord is one captured publish.
type pubRecord struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeClient captures publishes and subscriptions in memory. deliver()
// plays an inbound message through the matching subscription handler the
// way the paho library would.
type fakeClient struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published []pubRecord
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *fakeClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, pubRecord{topic: topic, payload: payload, retained: retained})
	return nil
}

func (c *fakeClient) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, 1, true)
}

func (c *fakeClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	return nil
}

func (c *fakeClient) IsConnected() bool { return true }

// deliver invokes the subscription handler matching topic.
func (c *fakeClient) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()

	c.mu.Lock()
	handler, ok := c.handlers[topic]
	if !ok {
		for pattern, h := range c.handlers {
			if topicMatches(pattern, topic) {
				handler, ok = h, true
				break
			}
		}
	}
	c.mu.Unlock()

	if !ok {
		t.Fatalf("no subscription matches topic %s", topic)
	}
	return handler(topic, payload)
}

// topicMatches implements single-level (+) wildcard matching, which is the
// only pattern the bridge subscribes with.
func topicMatches(pattern, topic string) bool {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "+" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}

func (c *fakeClient) publishedTo(topic string) []pubRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []pubRecord
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (c *fakeClient) subscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

// fakeController records manager calls as formatted strings so tests can
// assert exact sequences. errs injects failures per method name.
type fakeController struct {
	mu           sync.Mutex
	calls        []string
	errs         map[string]error
	devices      []device.Device
	syncRunning  bool
	lastSource   color.PixelSource
	lastSyncOpts lightsync.Options
	playing      string
	lastScene    scene.Options
}

func (f *fakeController) record(call, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.errs[method]
}

func (f *fakeController) Discover(ctx context.Context) ([]device.Device, error) {
	if err := f.record("Discover", "Discover"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, nil
}

func (f *fakeController) SetPower(ctx context.Context, id string, on bool) error {
	return f.record(fmt.Sprintf("SetPower(%s,%t)", id, on), "SetPower")
}

func (f *fakeController) SetBrightness(ctx context.Context, id string, level int) error {
	return f.record(fmt.Sprintf("SetBrightness(%s,%d)", id, level), "SetBrightness")
}

func (f *fakeController) SetColor(ctx context.Context, id string, c color.RGB) error {
	return f.record(fmt.Sprintf("SetColor(%s,%d,%d,%d)", id, c.R, c.G, c.B), "SetColor")
}

func (f *fakeController) SetColorTemp(ctx context.Context, id string, kelvin int) error {
	return f.record(fmt.Sprintf("SetColorTemp(%s,%d)", id, kelvin), "SetColorTemp")
}

func (f *fakeController) StartSync(source color.PixelSource, opts lightsync.Options) error {
	if err := f.record("StartSync", "StartSync"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncRunning = true
	f.lastSource = source
	f.lastSyncOpts = opts
	return nil
}

func (f *fakeController) StopSync() {
	_ = f.record("StopSync", "StopSync")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncRunning = false
}

func (f *fakeController) SyncStats() lightsync.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lightsync.Stats{Running: f.syncRunning}
}

func (f *fakeController) PlayScene(ctx context.Context, ref string, opts scene.Options) error {
	if err := f.record(fmt.Sprintf("PlayScene(%s)", ref), "PlayScene"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = ref
	f.lastScene = opts
	return nil
}

func (f *fakeController) StopScene() {
	_ = f.record("StopScene", "StopScene")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = ""
}

func (f *fakeController) PlayingScene() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing, f.playing != ""
}

func (f *fakeController) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// newTestBridge builds a started bridge on fakes. mutate can adjust the
// options before construction.
func newTestBridge(t *testing.T, mutate func(*Options)) (*Bridge, *fakeClient, *fakeController) {
	t.Helper()

	client := newFakeClient()
	ctrl := &fakeController{errs: map[string]error{}}

	opts := Options{
		Manager:    ctrl,
		Client:     client,
		SyncSource: color.NewGradientSource(32, 18),
		SyncOptions: lightsync.Options{
			SampleRateHz: 30,
			Zones:        2,
		},
		QoS: 1,
	}
	if mutate != nil {
		mutate(&opts)
	}

	bridge, err := NewBridge(opts)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(bridge.Stop)

	return bridge, client, ctrl
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewBridgeValidation(t *testing.T) {
	client := newFakeClient()
	ctrl := &fakeController{}

	_, err := NewBridge(Options{Client: client})
	if !errors.Is(err, ErrManagerRequired) {
		t.Errorf("NewBridge() without manager error = %v, want ErrManagerRequired", err)
	}

	_, err = NewBridge(Options{Manager: ctrl})
	if !errors.Is(err, ErrClientRequired) {
		t.Errorf("NewBridge() without client error = %v, want ErrClientRequired", err)
	}

	bridge, err := NewBridge(Options{Manager: ctrl, Client: client})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	bridge.Stop() // Stop before Start must not hang
}

func TestStartSubscribesAndSeedsStatus(t *testing.T) {
	_, client, _ := newTestBridge(t, nil)

	if got := client.subscriptionCount(); got != 6 {
		t.Errorf("subscription count = %d, want 6", got)
	}

	for _, topic := range []string{
		mqtt.Topics{}.AllDeviceCommands(),
		mqtt.Topics{}.Discover(),
		mqtt.Topics{}.SyncStart(),
		mqtt.Topics{}.SyncStop(),
		mqtt.Topics{}.ScenePlay(),
		mqtt.Topics{}.SceneStop(),
	} {
		client.mu.Lock()
		_, ok := client.handlers[topic]
		client.mu.Unlock()
		if !ok {
			t.Errorf("missing subscription for %s", topic)
		}
	}

	// Initial retained idle status
	status := client.publishedTo(mqtt.Topics{}.SyncState())
	if len(status) != 1 {
		t.Fatalf("initial status publishes = %d, want 1", len(status))
	}
	if !status[0].retained {
		t.Error("initial status should be retained")
	}
	var msg SyncStateMessage
	if err := json.Unmarshal(status[0].payload, &msg); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if msg.Running {
		t.Error("initial status Running = true, want false")
	}
}

// =============================================================================
// Device Command Tests
// =============================================================================

func TestDeviceCommandRouting(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	topic := mqtt.Topics{}.DeviceCommand("dev1")
	payload := []byte(`{"power":true,"brightness":40}`)

	if err := client.deliver(t, topic, payload); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	want := []string{"SetPower(dev1,true)", "SetBrightness(dev1,40)"}
	got := ctrl.callNames()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDeviceCommandColorAndKelvin(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	topic := mqtt.Topics{}.DeviceCommand("dev2")
	payload := []byte(`{"color":{"r":255,"g":0,"b":64},"kelvin":3500}`)

	if err := client.deliver(t, topic, payload); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	want := []string{"SetColor(dev2,255,0,64)", "SetColorTemp(dev2,3500)"}
	got := ctrl.callNames()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDeviceCommandBadPayload(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	topic := mqtt.Topics{}.DeviceCommand("dev1")

	if err := client.deliver(t, topic, []byte(`{not json`)); err == nil {
		t.Error("deliver with bad payload expected error")
	}
	if err := client.deliver(t, topic, []byte(`{}`)); err == nil {
		t.Error("deliver with empty command expected error")
	}

	if calls := ctrl.callNames(); len(calls) != 0 {
		t.Errorf("controller calls = %v, want none", calls)
	}
}

func TestDeviceCommandStopsOnFirstFailure(t *testing.T) {
	wantErr := errors.New("device unreachable")
	_, client, ctrl := newTestBridge(t, nil)
	ctrl.errs["SetPower"] = wantErr

	topic := mqtt.Topics{}.DeviceCommand("dev1")
	err := client.deliver(t, topic, []byte(`{"power":true,"brightness":40}`))
	if !errors.Is(err, wantErr) {
		t.Errorf("deliver error = %v, want %v", err, wantErr)
	}

	// Brightness must not be applied after the power failure
	for _, call := range ctrl.callNames() {
		if strings.HasPrefix(call, "SetBrightness") {
			t.Errorf("unexpected call %s after failure", call)
		}
	}
}

func TestUnexpectedTopicRejected(t *testing.T) {
	bridge, _, ctrl := newTestBridge(t, nil)

	if err := bridge.handleMessage("lumensync/bogus/thing", nil); err == nil {
		t.Error("handleMessage with unknown topic expected error")
	}
	if err := bridge.handleMessage("lumensync/command/device/dev1", nil); err == nil {
		t.Error("handleMessage with short device topic expected error")
	}

	if calls := ctrl.callNames(); len(calls) != 0 {
		t.Errorf("controller calls = %v, want none", calls)
	}
}

// =============================================================================
// Discovery Tests
// =============================================================================

func TestDiscoverPublishesEvent(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)
	ctrl.devices = []device.Device{
		{ID: "AA:BB:CC:DD:EE:FF:00:01"},
		{ID: "AA:BB:CC:DD:EE:FF:00:02"},
	}

	if err := client.deliver(t, mqtt.Topics{}.Discover(), nil); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	eventTopic := mqtt.Topics{}.DiscoveryEvent()
	waitFor(t, func() bool {
		return len(client.publishedTo(eventTopic)) > 0
	}, 2*time.Second)

	events := client.publishedTo(eventTopic)
	var msg DiscoveryEventMessage
	if err := json.Unmarshal(events[0].payload, &msg); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if msg.Found != 2 {
		t.Errorf("Found = %d, want 2", msg.Found)
	}
	if len(msg.DeviceIDs) != 2 || msg.DeviceIDs[0] != "AA:BB:CC:DD:EE:FF:00:01" {
		t.Errorf("DeviceIDs = %v", msg.DeviceIDs)
	}
	if events[0].retained {
		t.Error("discovery event should not be retained")
	}
}

func TestDiscoverFailureSkipsEvent(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)
	ctrl.errs["Discover"] = errors.New("no transport")

	if err := client.deliver(t, mqtt.Topics{}.Discover(), nil); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	// The handler runs discovery in the background; give it a moment.
	waitFor(t, func() bool {
		for _, c := range ctrl.callNames() {
			if c == "Discover" {
				return true
			}
		}
		return false
	}, 2*time.Second)
	time.Sleep(20 * time.Millisecond)

	if events := client.publishedTo(mqtt.Topics{}.DiscoveryEvent()); len(events) != 0 {
		t.Errorf("discovery events = %d, want 0 after failure", len(events))
	}
}

// =============================================================================
// Sync Command Tests
// =============================================================================

func TestSyncStartAndStop(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	if err := client.deliver(t, mqtt.Topics{}.SyncStart(), nil); err != nil {
		t.Fatalf("deliver sync start error = %v", err)
	}

	ctrl.mu.Lock()
	if ctrl.lastSource == nil {
		t.Error("StartSync source = nil, want configured gradient source")
	}
	if ctrl.lastSyncOpts.Zones != 2 || ctrl.lastSyncOpts.SampleRateHz != 30 {
		t.Errorf("StartSync opts = %+v, want configured base options", ctrl.lastSyncOpts)
	}
	ctrl.mu.Unlock()

	// Status republished on the transition, now running
	status := client.publishedTo(mqtt.Topics{}.SyncState())
	if len(status) < 2 {
		t.Fatalf("status publishes = %d, want >= 2", len(status))
	}
	var msg SyncStateMessage
	if err := json.Unmarshal(status[len(status)-1].payload, &msg); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if !msg.Running {
		t.Error("status Running = false after start, want true")
	}

	if err := client.deliver(t, mqtt.Topics{}.SyncStop(), nil); err != nil {
		t.Fatalf("deliver sync stop error = %v", err)
	}

	status = client.publishedTo(mqtt.Topics{}.SyncState())
	if err := json.Unmarshal(status[len(status)-1].payload, &msg); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if msg.Running {
		t.Error("status Running = true after stop, want false")
	}
}

func TestSyncStartDeviceOverride(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	payload := []byte(`{"devices":["AA:BB:CC:DD:EE:FF:00:01","AA:BB:CC:DD:EE:FF:00:02"]}`)
	if err := client.deliver(t, mqtt.Topics{}.SyncStart(), payload); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.lastSyncOpts.DeviceIDs) != 2 {
		t.Errorf("DeviceIDs = %v, want the two requested devices", ctrl.lastSyncOpts.DeviceIDs)
	}
}

func TestSyncStartWithoutSource(t *testing.T) {
	_, client, ctrl := newTestBridge(t, func(o *Options) {
		o.SyncSource = nil
	})

	err := client.deliver(t, mqtt.Topics{}.SyncStart(), nil)
	if !errors.Is(err, ErrNoPixelSource) {
		t.Errorf("deliver error = %v, want ErrNoPixelSource", err)
	}

	for _, call := range ctrl.callNames() {
		if call == "StartSync" {
			t.Error("StartSync called without a source")
		}
	}
}

// =============================================================================
// Scene Command Tests
// =============================================================================

func TestScenePlayAndStop(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	payload := []byte(`{"scene":"sunset-glow","frame_rate_hz":10}`)
	if err := client.deliver(t, mqtt.Topics{}.ScenePlay(), payload); err != nil {
		t.Fatalf("deliver scene play error = %v", err)
	}

	ctrl.mu.Lock()
	if ctrl.playing != "sunset-glow" {
		t.Errorf("playing = %q, want sunset-glow", ctrl.playing)
	}
	if ctrl.lastScene.FrameRateHz != 10 {
		t.Errorf("FrameRateHz = %d, want 10", ctrl.lastScene.FrameRateHz)
	}
	ctrl.mu.Unlock()

	// Status carries the scene reference
	status := client.publishedTo(mqtt.Topics{}.SyncState())
	var msg SyncStateMessage
	if err := json.Unmarshal(status[len(status)-1].payload, &msg); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if msg.Scene != "sunset-glow" {
		t.Errorf("status Scene = %q, want sunset-glow", msg.Scene)
	}

	if err := client.deliver(t, mqtt.Topics{}.SceneStop(), nil); err != nil {
		t.Fatalf("deliver scene stop error = %v", err)
	}

	if ref, ok := ctrl.PlayingScene(); ok {
		t.Errorf("PlayingScene() = %q after stop, want none", ref)
	}
}

func TestScenePlayMissingScene(t *testing.T) {
	_, client, ctrl := newTestBridge(t, nil)

	if err := client.deliver(t, mqtt.Topics{}.ScenePlay(), []byte(`{}`)); err == nil {
		t.Error("deliver without scene name expected error")
	}

	for _, call := range ctrl.callNames() {
		if strings.HasPrefix(call, "PlayScene") {
			t.Error("PlayScene called for empty scene reference")
		}
	}
}

// =============================================================================
// Device State Publishing Tests
// =============================================================================

func TestDeviceStateChangeDetection(t *testing.T) {
	registry := device.NewRegistry()
	_, client, _ := newTestBridge(t, func(o *Options) {
		o.Registry = registry
	})

	d := &device.Device{
		ID:           "AA:BB:CC:DD:EE:FF:00:01",
		IP:           "192.168.1.50",
		LANEnabled:   true,
		Online:       true,
		Capabilities: device.DefaultCapabilities(),
		State:        device.DefaultState(),
	}
	if _, _, err := registry.Upsert(d); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	stateTopic := mqtt.Topics{}.DeviceState(d.ID)
	if got := len(client.publishedTo(stateTopic)); got != 1 {
		t.Fatalf("state publishes after upsert = %d, want 1", got)
	}

	// Same observable state again: the change hook fires but the publish
	// is suppressed.
	if _, _, err := registry.Upsert(d.DeepCopy()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got := len(client.publishedTo(stateTopic)); got != 1 {
		t.Errorf("state publishes after identical upsert = %d, want 1", got)
	}

	// A real change publishes again.
	st := device.DefaultState()
	st.Brightness = 80
	if err := registry.SetState(d.ID, st); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	pubs := client.publishedTo(stateTopic)
	if len(pubs) != 2 {
		t.Fatalf("state publishes after change = %d, want 2", len(pubs))
	}

	var msg DeviceStateMessage
	if err := json.Unmarshal(pubs[1].payload, &msg); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if msg.State.Brightness != 80 {
		t.Errorf("published brightness = %d, want 80", msg.State.Brightness)
	}
	if !msg.Online {
		t.Error("published online = false, want true")
	}
	if !pubs[1].retained {
		t.Error("device state should be retained")
	}

	// Going offline is an observable change too.
	if err := registry.MarkOffline(d.ID); err != nil {
		t.Fatalf("MarkOffline() error = %v", err)
	}
	if got := len(client.publishedTo(stateTopic)); got != 3 {
		t.Errorf("state publishes after offline = %d, want 3", got)
	}
}

func TestStopDetachesRegistry(t *testing.T) {
	registry := device.NewRegistry()
	bridge, client, _ := newTestBridge(t, func(o *Options) {
		o.Registry = registry
	})

	bridge.Stop()
	bridge.Stop() // Second stop is a no-op

	d := &device.Device{
		ID:           "AA:BB:CC:DD:EE:FF:00:09",
		IP:           "192.168.1.60",
		LANEnabled:   true,
		Online:       true,
		Capabilities: device.DefaultCapabilities(),
		State:        device.DefaultState(),
	}
	if _, _, err := registry.Upsert(d); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if got := len(client.publishedTo(mqtt.Topics{}.DeviceState(d.ID))); got != 0 {
		t.Errorf("state publishes after Stop() = %d, want 0", got)
	}
}
