package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/transport"
)

// fakeReply is one scripted inbound datagram.
type fakeReply struct {
	payload string
	from    string
}

// fakeTransport records outbound traffic with timestamps and replays
// scripted replies. sendErrs is consumed one entry per send; an exhausted
// script means sends succeed.
type fakeTransport struct {
	mu        sync.Mutex
	sendTimes []time.Time
	targets   []string // "addr:port" per send attempt
	payloads  []string
	sendErrs  []error
	replies   []fakeReply
}

func (f *fakeTransport) SendDatagram(payload []byte, addr string, port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendTimes = append(f.sendTimes, time.Now())
	f.targets = append(f.targets, fmt.Sprintf("%s:%d", addr, port))
	f.payloads = append(f.payloads, string(payload))
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) ReceiveDatagram(timeout time.Duration) ([]byte, string, error) {
	f.mu.Lock()
	if len(f.replies) == 0 {
		f.mu.Unlock()
		time.Sleep(timeout)
		return nil, "", transport.ErrTimeout
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	f.mu.Unlock()
	return []byte(r.payload), r.from, nil
}

func (f *fakeTransport) JoinMulticast(string, int) error { return nil }
func (f *fakeTransport) Close() error                    { return nil }

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendTimes)
}

// sinkRecorder captures telemetry results.
type sinkRecorder struct {
	mu      sync.Mutex
	results []CommandResult
}

func (s *sinkRecorder) RecordCommand(r CommandResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

const (
	testDeviceID = "AA:BB:CC:DD:EE:FF:00:01"
	testDeviceIP = "192.168.1.50"
)

func seedDevice(t *testing.T, reg *device.Registry, id, ip string, simulated bool) {
	t.Helper()
	_, _, err := reg.Upsert(&device.Device{
		ID:           id,
		Model:        "H6159",
		IP:           ip,
		LANEnabled:   !simulated,
		Online:       true,
		Simulated:    simulated,
		Capabilities: device.DefaultCapabilities(),
		State:        device.DefaultState(),
	})
	if err != nil {
		t.Fatalf("seed device %s: %v", id, err)
	}
}

func newTestDispatcher(t *testing.T, tr *fakeTransport, opts Options) (*Dispatcher, *device.Registry) {
	t.Helper()
	reg := device.NewRegistry()
	d, err := NewDispatcher(tr, reg, opts, nil)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d, reg
}

func TestNewDispatcherValidation(t *testing.T) {
	reg := device.NewRegistry()

	if _, err := NewDispatcher(nil, reg, Options{}, nil); !errors.Is(err, ErrTransportRequired) {
		t.Errorf("nil transport error = %v, want ErrTransportRequired", err)
	}
	if _, err := NewDispatcher(&fakeTransport{}, nil, Options{}, nil); !errors.Is(err, ErrRegistryRequired) {
		t.Errorf("nil registry error = %v, want ErrRegistryRequired", err)
	}
	if _, err := NewDispatcher(&fakeTransport{}, reg, Options{}, nil); err != nil {
		t.Errorf("valid construction failed: %v", err)
	}
}

func TestSendControlCommand(t *testing.T) {
	tr := &fakeTransport{}
	d, reg := newTestDispatcher(t, tr, Options{})
	seedDevice(t, reg, testDeviceID, testDeviceIP, false)

	if !d.Send(context.Background(), testDeviceIP, testDeviceID, Turn(true)) {
		t.Fatal("Send returned false")
	}

	tr.mu.Lock()
	if len(tr.targets) != 1 || tr.targets[0] != testDeviceIP+":4001" {
		t.Errorf("targets = %v, want one send to the control port", tr.targets)
	}
	if !strings.Contains(tr.payloads[0], `"cmd":"turn"`) || !strings.Contains(tr.payloads[0], `"value":1`) {
		t.Errorf("payload = %s", tr.payloads[0])
	}
	tr.mu.Unlock()

	dev, err := reg.Get(testDeviceID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !dev.State.On {
		t.Error("cached state not updated optimistically")
	}
}

func TestSendRetryExhaustion(t *testing.T) {
	boom := errors.New("device radio busy")
	tr := &fakeTransport{sendErrs: []error{boom, boom, boom}}
	d, reg := newTestDispatcher(t, tr, Options{RetryDelay: 30 * time.Millisecond})
	seedDevice(t, reg, testDeviceID, testDeviceIP, false)

	if d.Send(context.Background(), testDeviceIP, testDeviceID, Brightness(80)) {
		t.Fatal("Send returned true with every attempt failing")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sendTimes) != DefaultMaxAttempts {
		t.Fatalf("attempts = %d, want exactly %d", len(tr.sendTimes), DefaultMaxAttempts)
	}
	for i := 1; i < len(tr.sendTimes); i++ {
		if gap := tr.sendTimes[i].Sub(tr.sendTimes[i-1]); gap < 30*time.Millisecond {
			t.Errorf("attempt gap %d = %v, want >= retry delay", i, gap)
		}
	}

	dev, err := reg.Get(testDeviceID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dev.Online {
		t.Error("device still online after exhausting attempts")
	}
}

func TestSendRecoversMidRetry(t *testing.T) {
	boom := errors.New("transient")
	tr := &fakeTransport{sendErrs: []error{boom, boom}}
	d, reg := newTestDispatcher(t, tr, Options{RetryDelay: 10 * time.Millisecond})
	seedDevice(t, reg, testDeviceID, testDeviceIP, false)

	if !d.Send(context.Background(), testDeviceIP, testDeviceID, Brightness(25)) {
		t.Fatal("Send returned false despite a successful final attempt")
	}
	if n := tr.sendCount(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}

	dev, _ := reg.Get(testDeviceID)
	if dev.State.Brightness != 25 {
		t.Errorf("brightness = %d, want 25", dev.State.Brightness)
	}
	if !dev.Online {
		t.Error("successful send must leave the device online")
	}
}

func TestSendContextCancelledDuringRetry(t *testing.T) {
	boom := errors.New("still failing")
	tr := &fakeTransport{sendErrs: []error{boom, boom, boom}}
	d, reg := newTestDispatcher(t, tr, Options{RetryDelay: 500 * time.Millisecond})
	seedDevice(t, reg, testDeviceID, testDeviceIP, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if d.Send(ctx, testDeviceIP, testDeviceID, Turn(false)) {
		t.Fatal("Send returned true after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("cancelled Send took %v, must abandon the retry wait", elapsed)
	}
	if n := tr.sendCount(); n != 1 {
		t.Errorf("attempts = %d, want 1 before cancellation", n)
	}
}

func TestSendStatusQuery(t *testing.T) {
	t.Run("response merges state", func(t *testing.T) {
		tr := &fakeTransport{replies: []fakeReply{
			{payload: `{"msg":{"cmd":"devStatus","data":{"onOff":1,"brightness":77,"colorTemInKelvin":4200}}}`, from: testDeviceIP},
		}}
		d, reg := newTestDispatcher(t, tr, Options{StatusTimeout: 200 * time.Millisecond})
		seedDevice(t, reg, testDeviceID, testDeviceIP, false)

		if !d.Send(context.Background(), testDeviceIP, testDeviceID, StatusQuery()) {
			t.Fatal("Send returned false")
		}

		dev, _ := reg.Get(testDeviceID)
		if !dev.State.On || dev.State.Brightness != 77 || dev.State.Kelvin != 4200 {
			t.Errorf("state = %+v", dev.State)
		}
		if !dev.Capabilities.ColorTemp {
			t.Error("reported kelvin must set colour temperature capability")
		}
	})

	t.Run("foreign senders skipped", func(t *testing.T) {
		tr := &fakeTransport{replies: []fakeReply{
			{payload: `{"msg":{"cmd":"devStatus","data":{"onOff":0}}}`, from: "10.0.0.99"},
			{payload: `{"msg":{"cmd":"devStatus","data":{"onOff":1}}}`, from: testDeviceIP},
		}}
		d, reg := newTestDispatcher(t, tr, Options{StatusTimeout: 200 * time.Millisecond})
		seedDevice(t, reg, testDeviceID, testDeviceIP, false)

		if !d.Send(context.Background(), testDeviceIP, testDeviceID, StatusQuery()) {
			t.Fatal("Send returned false")
		}
		dev, _ := reg.Get(testDeviceID)
		if !dev.State.On {
			t.Error("merged the foreign sender's state instead of the device's")
		}
	})

	t.Run("silence fails the attempt", func(t *testing.T) {
		tr := &fakeTransport{}
		d, reg := newTestDispatcher(t, tr, Options{
			MaxAttempts:   2,
			RetryDelay:    10 * time.Millisecond,
			StatusTimeout: 30 * time.Millisecond,
		})
		seedDevice(t, reg, testDeviceID, testDeviceIP, false)

		if d.Send(context.Background(), testDeviceIP, testDeviceID, StatusQuery()) {
			t.Fatal("Send returned true without any response")
		}
		if n := tr.sendCount(); n != 2 {
			t.Errorf("attempts = %d, want 2", n)
		}
	})
}

func TestSendBatchOrderAndPacing(t *testing.T) {
	boom := errors.New("dead air")
	tr := &fakeTransport{sendErrs: []error{nil, boom, nil}}
	d, reg := newTestDispatcher(t, tr, Options{MaxAttempts: 1, PacingDelay: 30 * time.Millisecond})
	seedDevice(t, reg, testDeviceID, testDeviceIP, false)

	entries := []BatchEntry{
		{Address: "192.168.1.50", DeviceID: testDeviceID, Command: Turn(true)},
		{Address: "192.168.1.51", DeviceID: "", Command: Brightness(10)},
		{Address: "192.168.1.52", DeviceID: "", Command: Brightness(90)},
	}

	results := d.SendBatch(context.Background(), entries)
	want := []bool{true, false, true}
	if len(results) != len(want) {
		t.Fatalf("results = %v, want %d entries", results, len(want))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %v, want %v", i, results[i], want[i])
		}
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	wantTargets := []string{"192.168.1.50:4001", "192.168.1.51:4001", "192.168.1.52:4001"}
	for i, target := range wantTargets {
		if tr.targets[i] != target {
			t.Errorf("targets[%d] = %s, want %s (input order)", i, tr.targets[i], target)
		}
	}
	for i := 1; i < len(tr.sendTimes); i++ {
		if gap := tr.sendTimes[i].Sub(tr.sendTimes[i-1]); gap < 30*time.Millisecond {
			t.Errorf("pacing gap %d = %v, want >= pacing delay", i, gap)
		}
	}
}

func TestSendBatchUpdatesCachedColors(t *testing.T) {
	const otherID = "AA:BB:CC:DD:EE:FF:00:02"
	tr := &fakeTransport{}
	d, reg := newTestDispatcher(t, tr, Options{})
	seedDevice(t, reg, testDeviceID, "192.168.1.50", false)
	seedDevice(t, reg, otherID, "192.168.1.51", false)

	red := color.RGB{R: 255}
	results := d.SendBatch(context.Background(), []BatchEntry{
		{Address: "192.168.1.50", DeviceID: testDeviceID, Command: ColorAndTemp(&red, 0)},
		{Address: "192.168.1.51", DeviceID: otherID, Command: ColorAndTemp(&red, 0)},
	})
	for i, ok := range results {
		if !ok {
			t.Fatalf("results[%d] = false", i)
		}
	}

	for _, id := range []string{testDeviceID, otherID} {
		dev, err := reg.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if dev.State.Color != red {
			t.Errorf("device %s cached colour = %+v, want red", id, dev.State.Color)
		}
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sendTimes) != 2 {
		t.Fatalf("sends = %d, want 2", len(tr.sendTimes))
	}
	if gap := tr.sendTimes[1].Sub(tr.sendTimes[0]); gap < DefaultPacingDelay {
		t.Errorf("pacing gap = %v, want >= %v", gap, DefaultPacingDelay)
	}
}

func TestSendBatchEmpty(t *testing.T) {
	tr := &fakeTransport{}
	d, _ := newTestDispatcher(t, tr, Options{})

	if results := d.SendBatch(context.Background(), nil); len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if n := tr.sendCount(); n != 0 {
		t.Errorf("sends = %d, want none", n)
	}
}

func TestSendBatchCancelled(t *testing.T) {
	tr := &fakeTransport{}
	d, _ := newTestDispatcher(t, tr, Options{MaxAttempts: 1, PacingDelay: 300 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	entries := []BatchEntry{
		{Address: "192.168.1.50", Command: Turn(true)},
		{Address: "192.168.1.51", Command: Turn(true)},
		{Address: "192.168.1.52", Command: Turn(true)},
	}

	start := time.Now()
	results := d.SendBatch(ctx, entries)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled batch took %v", elapsed)
	}
	if !results[0] || results[1] || results[2] {
		t.Errorf("results = %v, want only the first entry sent", results)
	}
}

func TestSimulatedDeviceShortCircuits(t *testing.T) {
	tr := &fakeTransport{}
	d, reg := newTestDispatcher(t, tr, Options{})
	seedDevice(t, reg, testDeviceID, "127.0.0.1", true)

	if !d.Send(context.Background(), "127.0.0.1", testDeviceID, Brightness(60)) {
		t.Fatal("simulated device rejected a command")
	}
	if n := tr.sendCount(); n != 0 {
		t.Errorf("sends = %d, simulated devices must not generate wire traffic", n)
	}

	dev, _ := reg.Get(testDeviceID)
	if dev.State.Brightness != 60 {
		t.Errorf("brightness = %d, want 60", dev.State.Brightness)
	}
}

func TestSendEmptyColorCommandFails(t *testing.T) {
	tr := &fakeTransport{}
	d, _ := newTestDispatcher(t, tr, Options{})

	if d.Send(context.Background(), testDeviceIP, "", ColorAndTemp(nil, 0)) {
		t.Fatal("empty colour command must fail before the wire")
	}
	if n := tr.sendCount(); n != 0 {
		t.Errorf("sends = %d, want none for an unencodable command", n)
	}
}

func TestTelemetryRecordsResults(t *testing.T) {
	boom := errors.New("gone")
	tr := &fakeTransport{sendErrs: []error{nil, boom, boom}}
	d, reg := newTestDispatcher(t, tr, Options{MaxAttempts: 2, RetryDelay: 10 * time.Millisecond})
	seedDevice(t, reg, testDeviceID, testDeviceIP, false)

	sink := &sinkRecorder{}
	d.SetTelemetry(sink)

	d.Send(context.Background(), testDeviceIP, testDeviceID, Turn(true))
	d.Send(context.Background(), testDeviceIP, testDeviceID, Turn(false))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.results) != 2 {
		t.Fatalf("recorded %d results, want 2", len(sink.results))
	}
	first, second := sink.results[0], sink.results[1]
	if !first.Success || first.Attempts != 1 || first.Command != string(KindTurn) {
		t.Errorf("first result = %+v", first)
	}
	if second.Success || second.Attempts != 2 {
		t.Errorf("second result = %+v", second)
	}
}
