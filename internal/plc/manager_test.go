// internal/plc/manager_test.go
package plc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// ---- fake transport ----

type fakeTransport struct {
	mu sync.Mutex

	failConnect bool
	failWrite   bool
	failProbe   bool

	connects int
	closes   int
	probes   int
	writes   []writeCall
}

type writeCall struct {
	channel int
	value   bool
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.failConnect {
		return errors.New("fake: connection refused")
	}
	return nil
}

func (f *fakeTransport) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) Write(ctx context.Context, channel int, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("fake: broken pipe")
	}
	f.writes = append(f.writes, writeCall{channel: channel, value: value})
	return nil
}

func (f *fakeTransport) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.failProbe {
		return errors.New("fake: probe timeout")
	}
	return nil
}

func (f *fakeTransport) set(fn func(f *fakeTransport)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeTransport) writeLog() []writeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]writeCall(nil), f.writes...)
}

func newTestManager(t *testing.T, tr *fakeTransport, clk clock.Clock) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		ReconnectInterval: 5 * time.Second,
		Timeout:           time.Second,
		Clock:             clk,
	}, func() (Transport, error) { return tr, nil })
	require.NoError(t, err)
	return m
}

// ---- tests ----

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(ManagerConfig{ReconnectInterval: time.Second, Timeout: time.Second}, nil)
	require.Error(t, err)

	factory := func() (Transport, error) { return &fakeTransport{}, nil }
	_, err = NewManager(ManagerConfig{Timeout: time.Second}, factory)
	require.Error(t, err)

	_, err = NewManager(ManagerConfig{ReconnectInterval: time.Second, Timeout: time.Second},
		func() (Transport, error) { return nil, errors.New("boom") })
	require.Error(t, err)
}

func TestConnect_NoopWhenConnected(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, tr, clock.NewMock())
	ctx := context.Background()

	require.True(t, m.Connect(ctx, false))
	require.True(t, m.Connect(ctx, false))
	require.Equal(t, 1, tr.connectCount())
	require.Equal(t, StateConnected, m.State())
}

func TestConnect_UnforcedIsRateLimited(t *testing.T) {
	tr := &fakeTransport{failConnect: true}
	clk := clock.NewMock()
	m := newTestManager(t, tr, clk)
	ctx := context.Background()

	require.False(t, m.Connect(ctx, false))
	require.False(t, m.Connect(ctx, false))
	require.Equal(t, 1, tr.connectCount(), "second unforced attempt within interval must not reach the transport")

	clk.Add(5 * time.Second)
	require.False(t, m.Connect(ctx, false))
	require.Equal(t, 2, tr.connectCount())
}

func TestConnect_ForcedBypassesLimit(t *testing.T) {
	tr := &fakeTransport{failConnect: true}
	clk := clock.NewMock()
	m := newTestManager(t, tr, clk)
	ctx := context.Background()

	require.False(t, m.Connect(ctx, true))
	require.False(t, m.Connect(ctx, true))
	require.Equal(t, 2, tr.connectCount())

	// the forced attempt counts as the last attempt
	require.False(t, m.Connect(ctx, false))
	require.Equal(t, 2, tr.connectCount())
}

func TestConnect_FailureLeavesDisconnected(t *testing.T) {
	tr := &fakeTransport{failConnect: true}
	m := newTestManager(t, tr, clock.NewMock())

	require.False(t, m.Connect(context.Background(), true))
	require.False(t, m.IsConnected())
	require.Equal(t, StateFailed, m.State())
	require.Contains(t, m.Health().LastError, "connect failed")
}

func TestWriteSignal_ChannelMapping(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, tr, clock.NewMock())
	ctx := context.Background()

	require.True(t, m.WriteSignal(ctx, SignalPrimaryOnly, true))
	require.True(t, m.WriteSignal(ctx, SignalBoth, false))
	require.False(t, m.WriteSignal(ctx, Signal(7), true))

	require.Equal(t, []writeCall{{channel: 0, value: true}, {channel: 1, value: false}}, tr.writeLog())
}

func TestWriteSignal_FailureMarksDisconnected(t *testing.T) {
	tr := &fakeTransport{}
	clk := clock.NewMock()
	m := newTestManager(t, tr, clk)
	ctx := context.Background()

	require.True(t, m.Connect(ctx, false))
	tr.set(func(f *fakeTransport) { f.failWrite = true })

	for i := 0; i < 3; i++ {
		require.False(t, m.WriteSignal(ctx, SignalPrimaryOnly, true))
		require.False(t, m.IsConnected(), "write %d", i+1)
	}

	// connect succeeds again once the transport recovers
	tr.set(func(f *fakeTransport) { f.failWrite = false })
	require.True(t, m.Connect(ctx, true))
	require.True(t, m.IsConnected())
	require.True(t, m.WriteSignal(ctx, SignalPrimaryOnly, true))
}

func TestWriteSignal_ConnectsFirst(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, tr, clock.NewMock())

	require.True(t, m.WriteSignal(context.Background(), SignalBoth, true))
	require.Equal(t, 1, tr.connectCount())
	require.True(t, m.IsConnected())
}

func TestProbe_FailureMarksDisconnected(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, tr, clock.NewMock())
	ctx := context.Background()

	require.False(t, m.Probe(ctx), "probe while disconnected")
	require.True(t, m.Connect(ctx, false))
	require.True(t, m.Probe(ctx))

	tr.set(func(f *fakeTransport) { f.failProbe = true })
	require.False(t, m.Probe(ctx))
	require.False(t, m.IsConnected())
}

func TestDisconnect(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, tr, clock.NewMock())
	ctx := context.Background()

	require.True(t, m.Connect(ctx, false))
	m.Disconnect(ctx)
	require.False(t, m.IsConnected())
	require.Equal(t, StateDisconnected, m.State())
}

func TestRun_RecreatesTransportAfterRepeatedFailures(t *testing.T) {
	var (
		mu     sync.Mutex
		built  []*fakeTransport
		failed = true
	)
	factory := func() (Transport, error) {
		mu.Lock()
		defer mu.Unlock()
		tr := &fakeTransport{failConnect: failed}
		built = append(built, tr)
		return tr, nil
	}

	m, err := NewManager(ManagerConfig{
		ReconnectInterval: time.Millisecond,
		Timeout:           time.Second,
	}, factory)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(built) >= 2
	}, 5*time.Second, time.Millisecond)

	// first transport saw 11 failed attempts before being discarded
	mu.Lock()
	require.Equal(t, recreateAfter+1, built[0].connectCount())
	failed = false
	mu.Unlock()

	cancel()
	<-done

	require.GreaterOrEqual(t, m.Health().Recreations, uint64(1))
}

func TestRun_ConnectsAndProbes(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, tr, clock.New())
	m.cfg.ReconnectInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.probes >= 2
	}, 5*time.Second, time.Millisecond)
	require.True(t, m.IsConnected())

	cancel()
	<-done
}
