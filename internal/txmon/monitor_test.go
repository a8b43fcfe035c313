package txmon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastConfig(maxRetries int) Config {
	return Config{
		PollingInterval:   10 * time.Millisecond,
		MaxRetries:        maxRetries,
		Timeout:           10 * time.Second,
		BackoffMultiplier: 1.0,
	}
}

// scriptedChecker returns the scripted results in order, then repeats the
// last one.
type scriptedChecker struct {
	mu      sync.Mutex
	calls   int
	results []CheckResult
	errs    []error
}

func (c *scriptedChecker) Check(_ context.Context, _ string) (CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.results[i], err
}

func (c *scriptedChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// collector accumulates status updates and signals on the terminal one.
type collector struct {
	mu       sync.Mutex
	updates  []StatusUpdate
	terminal chan StatusUpdate
}

func newCollector() *collector {
	return &collector{terminal: make(chan StatusUpdate, 1)}
}

func (c *collector) onStatus(u StatusUpdate) {
	c.mu.Lock()
	c.updates = append(c.updates, u)
	c.mu.Unlock()
	if u.Status.Terminal() {
		c.terminal <- u
	}
}

func (c *collector) all() []StatusUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]StatusUpdate(nil), c.updates...)
}

func (c *collector) waitTerminal(t *testing.T) StatusUpdate {
	t.Helper()
	select {
	case u := <-c.terminal:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal update received")
		return StatusUpdate{}
	}
}

func TestMonitorPendingThenSuccess(t *testing.T) {
	sig := strings.Repeat("a", 64)
	checker := &scriptedChecker{results: []CheckResult{
		{Status: StatusPending},
		{Status: StatusPending},
		{Status: StatusSuccess, LedgerInfo: &LedgerInfo{Slot: 1234, Confirmations: 5}},
	}}
	m := New(checker, fastConfig(10), zap.NewNop(), nil)
	defer m.Destroy()

	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, nil))

	final := col.waitTerminal(t)
	assert.Equal(t, StatusSuccess, final.Status)
	require.NotNil(t, final.LedgerInfo)
	assert.Equal(t, uint64(1234), final.LedgerInfo.Slot)

	// Give any stray timer a chance to fire before counting.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 3, checker.callCount())

	session, ok := m.GetSession(sig)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, session.Status)
	assert.Equal(t, 3, session.Attempts)
	assert.False(t, session.EndTime.IsZero())
}

func TestMonitorSingleTerminalEmission(t *testing.T) {
	sig := strings.Repeat("b", 64)
	checker := &scriptedChecker{results: []CheckResult{
		{Status: StatusPending},
		{Status: StatusFailed, FailureReason: "insufficient funds for fee"},
	}}
	m := New(checker, fastConfig(10), zap.NewNop(), nil)
	defer m.Destroy()

	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, nil))

	final := col.waitTerminal(t)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "insufficient funds for fee", final.Error)

	time.Sleep(300 * time.Millisecond)

	terminals := 0
	updates := col.all()
	for i, u := range updates {
		if u.Status.Terminal() {
			terminals++
			assert.Equal(t, len(updates)-1, i, "terminal update must be the last one")
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestMonitorTimeoutOnMaxRetries(t *testing.T) {
	sig := strings.Repeat("c", 64)
	checker := &scriptedChecker{results: []CheckResult{{Status: StatusPending}}}
	m := New(checker, fastConfig(3), zap.NewNop(), nil)
	defer m.Destroy()

	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, nil))

	final := col.waitTerminal(t)
	assert.Equal(t, StatusTimeout, final.Status)
	assert.Equal(t, "Max retries exceeded", final.Error)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 3, checker.callCount(), "no checks may happen after the timeout")

	session, ok := m.GetSession(sig)
	require.True(t, ok)
	assert.Equal(t, 3, session.Attempts)
}

func TestMonitorTransientErrorsShareRetryBudget(t *testing.T) {
	sig := strings.Repeat("d", 64)
	checker := &scriptedChecker{
		results: []CheckResult{{}},
		errs:    []error{errors.New("Network timeout")},
	}
	m := New(checker, fastConfig(2), zap.NewNop(), nil)
	defer m.Destroy()

	var errCalls atomic.Int32
	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, func(_ string, err error) {
		errCalls.Add(1)
		assert.EqualError(t, err, "Network timeout")
	}))

	final := col.waitTerminal(t)
	assert.Equal(t, StatusTimeout, final.Status)
	assert.Equal(t, "Max retries exceeded", final.Error)
	assert.Equal(t, int32(2), errCalls.Load())
	assert.Equal(t, 2, checker.callCount())
}

func TestMonitorWallClockTimeout(t *testing.T) {
	sig := strings.Repeat("e", 64)
	checker := &scriptedChecker{results: []CheckResult{{Status: StatusPending}}}
	cfg := Config{
		PollingInterval:   5 * time.Millisecond,
		MaxRetries:        1000,
		Timeout:           60 * time.Millisecond,
		BackoffMultiplier: 1.0,
	}
	m := New(checker, cfg, zap.NewNop(), nil)
	defer m.Destroy()

	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, nil))

	final := col.waitTerminal(t)
	assert.Equal(t, StatusTimeout, final.Status)
	assert.Equal(t, "Transaction confirmation timeout", final.Error)
}

func TestMonitorDuplicateSessionRejected(t *testing.T) {
	sig := strings.Repeat("f", 64)
	checker := &scriptedChecker{results: []CheckResult{{Status: StatusPending}}}
	m := New(checker, fastConfig(100), zap.NewNop(), nil)
	defer m.Destroy()

	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, nil))

	var hijacked atomic.Bool
	err := m.StartMonitoring(sig, func(StatusUpdate) { hijacked.Store(true) }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	time.Sleep(100 * time.Millisecond)
	assert.False(t, hijacked.Load(), "second call must not attach callbacks")
	assert.NotEmpty(t, col.all(), "first session keeps polling")
}

func TestMonitorDestroySilencesCallbacks(t *testing.T) {
	sig := strings.Repeat("g", 64)
	checker := &scriptedChecker{results: []CheckResult{{Status: StatusPending}}}
	m := New(checker, fastConfig(1000), zap.NewNop(), nil)

	var fired atomic.Int32
	require.NoError(t, m.StartMonitoring(sig, func(StatusUpdate) { fired.Add(1) }, nil))

	// Let at least one poll happen, then destroy.
	require.Eventually(t, func() bool { return checker.callCount() > 0 }, time.Second, time.Millisecond)
	m.Destroy()
	m.Destroy() // idempotent

	after := fired.Load()
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, after, fired.Load(), "no callback may fire after Destroy")

	_, ok := m.GetSession(sig)
	assert.False(t, ok)
}

func TestMonitorStopDiscardsInFlightResult(t *testing.T) {
	sig := strings.Repeat("h", 64)
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	checker := CheckerFunc(func(_ context.Context, _ string) (CheckResult, error) {
		once.Do(func() { close(started) })
		<-release
		return CheckResult{Status: StatusSuccess}, nil
	})
	m := New(checker, fastConfig(100), zap.NewNop(), nil)
	defer m.Destroy()

	var fired atomic.Int32
	require.NoError(t, m.StartMonitoring(sig, func(StatusUpdate) { fired.Add(1) }, nil))

	<-started
	require.NoError(t, m.StopMonitoring(sig))
	close(release)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "late result must be discarded")
}

func TestMonitorOnStatusRequiresSession(t *testing.T) {
	m := New(&scriptedChecker{results: []CheckResult{{Status: StatusPending}}}, fastConfig(1), zap.NewNop(), nil)
	defer m.Destroy()

	assert.Error(t, m.OnStatus("missing", func(StatusUpdate) {}))
	assert.Error(t, m.OnError("missing", func(string, error) {}))
	assert.Error(t, m.StopMonitoring("missing"))
	assert.Error(t, m.StartMonitoring("", nil, nil))
}

func TestMonitorRestartAfterTerminal(t *testing.T) {
	sig := strings.Repeat("i", 64)
	checker := &scriptedChecker{results: []CheckResult{{Status: StatusSuccess}}}
	m := New(checker, fastConfig(5), zap.NewNop(), nil)
	defer m.Destroy()

	col := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col.onStatus, nil))
	col.waitTerminal(t)

	// A terminal session does not block a fresh one for the same signature.
	col2 := newCollector()
	require.NoError(t, m.StartMonitoring(sig, col2.onStatus, nil))
	final := col2.waitTerminal(t)
	assert.Equal(t, StatusSuccess, final.Status)
}
