// internal/txmon/monitor.go
package txmon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// checkTimeout bounds a single status probe so a stuck RPC node cannot hold
// a session's retry budget hostage.
const checkTimeout = 15 * time.Second

// Monitor tracks in-flight transactions to a terminal status by polling an
// injected StatusChecker. Each session polls on its own timer with the
// configured backoff; a transient check failure consumes the same retry and
// timeout budget as a successful-but-pending poll, so a flaky network can
// never produce an unbounded retry loop.
//
// A Monitor instance is self-contained; multiple instances may coexist.
type Monitor struct {
	mu       sync.Mutex
	sessions map[string]*session
	nextGen  uint64

	checker StatusChecker
	config  Config
	logger  *zap.Logger
	metrics *Metrics
}

func New(checker StatusChecker, config Config, logger *zap.Logger, reg prometheus.Registerer) *Monitor {
	return &Monitor{
		sessions: make(map[string]*session),
		checker:  checker,
		config:   config.withDefaults(),
		logger:   logger.Named("tx-monitor"),
		metrics:  NewMetrics(reg),
	}
}

// StartMonitoring creates a pending session for signature and schedules the
// first poll immediately. It fails if the signature already has an active
// (non-terminal) session; the existing session is left untouched.
func (m *Monitor) StartMonitoring(signature string, onStatus StatusCallback, onError ErrorCallback) error {
	if signature == "" {
		return fmt.Errorf("transaction signature cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[signature]; ok && !existing.status.Terminal() {
		return fmt.Errorf("monitoring session already exists for %s", signature)
	}

	m.nextGen++
	s := &session{
		signature:  signature,
		status:     StatusPending,
		startTime:  time.Now(),
		generation: m.nextGen,
	}
	if onStatus != nil {
		s.statusSubs = append(s.statusSubs, onStatus)
	}
	if onError != nil {
		s.errorSubs = append(s.errorSubs, onError)
	}
	m.sessions[signature] = s

	gen := s.generation
	s.timer = time.AfterFunc(0, func() { m.tick(signature, gen) })

	m.logger.Info("Monitoring started",
		zap.String("signature", signature),
		zap.Duration("polling_interval", m.config.PollingInterval),
		zap.Int("max_retries", m.config.MaxRetries))
	return nil
}

// StopMonitoring cancels the session's pending timer and drops the session.
// An in-flight check is not aborted; its late result is discarded because
// the session record no longer exists when it lands.
func (m *Monitor) StopMonitoring(signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[signature]
	if !ok {
		return fmt.Errorf("no monitoring session for %s", signature)
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(m.sessions, signature)

	m.logger.Info("Monitoring stopped", zap.String("signature", signature))
	return nil
}

// OnStatus registers an additional status subscriber on an existing session.
func (m *Monitor) OnStatus(signature string, cb StatusCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[signature]
	if !ok {
		return fmt.Errorf("no monitoring session for %s", signature)
	}
	s.statusSubs = append(s.statusSubs, cb)
	return nil
}

// OnError registers an additional error subscriber on an existing session.
func (m *Monitor) OnError(signature string, cb ErrorCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[signature]
	if !ok {
		return fmt.Errorf("no monitoring session for %s", signature)
	}
	s.errorSubs = append(s.errorSubs, cb)
	return nil
}

// GetSession returns a read-only snapshot of the session, terminal or not.
func (m *Monitor) GetSession(signature string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[signature]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// ActiveSessions returns the signatures of all non-terminal sessions.
func (m *Monitor) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sigs []string
	for sig, s := range m.sessions {
		if !s.status.Terminal() {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

// Destroy cancels every pending timer and clears all sessions and
// callbacks. It is idempotent and safe to call multiple times; no callback
// fires after it returns.
func (m *Monitor) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
	}
	if len(m.sessions) > 0 {
		m.logger.Info("Monitor destroyed", zap.Int("sessions_dropped", len(m.sessions)))
	}
	m.sessions = make(map[string]*session)
}

// activeLocked returns the session for signature only if it is the same
// incarnation the tick was scheduled under and has not reached a terminal
// status. Callers must hold m.mu.
func (m *Monitor) activeLocked(signature string, gen uint64) (*session, bool) {
	s, ok := m.sessions[signature]
	if !ok || s.generation != gen || s.status.Terminal() {
		return nil, false
	}
	return s, true
}

// tick performs one poll for the session. All session state transitions
// happen here under m.mu; subscriber callbacks are invoked outside the lock
// and, per session, always from this serialized tick chain, so for a single
// session callbacks fire in attempt order.
func (m *Monitor) tick(signature string, gen uint64) {
	m.mu.Lock()
	s, ok := m.activeLocked(signature, gen)
	if !ok {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	if now.Sub(s.startTime) > m.config.Timeout {
		m.finishLocked(s, StatusTimeout, nil, "Transaction confirmation timeout")
		return
	}
	if s.attempts >= m.config.MaxRetries {
		m.finishLocked(s, StatusTimeout, nil, "Max retries exceeded")
		return
	}

	s.attempts++
	s.lastChecked = now
	m.mu.Unlock()

	m.metrics.pollCounter.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	result, err := m.checker.Check(ctx, signature)
	cancel()

	m.mu.Lock()
	s, ok = m.activeLocked(signature, gen)
	if !ok {
		// Session dropped or replaced while the check was in flight.
		m.mu.Unlock()
		return
	}

	if err != nil {
		attempt := s.attempts
		errSubs := append([]ErrorCallback(nil), s.errorSubs...)
		m.mu.Unlock()

		m.logger.Warn("Status check failed",
			zap.String("signature", signature),
			zap.Int("attempt", attempt),
			zap.Error(err))
		for _, cb := range errSubs {
			cb(signature, err)
		}
		m.scheduleNext(signature, gen)
		return
	}

	if result.LedgerInfo != nil {
		s.ledgerInfo = result.LedgerInfo
	}

	if result.Status.Terminal() {
		m.finishLocked(s, result.Status, result.LedgerInfo, result.FailureReason)
		return
	}

	update := StatusUpdate{
		Signature:  signature,
		Status:     StatusPending,
		Timestamp:  now,
		LedgerInfo: s.ledgerInfo,
	}
	statusSubs := append([]StatusCallback(nil), s.statusSubs...)
	m.mu.Unlock()

	for _, cb := range statusSubs {
		cb(update)
	}
	m.scheduleNext(signature, gen)
}

// scheduleNext arms the session timer for the next poll using the backoff
// formula, unless the session was dropped while callbacks ran.
func (m *Monitor) scheduleNext(signature string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.activeLocked(signature, gen)
	if !ok {
		return
	}
	delay := m.config.nextDelay(s.attempts - 1)
	s.timer = time.AfterFunc(delay, func() { m.tick(signature, gen) })
}

// finishLocked transitions the session to a terminal status and emits the
// single terminal update. The session record stays around for GetSession
// until StopMonitoring or Destroy removes it. Releases m.mu.
func (m *Monitor) finishLocked(s *session, status Status, info *LedgerInfo, errMsg string) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.status = status
	s.endTime = time.Now()
	if info != nil {
		s.ledgerInfo = info
	}
	s.errMsg = errMsg

	update := StatusUpdate{
		Signature:  s.signature,
		Status:     status,
		Timestamp:  s.endTime,
		LedgerInfo: s.ledgerInfo,
		Error:      errMsg,
	}
	statusSubs := append([]StatusCallback(nil), s.statusSubs...)
	start := s.startTime
	m.mu.Unlock()

	m.metrics.trackTerminal(status, start)
	switch status {
	case StatusSuccess:
		m.logger.Info("Transaction confirmed",
			zap.String("signature", s.signature),
			zap.Int("attempts", s.attempts))
	case StatusFailed:
		m.logger.Warn("Transaction failed on ledger",
			zap.String("signature", s.signature),
			zap.String("reason", errMsg))
	case StatusTimeout:
		m.logger.Warn("Monitoring timed out",
			zap.String("signature", s.signature),
			zap.Int("attempts", s.attempts),
			zap.String("reason", errMsg))
	}

	for _, cb := range statusSubs {
		cb(update)
	}
}
