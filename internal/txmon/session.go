// internal/txmon/session.go
package txmon

import "time"

// Status of a monitored transaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusTimeout
}

// LedgerInfo captures the ledger-side details of a resolved transaction.
type LedgerInfo struct {
	Slot               uint64
	Confirmations      uint64
	ConfirmationStatus string
}

// StatusUpdate is delivered to status subscribers once per observable
// transition, with exactly one terminal update per session.
type StatusUpdate struct {
	Signature  string
	Status     Status
	Timestamp  time.Time
	LedgerInfo *LedgerInfo
	Error      string
}

// StatusCallback receives status transitions for a session.
type StatusCallback func(StatusUpdate)

// ErrorCallback receives transient check failures. A transient failure does
// not end the session; it consumes the same retry budget as a pending poll.
type ErrorCallback func(signature string, err error)

// session is the monitor-private record for one tracked transaction. Each
// session owns its subscriber lists; all fields are guarded by the monitor
// mutex.
type session struct {
	signature   string
	status      Status
	startTime   time.Time
	lastChecked time.Time
	endTime     time.Time
	attempts    int
	ledgerInfo  *LedgerInfo
	errMsg      string

	statusSubs []StatusCallback
	errorSubs  []ErrorCallback

	timer *time.Timer
	// generation invalidates late responses: a tick compares the value it was
	// scheduled under against the current one before touching the session.
	generation uint64
}

// Session is a read-only snapshot for diagnostics and tests.
type Session struct {
	Signature       string
	Status          Status
	StartTime       time.Time
	LastCheckedTime time.Time
	EndTime         time.Time
	Attempts        int
	LedgerInfo      *LedgerInfo
	ErrorMessage    string
}

func (s *session) snapshot() Session {
	snap := Session{
		Signature:       s.signature,
		Status:          s.status,
		StartTime:       s.startTime,
		LastCheckedTime: s.lastChecked,
		EndTime:         s.endTime,
		Attempts:        s.attempts,
		ErrorMessage:    s.errMsg,
	}
	if s.ledgerInfo != nil {
		info := *s.ledgerInfo
		snap.LedgerInfo = &info
	}
	return snap
}
