// Package session implements the account/session monitor: polling the
// terminal bridge for account identity changes and significant balance/
// equity/margin moves, and the Session lifecycle those changes drive.
package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// AccountSnapshot mirrors spec.md §3's AccountSnapshot data model.
type AccountSnapshot struct {
	Login       int64
	Server      string
	Company     string
	Name        string
	Currency    string
	Balance     float64
	Equity      float64
	MarginLevel float64
	Timestamp   time.Time
}

// SameAccount reports identity equality on the (login, server, company)
// triple.
func (s AccountSnapshot) SameAccount(other *AccountSnapshot) bool {
	if other == nil {
		return false
	}
	return s.Login == other.Login && s.Server == other.Server && s.Company == other.Company
}

// ChangedSignificantly reports whether balance/equity moved by more than
// 10%, or margin level by more than 5 percentage points, relative to other.
func (s AccountSnapshot) ChangedSignificantly(other *AccountSnapshot) bool {
	if other == nil {
		return true
	}
	balanceChange := math.Abs(s.Balance-other.Balance) / math.Max(math.Abs(other.Balance), 1)
	equityChange := math.Abs(s.Equity-other.Equity) / math.Max(math.Abs(other.Equity), 1)
	marginChange := math.Abs(s.MarginLevel - other.MarginLevel)
	return balanceChange > 0.10 || equityChange > 0.10 || marginChange > 5
}

// Session is one continuous connection to a specific account on a specific
// broker; its ID changes whenever the account identity changes.
type Session struct {
	Account AccountSnapshot
	ID      string
}

// NewSessionID derives session_id = hash(login, server) per spec.md §3.
func NewSessionID(login int64, server string) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%d:%s", login, server)))
	return hex.EncodeToString(sum[:8])
}

// AccountReader is the subset of the terminal bridge the monitor polls.
type AccountReader interface {
	AccountInfo(ctx context.Context) (*AccountSnapshot, error)
}

// EventKind distinguishes the three events the monitor can emit.
type EventKind int

const (
	AccountChanged EventKind = iota
	Disconnected
	SignificantChange
)

// Event is published by the monitor whenever EventKind's condition fires.
type Event struct {
	Kind EventKind
	Old  *AccountSnapshot
	New  *AccountSnapshot
}

// DefaultPollInterval matches spec.md §4.6's "every 5s (configurable)".
const DefaultPollInterval = 5 * time.Second

// Monitor is a background worker polling AccountReader on PollInterval,
// publishing Events through Publish. Stop is cooperative: Run returns
// promptly once ctx is cancelled.
type Monitor struct {
	reader       AccountReader
	PollInterval time.Duration
	Publish      func(Event)

	mu       sync.RWMutex
	last     *AccountSnapshot
}

// New constructs a Monitor. publish may be nil, in which case events are
// simply dropped (useful in tests that only inspect CurrentSnapshot).
func New(reader AccountReader, publish func(Event)) *Monitor {
	if publish == nil {
		publish = func(Event) {}
	}
	return &Monitor{reader: reader, PollInterval: DefaultPollInterval, Publish: publish}
}

// CurrentSnapshot returns the last captured snapshot, or nil if the bridge
// has never been readable.
func (m *Monitor) CurrentSnapshot() *AccountSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run blocks, polling until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	snapshot, err := m.reader.AccountInfo(ctx)

	m.mu.Lock()
	old := m.last
	if err != nil || snapshot == nil {
		hadOne := old != nil
		m.last = nil
		m.mu.Unlock()
		if hadOne {
			m.Publish(Event{Kind: Disconnected, Old: old})
		}
		return
	}

	changedIdentity := old == nil || !snapshot.SameAccount(old)
	changedSignificantly := !changedIdentity && snapshot.ChangedSignificantly(old)
	m.last = snapshot
	m.mu.Unlock()

	if changedIdentity && old != nil {
		m.Publish(Event{Kind: AccountChanged, Old: old, New: snapshot})
		return
	}
	if changedSignificantly {
		m.Publish(Event{Kind: SignificantChange, Old: old, New: snapshot})
	}
}
