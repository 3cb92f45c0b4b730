package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MaxErrors is the per-resource error budget. A resource that accumulates
// this many errors is skipped by selection until the next session reset.
const MaxErrors = 3

// ErrMissingIdentity is returned by New when a record has no identifier.
var ErrMissingIdentity = errors.New("resource record missing identifier")

// Pool holds an ordered collection of resources of one kind and hands them
// out round-robin. Insertion order is fixed at construction and never
// changes; fairness comes from the rotation cursor, which advances once per
// inspected slot and wraps modulo the pool size.
//
// A Pool is not safe for concurrent use. The orchestrator owns it for the
// duration of a pass.
type Pool[R Resource] struct {
	records []R
	byID    map[string]R
	cursor  int
	quota   int
	logger  *slog.Logger
}

// New builds a pool over records in the given order. quota is the
// per-resource usage ceiling for one session. It fails if any record is
// missing its identifier; a pool is never partially loaded.
func New[R Resource](records []R, quota int, logger *slog.Logger) (*Pool[R], error) {
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[string]R, len(records))
	for i, r := range records {
		id := r.PoolState().ID
		if id == "" {
			return nil, fmt.Errorf("record %d: %w", i, ErrMissingIdentity)
		}
		byID[id] = r
	}
	return &Pool[R]{
		records: records,
		byID:    byID,
		quota:   quota,
		logger:  logger,
	}, nil
}

// Len returns the number of records in the pool.
func (p *Pool[R]) Len() int {
	return len(p.records)
}

// Quota returns the per-resource usage ceiling.
func (p *Pool[R]) Quota() int {
	return p.quota
}

// ByID returns the record with the given identifier.
func (p *Pool[R]) ByID(id string) (R, bool) {
	r, ok := p.byID[id]
	return r, ok
}

// Next returns the next usable resource in round-robin order, or false if no
// resource qualifies. It inspects at most Len() candidates starting at the
// current cursor; the cursor advances past every inspected slot, so an
// exhausted pool terminates the scan after one full cycle and a usable pool
// never favors slot zero.
func (p *Pool[R]) Next() (R, bool) {
	var zero R
	for inspected := 0; inspected < len(p.records); inspected++ {
		r := p.records[p.cursor%len(p.records)]
		p.cursor = (p.cursor + 1) % len(p.records)

		if p.Usable(r.PoolState()) {
			p.logger.Debug("selected resource", "id", r.PoolState().ID)
			return r, true
		}
	}
	p.logger.Warn("no usable resources in pool",
		"total", len(p.records), "quota", p.quota)
	return zero, false
}

// Usable reports whether a resource currently satisfies the eligibility
// predicate: enabled, under quota, under the error budget, and not
// auth-rejected.
func (p *Pool[R]) Usable(s *State) bool {
	if !s.Enabled {
		return false
	}
	if s.UsageCount >= p.quota {
		return false
	}
	if s.ErrorCount >= MaxErrors {
		return false
	}
	return s.Auth != AuthRejected
}

// MarkUsed increments the usage counter for id by n and stamps the time of
// use. An unknown id is a no-op.
func (p *Pool[R]) MarkUsed(id string, n int) {
	r, ok := p.byID[id]
	if !ok {
		return
	}
	s := r.PoolState()
	s.UsageCount += n
	s.LastUsed = time.Now()
	p.logger.Debug("resource used", "id", id, "usage", s.UsageCount, "quota", p.quota)
}

// MarkError increments the error counter for id. msg is the triggering
// failure, recorded for operator triage. An unknown id is a no-op.
func (p *Pool[R]) MarkError(id, msg string) {
	r, ok := p.byID[id]
	if !ok {
		return
	}
	s := r.PoolState()
	s.ErrorCount++
	p.logger.Warn("resource error", "id", id, "errors", s.ErrorCount, "cause", msg)
}

// MarkAuth records the outcome of an authentication attempt. A rejected
// resource is never selected again until ResetSession.
func (p *Pool[R]) MarkAuth(id string, ok bool) {
	r, found := p.byID[id]
	if !found {
		return
	}
	s := r.PoolState()
	if ok {
		s.Auth = AuthOK
	} else {
		s.Auth = AuthRejected
	}
	p.logger.Info("resource auth", "id", id, "result", s.Auth.String())
}

// ResetSession zeroes all session counters, clears auth state and rewinds
// the cursor. Used between independent runs, never mid-run.
func (p *Pool[R]) ResetSession() {
	for _, r := range p.records {
		s := r.PoolState()
		s.UsageCount = 0
		s.ErrorCount = 0
		s.Auth = AuthUnknown
		s.LastUsed = time.Time{}
	}
	p.cursor = 0
	p.logger.Info("pool session counters reset", "total", len(p.records))
}

// Summary is a read-only aggregate view of the pool.
type Summary struct {
	Total        int `json:"total" yaml:"total"`
	Enabled      int `json:"enabled" yaml:"enabled"`
	Usable       int `json:"usable" yaml:"usable"`
	TotalUsage   int `json:"total_usage" yaml:"total_usage"`
	WithErrors   int `json:"with_errors" yaml:"with_errors"`
	AuthRejected int `json:"auth_rejected" yaml:"auth_rejected"`
}

// Summary aggregates the pool's current state. It has no side effects.
func (p *Pool[R]) Summary() Summary {
	var sum Summary
	sum.Total = len(p.records)
	for _, r := range p.records {
		s := r.PoolState()
		if s.Enabled {
			sum.Enabled++
		}
		if p.Usable(s) {
			sum.Usable++
		}
		sum.TotalUsage += s.UsageCount
		if s.ErrorCount > 0 {
			sum.WithErrors++
		}
		if s.Auth == AuthRejected {
			sum.AuthRejected++
		}
	}
	return sum
}
