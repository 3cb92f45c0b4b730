package pool

import "time"

// AuthState tracks the authentication outcome for a resource within the
// current session.
type AuthState int

const (
	AuthUnknown AuthState = iota
	AuthOK
	AuthRejected
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case AuthUnknown:
		return "unknown"
	case AuthOK:
		return "ok"
	case AuthRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

// State is the rotation bookkeeping shared by every rotating resource kind
// (generation accounts, API credential pairs). Counters are session-scoped
// and are not persisted.
type State struct {
	ID      string
	Enabled bool

	UsageCount int
	ErrorCount int
	Auth       AuthState
	LastUsed   time.Time
}

// Resource is implemented by any record that can live in a Pool.
type Resource interface {
	PoolState() *State
}
