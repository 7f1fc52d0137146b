package domain

// SessionSnapshot is a read-only copy of the relay session state.
type SessionSnapshot struct {
	Ready         bool    `json:"ready"`
	LastContacted *uint64 `json:"last_contacted,string,omitempty"`
}
