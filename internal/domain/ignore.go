package domain

// IgnoreEntry is one row of the persisted ignore list.
type IgnoreEntry struct {
	UserID uint64  `json:"user_id,string"`
	Quiet  bool    `json:"quiet"`
	Reason *string `json:"reason,omitempty"`
}

// ReasonText returns the reason or an empty string.
func (e *IgnoreEntry) ReasonText() string {
	if e.Reason == nil {
		return ""
	}
	return *e.Reason
}
