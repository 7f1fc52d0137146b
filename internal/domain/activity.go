package domain

import "time"

// ActivityKind names a relay event published to operators.
type ActivityKind string

const (
	ActivityRelayed     ActivityKind = "relayed"
	ActivityAutoIgnored ActivityKind = "auto_ignored"
	ActivityIgnored     ActivityKind = "ignored"
	ActivityUnignored   ActivityKind = "unignored"
	ActivityReplied     ActivityKind = "replied"
	ActivityReplyFailed ActivityKind = "reply_failed"
)

// Activity is a single entry of the live relay activity feed.
type Activity struct {
	Kind    ActivityKind `json:"kind"`
	UserID  uint64       `json:"user_id,string"`
	StaffID uint64       `json:"staff_id,string,omitempty"`
	Detail  string       `json:"detail,omitempty"`
	At      time.Time    `json:"at"`
}
