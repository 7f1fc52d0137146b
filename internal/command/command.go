// Package command turns coordination-channel text into staff commands.
package command

// Command is one parsed staff command. The concrete types below are the only
// implementations.
type Command interface {
	// Token is the raw first word of the command line.
	Token() string
	isCommand()
}

// Ignore adds an ignore entry. Quiet ignores never notify the target.
type Ignore struct {
	Raw    string
	UserID uint64
	Reason *string
	Quiet  bool
}

// Unignore removes an ignore entry.
type Unignore struct {
	Raw    string
	UserID uint64
}

// MissingID is an ignore, qignore or unignore without a user id.
type MissingID struct {
	Raw string
}

// BadID is an ignore, qignore or unignore whose id argument is not a number.
type BadID struct {
	Raw string
	Arg string
}

// Reply sends a staff reply to an explicit user id.
type Reply struct {
	Raw    string
	UserID uint64
	Text   string
}

// UnknownTarget is a numeric reply whose id is out of range for any user.
type UnknownTarget struct {
	Raw string
}

// ReplyLast sends a staff reply to the last contacted user.
type ReplyLast struct {
	Text string
}

// ShowLast echoes the last contacted user.
type ShowLast struct{}

// FixPresence re-sets the bot presence.
type FixPresence struct{}

func (c Ignore) Token() string        { return c.Raw }
func (c Unignore) Token() string      { return c.Raw }
func (c MissingID) Token() string     { return c.Raw }
func (c BadID) Token() string         { return c.Raw }
func (c Reply) Token() string         { return c.Raw }
func (c UnknownTarget) Token() string { return c.Raw }
func (c ReplyLast) Token() string     { return "r" }
func (c ShowLast) Token() string      { return "m" }
func (c FixPresence) Token() string   { return "fixgame" }

func (Ignore) isCommand()        {}
func (Unignore) isCommand()      {}
func (MissingID) isCommand()     {}
func (BadID) isCommand()         {}
func (Reply) isCommand()         {}
func (UnknownTarget) isCommand() {}
func (ReplyLast) isCommand()     {}
func (ShowLast) isCommand()      {}
func (FixPresence) isCommand()   {}
