// Package attachment checks attachment sizes against platform limits and
// stages attachments for re-upload.
package attachment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/dustin/go-humanize"
)

// ErrTooLarge is returned when an attachment exceeds the hard size limit.
var ErrTooLarge = errors.New("attachment too large")

const (
	DefaultLimit  int64 = 0x800000
	DefaultMargin int64 = 0x1000
	DefaultSlack  int64 = 0x800
)

// Limits are the size thresholds, in bytes.
type Limits struct {
	// Limit is the hard maximum; anything above it blocks the relay.
	Limit int64
	// Margin is the band below Limit that only produces a warning.
	Margin int64
	// Slack is subtracted from Limit for the recommended maximum.
	Slack int64
}

// DefaultLimits returns the platform defaults.
func DefaultLimits() Limits {
	return Limits{Limit: DefaultLimit, Margin: DefaultMargin, Slack: DefaultSlack}
}

// RecommendedMax is the size staff should stay under.
func (l Limits) RecommendedMax() int64 {
	return l.Limit - l.Slack
}

// Report is the outcome of classifying all attachments of one message.
type Report struct {
	Errors   []string
	Warnings []string
	limits   Limits
}

// Classify checks every attachment. A size of exactly Limit is accepted.
func Classify(atts []domain.Attachment, limits Limits) Report {
	r := Report{limits: limits}
	for _, a := range atts {
		name := "`" + escapeMarkdown(a.Filename) + "`"
		switch {
		case a.Size > limits.Limit:
			r.Errors = append(r.Errors, name+" is too large to send in a direct message.")
		case a.Size > limits.Limit-limits.Margin:
			r.Warnings = append(r.Warnings, name+" is very close to the file size limit of the destination. It may fail to send.")
		}
	}
	return r
}

// HasErrors reports whether any attachment blocks the relay.
func (r Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err returns ErrTooLarge when the report blocks the relay.
func (r Report) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %d of the attachments", ErrTooLarge, len(r.Errors))
}

// ErrorText is the aggregated hard-error message, or "" when there is none.
func (r Report) ErrorText() string {
	return r.render(r.Errors)
}

// WarningText is the aggregated warning message, or "" when there is none.
func (r Report) WarningText() string {
	return r.render(r.Warnings)
}

func (r Report) render(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	fmt.Fprintf(&b, "\nLimit: %d bytes (%s)", r.limits.Limit, humanize.IBytes(uint64(r.limits.Limit)))
	rec := r.limits.RecommendedMax()
	fmt.Fprintf(&b, "\nRecommended Maximum: %d bytes (%s)", rec, humanize.IBytes(uint64(rec)))
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// LinkList renders attachments as a bulleted list of markdown links.
func LinkList(atts []domain.Attachment) string {
	lines := make([]string, 0, len(atts))
	for _, a := range atts {
		lines = append(lines, fmt.Sprintf("• [%s](%s) (%d bytes)", a.Filename, a.URL, a.Size))
	}
	return strings.Join(lines, "\n")
}
