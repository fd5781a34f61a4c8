// Package report implements the read-only projections behind the showlog,
// stats, and analytics commands. All output is human-readable text rendered
// for the mesh-side reply channel; an empty period is valid and yields
// zero counts rather than an error.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-js8call-bridge/internal/store"
)

const (
	// MaxLogEntries is the hard cap on the recent-log view.
	MaxLogEntries = 50

	// DefaultLogEntries is used when the caller gives no count.
	DefaultLogEntries = 10

	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	stampLayout = "2006-01-02 15:04:05"
)

// UserCounter supplies the current distribution-list size.
type UserCounter interface {
	Count() int
}

// Reporter renders reporting views over the storage engine.
type Reporter struct {
	Store *store.Store
	Users UserCounter

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (r *Reporter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RecentLog renders the last n messages across all three streams, oldest
// first. n is clamped to MaxLogEntries; non-positive values fall back to
// DefaultLogEntries.
func (r *Reporter) RecentLog(n int) (string, error) {
	if n <= 0 {
		n = DefaultLogEntries
	}
	if n > MaxLogEntries {
		n = MaxLogEntries
	}

	entries, err := r.Store.RecentLog(n)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d messages:\n\n", len(entries))
	// Newest-first from storage, oldest-first for display.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(&b, "[%s] From %s to %s: %s\n\n",
			e.Timestamp.UTC().Format(stampLayout), e.Sender, e.Receiver, e.Body)
	}
	return b.String(), nil
}

// Stats renders the current user count, plus a day snapshot or month
// average when period is "day" or "month".
func (r *Reporter) Stats(period string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current users: %d\n", r.Users.Count())

	switch period {
	case "day":
		date := r.now().UTC().Format(dateLayout)
		count, ok, err := r.Store.StatForDay(date)
		if err != nil {
			return "", err
		}
		if ok {
			fmt.Fprintf(&b, "Users today: %d\n", count)
		} else {
			b.WriteString("No data for today\n")
		}
	case "month":
		month := r.now().UTC().Format(monthLayout)
		avg, ok, err := r.Store.AvgStatForMonth(month)
		if err != nil {
			return "", err
		}
		if ok {
			fmt.Fprintf(&b, "Average users this month: %.2f\n", avg)
		} else {
			b.WriteString("No data for this month\n")
		}
	}

	return b.String(), nil
}

// Analytics renders per-stream message counts: all-time by default, the
// current calendar day for "day", the current Monday-to-Sunday week for
// "week". Zero counts are normal output.
func (r *Reporter) Analytics(period string) (string, error) {
	var b strings.Builder
	b.WriteString("Usage Statistics:\n")

	switch period {
	case "day":
		from, to := dayWindow(r.now().UTC())
		c, err := r.Store.StreamCountsBetween(from, to)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Messages today: %d\n", c.Direct)
		fmt.Fprintf(&b, "Group messages today: %d\n", c.Group)
		fmt.Fprintf(&b, "Urgent messages today: %d\n", c.Urgent)
	case "week":
		from, to := weekWindow(r.now().UTC())
		c, err := r.Store.StreamCountsBetween(from, to)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Messages this week: %d\n", c.Direct)
		fmt.Fprintf(&b, "Group messages this week: %d\n", c.Group)
		fmt.Fprintf(&b, "Urgent messages this week: %d\n", c.Urgent)
	default:
		c, err := r.Store.StreamTotals()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Total direct messages: %d\n", c.Direct)
		fmt.Fprintf(&b, "Total group messages: %d\n", c.Group)
		fmt.Fprintf(&b, "Total urgent messages: %d\n", c.Urgent)
	}

	return b.String(), nil
}

// dayWindow returns the half-open window covering t's calendar day.
func dayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// weekWindow returns the half-open window covering t's Monday-to-Sunday
// week.
func weekWindow(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}
