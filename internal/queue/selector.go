package queue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tg_join_gate_bot/internal/domain"
)

// DirectiveKind enumerates the batch selection modes.
type DirectiveKind string

const (
	// SelectCount takes the N oldest entries.
	SelectCount DirectiveKind = "count"
	// SelectAll takes every queued entry.
	SelectAll DirectiveKind = "all"
	// SelectDate takes entries requested on one calendar day.
	SelectDate DirectiveKind = "date"
	// SelectRange takes entries requested within an inclusive day range.
	SelectRange DirectiveKind = "range"
)

// dateLayout is the operator-facing day format.
const dateLayout = "2006-01-02"

// Directive is a parsed batch selection instruction.
type Directive struct {
	Kind  DirectiveKind
	Count int
	From  time.Time
	To    time.Time
}

// ErrEmptyDirective is returned when no selection arguments were supplied.
var ErrEmptyDirective = errors.New("selection arguments are required")

// ParseDirective interprets the arguments of an accept command:
//
//	all                              every queued entry
//	<n>                              the n oldest entries (0 selects nothing)
//	date <YYYY-MM-DD>                entries requested that day
//	range <YYYY-MM-DD> <YYYY-MM-DD>  entries within the inclusive day range
func ParseDirective(args []string) (Directive, error) {
	cleaned := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if len(cleaned) == 0 {
		return Directive{}, ErrEmptyDirective
	}

	switch keyword := strings.ToLower(cleaned[0]); keyword {
	case "all":
		if len(cleaned) != 1 {
			return Directive{}, fmt.Errorf("all takes no arguments, got %d", len(cleaned)-1)
		}
		return Directive{Kind: SelectAll}, nil

	case "date":
		if len(cleaned) != 2 {
			return Directive{}, fmt.Errorf("date takes one %s argument", dateLayout)
		}
		day, err := time.ParseInLocation(dateLayout, cleaned[1], time.Local)
		if err != nil {
			return Directive{}, fmt.Errorf("invalid date %q: expected %s", cleaned[1], dateLayout)
		}
		return Directive{Kind: SelectDate, From: day, To: day}, nil

	case "range":
		if len(cleaned) != 3 {
			return Directive{}, fmt.Errorf("range takes two %s arguments", dateLayout)
		}
		from, err := time.ParseInLocation(dateLayout, cleaned[1], time.Local)
		if err != nil {
			return Directive{}, fmt.Errorf("invalid range start %q: expected %s", cleaned[1], dateLayout)
		}
		to, err := time.ParseInLocation(dateLayout, cleaned[2], time.Local)
		if err != nil {
			return Directive{}, fmt.Errorf("invalid range end %q: expected %s", cleaned[2], dateLayout)
		}
		if to.Before(from) {
			from, to = to, from
		}
		return Directive{Kind: SelectRange, From: from, To: to}, nil

	default:
		if len(cleaned) != 1 {
			return Directive{}, fmt.Errorf("unexpected arguments after %q", cleaned[0])
		}
		n, err := strconv.Atoi(keyword)
		if err != nil {
			return Directive{}, fmt.Errorf("expected a count, %q, %q or %q, got %q", "all", "date", "range", cleaned[0])
		}
		// Zero selects nothing; it is the status-only form of the command.
		if n < 0 {
			return Directive{}, fmt.Errorf("count must not be negative, got %d", n)
		}
		return Directive{Kind: SelectCount, Count: n}, nil
	}
}

// Select returns the entries matching the directive, preserving queue order.
// It never mutates the queue; callers remove selected entries once they act
// on them.
func Select(entries []domain.PendingRequest, directive Directive) ([]domain.PendingRequest, error) {
	switch directive.Kind {
	case SelectAll:
		out := make([]domain.PendingRequest, len(entries))
		copy(out, entries)
		return out, nil

	case SelectCount:
		if directive.Count < 0 {
			return nil, fmt.Errorf("count must not be negative, got %d", directive.Count)
		}
		n := directive.Count
		if n > len(entries) {
			n = len(entries)
		}
		out := make([]domain.PendingRequest, n)
		copy(out, entries[:n])
		return out, nil

	case SelectDate, SelectRange:
		if directive.From.IsZero() || directive.To.IsZero() {
			return nil, errors.New("date selection requires bounds")
		}
		from, to := directive.From, directive.To
		if to.Before(from) {
			from, to = to, from
		}
		var out []domain.PendingRequest
		for _, entry := range entries {
			day := dayOf(entry.RequestedAt)
			if !day.Before(from) && !day.After(to) {
				out = append(out, entry)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown selection kind %q", directive.Kind)
	}
}

// dayOf truncates a timestamp to its local calendar day, matching how
// operators express selection dates.
func dayOf(t time.Time) time.Time {
	local := t.In(time.Local)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}
