package sim

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// LogEntry is one recorded event during a simulation run.
type LogEntry struct {
	Tick     int
	Troop    string  // label e.g. "T0", or "--" for global events
	Category string  // brain, state, move, world
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] T0   brain     retarget_wall    detour of 91 waypoints exceeds 50
func (e LogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-4s %-9s %-16s %s",
		e.Tick, e.Troop, e.Category, e.Key, e.Value)
}

// Log collects structured events. It is unbounded and safe for concurrent
// use, since brains may tick in parallel.
type Log struct {
	mu      sync.Mutex
	entries []LogEntry
	verbose bool
}

// NewLog creates a Log. If verbose is true, per-tick position entries are
// also recorded.
func NewLog(verbose bool) *Log {
	return &Log{verbose: verbose}
}

// Verbose reports whether per-tick entries are kept.
func (l *Log) Verbose() bool { return l.verbose }

// Add records a new entry.
func (l *Log) Add(tick int, troop, category, key, value string, numVal float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{
		Tick:     tick,
		Troop:    troop,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (l *Log) AddVerbose(tick int, troop, category, key, value string, numVal float64) {
	if !l.verbose {
		return
	}
	l.Add(tick, troop, category, key, value, numVal)
}

// Entries returns a copy of all recorded entries, ordered by tick. Entries of
// the same tick keep insertion order.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	l.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Since returns the entries recorded after the first n, in insertion order.
// Viewers use it to stream new events without rescanning the log.
func (l *Log) Since(n int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil
	}
	out := make([]LogEntry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (l *Log) Filter(category, key string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterTroop returns entries for a specific troop label.
func (l *Log) FilterTroop(label string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Troop == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick] inclusive.
func (l *Log) FilterTickRange(fromTick, toTick int) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (l *Log) CountCategory(category, key string) int {
	return len(l.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (l *Log) LastOf(category, key string) (LogEntry, bool) {
	entries := l.Filter(category, key)
	if len(entries) == 0 {
		return LogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (l *Log) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range l.Filter(category, key) {
		if valueSubstr == "" || strings.Contains(e.Value, valueSubstr) {
			return true
		}
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (l *Log) Format() string {
	return formatEntries(l.Entries())
}

// FormatRange returns a log string filtered to a tick range.
func (l *Log) FormatRange(fromTick, toTick int) string {
	return formatEntries(l.FilterTickRange(fromTick, toTick))
}

func formatEntries(entries []LogEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a short human-readable summary of a snapshot.
func Summary(snap Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Summary at T=%03d ---\n", snap.Tick)

	counts := map[string]int{}
	for _, tr := range snap.Troops {
		counts[tr.State.String()]++
	}
	states := make([]string, 0, len(counts))
	for s := range counts {
		states = append(states, s)
	}
	sort.Strings(states)
	sb.WriteString("States: ")
	for _, s := range states {
		fmt.Fprintf(&sb, "%s=%d  ", s, counts[s])
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "Structures: %d\n", snap.Structures)

	for _, tr := range snap.Troops {
		target := "none"
		if tr.HasTarget {
			target = fmt.Sprintf("%s @ (%.0f,%.0f)", tr.TargetKind, tr.TargetPoint.X(), tr.TargetPoint.Y())
		}
		fmt.Fprintf(&sb, "%-4s (%.1f,%.1f) %-8s target=%s route=%d/%d\n",
			tr.Label, tr.Pos.X(), tr.Pos.Y(), tr.State, target, tr.Cursor, tr.Waypoints)
	}
	return sb.String()
}
