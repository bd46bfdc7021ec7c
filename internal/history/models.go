package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrNonFinite indicates a NaN or infinite error value was rejected before storage.
	ErrNonFinite = errors.New("history: error value must be finite")
	// ErrEmptyModel indicates a write without a model name.
	ErrEmptyModel = errors.New("history: model name required")
)

// DateLayout is the calendar-day key format used throughout the history file.
const DateLayout = "2006-01-02"

// Reserved keys inside a persisted observation entry; everything else is an extra metric.
const (
	keyError     = "error"
	keyTimestamp = "timestamp"
)

// timestampLayouts accepts both our own RFC3339 timestamps and the bare
// ISO-8601 form older history files carry.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Observation is one model's forecast error for one calendar date. The
// (model, date) key lives outside the value, as map keys in History.
type Observation struct {
	Error     float64
	Timestamp time.Time
	Extra     map[string]float64
}

// MarshalJSON flattens extra metrics as sibling keys of error/timestamp.
func (o Observation) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(o.Extra)+2)
	for k, v := range o.Extra {
		if k == keyError || k == keyTimestamp {
			continue
		}
		payload[k] = v
	}
	payload[keyError] = o.Error
	payload[keyTimestamp] = o.Timestamp.Format(time.RFC3339Nano)
	return json.Marshal(payload)
}

// UnmarshalJSON restores the flattened entry; non-numeric sibling keys are dropped.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	o.Extra = nil
	for key, raw := range payload {
		switch key {
		case keyError:
			if err := json.Unmarshal(raw, &o.Error); err != nil {
				return fmt.Errorf("decode error value: %w", err)
			}
		case keyTimestamp:
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("decode timestamp: %w", err)
			}
			o.Timestamp = parseTimestamp(value)
		default:
			var value float64
			if err := json.Unmarshal(raw, &value); err != nil {
				continue
			}
			if o.Extra == nil {
				o.Extra = make(map[string]float64)
			}
			o.Extra[key] = value
		}
	}
	return nil
}

func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// ModelHistory maps ISO date keys to observations for a single model.
type ModelHistory map[string]Observation

// History is the full persisted structure: model name to dated observations.
type History map[string]ModelHistory

// Upsert stores obs under (model, date), replacing any prior entry for the key.
func (h History) Upsert(model string, date time.Time, obs Observation) {
	entries, ok := h[model]
	if !ok {
		entries = make(ModelHistory)
		h[model] = entries
	}
	entries[date.Format(DateLayout)] = obs
}

// LatestDate returns the most recent date present anywhere in the structure.
// ISO date keys compare lexicographically in chronological order.
func (h History) LatestDate() (time.Time, bool) {
	var latest string
	for _, entries := range h {
		for key := range entries {
			if key > latest {
				latest = key
			}
		}
	}
	if latest == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(DateLayout, latest)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// PruneBefore removes every observation dated strictly before cutoff and
// reports how many entries were dropped. The cutoff day itself survives.
func (h History) PruneBefore(cutoff time.Time) int {
	cutoffKey := cutoff.Format(DateLayout)
	removed := 0
	for model, entries := range h {
		for key := range entries {
			if key < cutoffKey {
				delete(entries, key)
				removed++
			}
		}
		h[model] = entries
	}
	return removed
}

// Models lists model names in sorted order.
func (h History) Models() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrorPoint pairs a calendar date with its recorded error percentage.
type ErrorPoint struct {
	Date  time.Time
	Error float64
}

// Trend labels the qualitative direction of recent errors within a window.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Statistics summarises a model's errors over a window. Count == 0 is the
// explicit no-data result; the remaining fields are meaningless then.
type Statistics struct {
	Count          int
	Avg            float64
	Min            float64
	Max            float64
	AboveThreshold int
	Trend          Trend
}

// HasData reports whether any observations fell inside the window.
func (s Statistics) HasData() bool {
	return s.Count > 0
}
