package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the outcome of one application attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ApplicationRecord is created once per attempted listing and never modified.
type ApplicationRecord struct {
	JobTitle     string `json:"job_title"`
	Company      string `json:"company"`
	Status       Status `json:"status"`
	Timestamp    Time   `json:"timestamp"`
	SearchTerm   string `json:"search_term"`
	ContractType Tokens `json:"contract_type"`
	RemoteType   Tokens `json:"remote_type"`
	Reason       string `json:"reason,omitempty"`
	JobURL       string `json:"job_url,omitempty"`
}

// PerTermCounters buckets every listing encountered under one search term.
// The buckets are mutually exclusive, so JobsFound is always their sum.
type PerTermCounters struct {
	SearchTerm         string `json:"search_term"`
	JobsFound          int    `json:"jobs_found"`
	JobsSubmitted      int    `json:"jobs_submitted"`
	JobsAlreadyApplied int    `json:"jobs_already_applied"`
	JobsExcluded       int    `json:"jobs_excluded"`
	JobsFailed         int    `json:"jobs_failed"`
}

// Consistent reports whether JobsFound equals the sum of the buckets.
func (c PerTermCounters) Consistent() bool {
	return c.JobsFound == c.JobsSubmitted+c.JobsAlreadyApplied+c.JobsExcluded+c.JobsFailed
}

// SessionRecord summarizes one run across all configured terms.
type SessionRecord struct {
	SessionID     string              `json:"session_id"`
	Date          Time                `json:"date"`
	Applications  []ApplicationRecord `json:"applications"`
	Total         int                 `json:"total"`
	Successful    int                 `json:"successful"`
	Failed        int                 `json:"failed"`
	SuccessRate   float64             `json:"success_rate"`
	PerSearchTerm []PerTermCounters   `json:"per_search_term,omitempty"`
}

// UserStatistics is the append-only running record for one account.
type UserStatistics struct {
	TotalApplications      int             `json:"total_applications"`
	SuccessfulApplications int             `json:"successful_applications"`
	FailedApplications     int             `json:"failed_applications"`
	Sessions               []SessionRecord `json:"sessions"`
	LastSession            string          `json:"last_session,omitempty"`
}

// LastSessionLayout is the layout of UserStatistics.LastSession.
const LastSessionLayout = "2006-01-02 15:04:05"

// SessionID formats the identifier of a session started at t.
func SessionID(t time.Time) string {
	return "session_" + t.Format("20060102_150405")
}

// Time is a timestamp that also accepts the zone-less ISO layouts found in
// older statistics files.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Tokens is a list of trimmed, non-empty strings decoded from any JSON
// shape: a comma-delimited string, a list, null or a scalar.
type Tokens []string

// ParseTokens normalizes v into Tokens. Strings are split on commas; list
// elements are trimmed but not split; nil yields an empty list; other
// scalars use their printed form. Empty tokens are dropped.
func ParseTokens(v interface{}) Tokens {
	out := Tokens{}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	switch val := v.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(val, ",") {
			add(part)
		}
	case Tokens:
		for _, item := range val {
			add(item)
		}
	case []string:
		for _, item := range val {
			add(item)
		}
	case []interface{}:
		for _, item := range val {
			if item == nil {
				continue
			}
			add(scalarString(item))
		}
	default:
		add(scalarString(val))
	}
	return out
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func (t Tokens) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

func (t *Tokens) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseTokens(raw)
	return nil
}
