package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Contract types offered by the site's "contracts" filter.
var ContractTypes = []string{"permanent", "contractor", "fixed-term", "apprenticeship", "internship"}

// Remote types offered by the site's "remote" filter.
var RemoteTypes = []string{"partial", "full", "none"}

// Timeframes offered by the site's "freshness" filter.
var Timeframes = []string{"less_than_24_hours", "less_than_7_days", "less_than_14_days", "less_than_30_days"}

const defaultMessage = "Bonjour,\n\nJe suis vivement intéressé par cette mission qui correspond parfaitement à mes compétences.\n\nCordialement"

// SearchConfig holds the saved search criteria driving a session.
type SearchConfig struct {
	SearchTerms               []string `json:"search_terms"`
	ContractTypes             []string `json:"contract_types"`
	RemoteTypes               []string `json:"remote_types"`
	PublicationTimeframe      string   `json:"publication_timeframe"`
	ExcludedKeywords          []string `json:"excluded_keywords"`
	ApplicationMessage        string   `json:"application_message"`
	MaxApplicationsPerSession int      `json:"max_applications_per_session"`
	DelayBetweenApplications  int      `json:"delay_between_applications"`
}

// DefaultSearchConfig returns the configuration used before the user saves one.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		SearchTerms:               []string{"java", "angular", "react", "python"},
		ContractTypes:             []string{"permanent", "contractor", "fixed-term"},
		RemoteTypes:               []string{"partial", "full"},
		PublicationTimeframe:      "less_than_24_hours",
		ExcludedKeywords:          []string{"banc", "assurance"},
		ApplicationMessage:        defaultMessage,
		MaxApplicationsPerSession: 50,
		DelayBetweenApplications:  2,
	}
}

// UnmarshalJSON decodes a config on top of the receiver's current values.
// The timeframe is accepted as a string or a list (first element wins),
// under either "publication_timeframe" or the older "publication_timeframes".
func (c *SearchConfig) UnmarshalJSON(data []byte) error {
	type alias SearchConfig
	aux := struct {
		*alias
		Timeframe       json.RawMessage `json:"publication_timeframe"`
		LegacyTimeframe json.RawMessage `json:"publication_timeframes"`
	}{alias: (*alias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	for _, raw := range []json.RawMessage{aux.LegacyTimeframe, aux.Timeframe} {
		tf, ok, err := decodeTimeframe(raw)
		if err != nil {
			return err
		}
		if ok {
			c.PublicationTimeframe = tf
		}
	}
	return nil
}

func decodeTimeframe(raw json.RawMessage) (string, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", false, fmt.Errorf("publication_timeframe must be a string or a list of strings")
	}
	if len(list) == 0 {
		return "", true, nil
	}
	return strings.TrimSpace(list[0]), true, nil
}

// Validate checks enumerations and numeric bounds. It does not require
// search terms; use Ready before starting a session.
func (c SearchConfig) Validate() error {
	for _, v := range c.ContractTypes {
		if !contains(ContractTypes, v) {
			return fmt.Errorf("unknown contract type %q (allowed: %s)", v, strings.Join(ContractTypes, ", "))
		}
	}
	for _, v := range c.RemoteTypes {
		if !contains(RemoteTypes, v) {
			return fmt.Errorf("unknown remote type %q (allowed: %s)", v, strings.Join(RemoteTypes, ", "))
		}
	}
	if c.PublicationTimeframe != "" && !contains(Timeframes, c.PublicationTimeframe) {
		return fmt.Errorf("unknown publication timeframe %q (allowed: %s)", c.PublicationTimeframe, strings.Join(Timeframes, ", "))
	}
	if c.MaxApplicationsPerSession < 0 {
		return fmt.Errorf("max_applications_per_session must be >= 0, got %d", c.MaxApplicationsPerSession)
	}
	if c.DelayBetweenApplications < 0 {
		return fmt.Errorf("delay_between_applications must be >= 0, got %d", c.DelayBetweenApplications)
	}
	return nil
}

// Ready validates the config and requires at least one non-blank search term.
func (c SearchConfig) Ready() error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, term := range c.SearchTerms {
		if strings.TrimSpace(term) != "" {
			return nil
		}
	}
	return fmt.Errorf("no search terms configured")
}

// TimeframeOptions returns the timeframe as a filter option list.
func (c SearchConfig) TimeframeOptions() []string {
	if c.PublicationTimeframe == "" {
		return nil
	}
	return []string{c.PublicationTimeframe}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
