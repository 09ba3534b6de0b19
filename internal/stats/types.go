// Package stats folds application records into session summaries and
// cross-session statistics.
package stats

import "github.com/blackwell-systems/autoapply/internal/model"

// GlobalStatistics is the cross-session view of one account's history.
type GlobalStatistics struct {
	TotalApplications      int            `json:"total_applications"`
	SuccessfulApplications int            `json:"successful_applications"`
	FailedApplications     int            `json:"failed_applications"`
	SuccessRate            float64        `json:"success_rate"`
	TotalSessions          int            `json:"total_sessions"`
	LastSession            string         `json:"last_session,omitempty"`
	PerSearchTerm          []TermStats    `json:"per_search_term"`
	PerContractType        map[string]int `json:"per_contract_type"`
	PerRemoteType          map[string]int `json:"per_remote_type"`
	PerDay                 map[string]int `json:"per_day"`
	Trend                  Trend          `json:"trend"`
}

// TermStats combines the outcome buckets of one search term with the
// number of application records it produced.
type TermStats struct {
	model.PerTermCounters
	Applications int `json:"applications"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
}

// Trend summarizes session sizes and success rates.
type Trend struct {
	Sessions           int     `json:"sessions"`
	MeanApplications   float64 `json:"mean_applications"`
	MedianApplications float64 `json:"median_applications"`
	MeanSuccessRate    float64 `json:"mean_success_rate"`
}

// DayLayout is the key layout of GlobalStatistics.PerDay.
const DayLayout = "2006-01-02"
