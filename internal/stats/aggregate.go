package stats

import (
	"sort"
	"time"

	"github.com/blackwell-systems/autoapply/internal/model"
)

// Normalize turns a contract or remote type value of any shape into a list
// of trimmed, non-empty tokens. It is idempotent.
func Normalize(v interface{}) []string {
	return []string(model.ParseTokens(v))
}

// SuccessRate returns successful/total as a percentage, 0 when total is 0.
func SuccessRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

// NewSession builds a session record whose totals are derived from apps.
func NewSession(id string, date time.Time, apps []model.ApplicationRecord, counters []model.PerTermCounters) model.SessionRecord {
	rec := model.SessionRecord{
		SessionID:     id,
		Date:          model.NewTime(date),
		Applications:  append([]model.ApplicationRecord{}, apps...),
		Total:         len(apps),
		PerSearchTerm: append([]model.PerTermCounters(nil), counters...),
	}
	for _, app := range apps {
		if app.Status == model.StatusSuccess {
			rec.Successful++
		} else {
			rec.Failed++
		}
	}
	rec.SuccessRate = SuccessRate(rec.Successful, rec.Total)
	return rec
}

// Merge appends rec to user and adds its totals. user is not modified.
func Merge(user model.UserStatistics, rec model.SessionRecord) model.UserStatistics {
	out := user
	out.Sessions = append(append([]model.SessionRecord{}, user.Sessions...), rec)
	out.TotalApplications += rec.Total
	out.SuccessfulApplications += rec.Successful
	out.FailedApplications += rec.Failed

	last := rec.Date.Time
	if last.IsZero() {
		last = time.Now()
	}
	out.LastSession = last.Format(model.LastSessionLayout)
	return out
}

// Aggregate buckets every application record of every session by search
// term, contract type, remote type and day. Per-term outcome buckets come
// from each session's stored counters; sessions recorded without counters
// have them derived from their records.
func Aggregate(user model.UserStatistics) GlobalStatistics {
	g := GlobalStatistics{
		TotalApplications:      user.TotalApplications,
		SuccessfulApplications: user.SuccessfulApplications,
		FailedApplications:     user.FailedApplications,
		SuccessRate:            SuccessRate(user.SuccessfulApplications, user.TotalApplications),
		TotalSessions:          len(user.Sessions),
		LastSession:            user.LastSession,
		PerSearchTerm:          []TermStats{},
		PerContractType:        make(map[string]int),
		PerRemoteType:          make(map[string]int),
		PerDay:                 make(map[string]int),
		Trend:                  ComputeTrend(user.Sessions),
	}

	terms := make(map[string]*TermStats)
	term := func(name string) *TermStats {
		ts, ok := terms[name]
		if !ok {
			ts = &TermStats{PerTermCounters: model.PerTermCounters{SearchTerm: name}}
			terms[name] = ts
		}
		return ts
	}

	for _, sess := range user.Sessions {
		for _, c := range sess.PerSearchTerm {
			ts := term(c.SearchTerm)
			ts.JobsFound += c.JobsFound
			ts.JobsSubmitted += c.JobsSubmitted
			ts.JobsAlreadyApplied += c.JobsAlreadyApplied
			ts.JobsExcluded += c.JobsExcluded
			ts.JobsFailed += c.JobsFailed
		}
		derive := len(sess.PerSearchTerm) == 0

		for _, app := range sess.Applications {
			ts := term(app.SearchTerm)
			ts.Applications++
			if app.Status == model.StatusSuccess {
				ts.Successful++
			} else {
				ts.Failed++
			}
			if derive {
				ts.JobsFound++
				if app.Status == model.StatusSuccess {
					ts.JobsSubmitted++
				} else {
					ts.JobsFailed++
				}
			}

			for _, ct := range Normalize([]string(app.ContractType)) {
				g.PerContractType[ct]++
			}
			for _, rt := range Normalize([]string(app.RemoteType)) {
				g.PerRemoteType[rt]++
			}
			if !app.Timestamp.IsZero() {
				g.PerDay[app.Timestamp.Format(DayLayout)]++
			}
		}
	}

	for _, ts := range terms {
		g.PerSearchTerm = append(g.PerSearchTerm, *ts)
	}
	sort.Slice(g.PerSearchTerm, func(i, j int) bool {
		return g.PerSearchTerm[i].SearchTerm < g.PerSearchTerm[j].SearchTerm
	})
	return g
}
