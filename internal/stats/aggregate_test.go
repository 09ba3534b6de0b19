package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/autoapply/internal/model"
)

func record(term string, status model.Status, ts time.Time, contract, remote model.Tokens) model.ApplicationRecord {
	return model.ApplicationRecord{
		JobTitle:     "Developer",
		Company:      "Acme",
		Status:       status,
		Timestamp:    model.NewTime(ts),
		SearchTerm:   term,
		ContractType: contract,
		RemoteType:   remote,
	}
}

func day(d, h int) time.Time {
	return time.Date(2024, 1, d, h, 0, 0, 0, time.Local)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"delimited", "java, python", []string{"java", "python"}},
		{"pair", "a, b", []string{"a", "b"}},
		{"empty list", []interface{}{}, []string{}},
		{"nil", nil, []string{}},
		{"blank", "  ", []string{}},
		{"list", []string{"a", "b"}, []string{"a", "b"}},
		{"scalar", 42, []string{"42"}},
		{"drops empty tokens", "a,, ,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []interface{}{
		"java, python",
		" a ,b,",
		nil,
		42,
		3.5,
		[]interface{}{" x", nil, 7.0},
		[]string{"a, b", " c "},
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %#v", in)
	}
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, SuccessRate(0, 0))
	assert.Equal(t, 50.0, SuccessRate(1, 2))
	assert.Equal(t, 100.0, SuccessRate(3, 3))
}

func TestNewSessionTotals(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.Status
		wantOK   int
		wantFail int
		wantRate float64
	}{
		{"empty", nil, 0, 0, 0},
		{"all success", []model.Status{model.StatusSuccess, model.StatusSuccess}, 2, 0, 100},
		{"mixed", []model.Status{model.StatusSuccess, model.StatusFailed, model.StatusFailed, model.StatusSuccess}, 2, 2, 50},
		{"all failed", []model.Status{model.StatusFailed}, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apps []model.ApplicationRecord
			for _, s := range tt.statuses {
				apps = append(apps, record("go", s, day(1, 9), nil, nil))
			}
			rec := NewSession("session_x", day(1, 9), apps, nil)

			assert.Equal(t, len(tt.statuses), rec.Total)
			assert.Equal(t, rec.Total, rec.Successful+rec.Failed)
			assert.Equal(t, tt.wantOK, rec.Successful)
			assert.Equal(t, tt.wantFail, rec.Failed)
			assert.InDelta(t, tt.wantRate, rec.SuccessRate, 1e-9)
		})
	}
}

func TestNewSessionCopiesInputs(t *testing.T) {
	apps := []model.ApplicationRecord{record("go", model.StatusSuccess, day(1, 9), nil, nil)}
	rec := NewSession("s", day(1, 9), apps, nil)
	apps[0].JobTitle = "changed"
	assert.Equal(t, "Developer", rec.Applications[0].JobTitle)
}

func TestMergeAppends(t *testing.T) {
	first := NewSession("s1", day(1, 9), []model.ApplicationRecord{
		record("go", model.StatusSuccess, day(1, 9), nil, nil),
		record("go", model.StatusFailed, day(1, 10), nil, nil),
	}, nil)
	second := NewSession("s2", day(2, 15), []model.ApplicationRecord{
		record("java", model.StatusSuccess, day(2, 15), nil, nil),
	}, nil)

	var user model.UserStatistics
	user = Merge(user, first)
	merged := Merge(user, second)

	require.Len(t, user.Sessions, 1, "Merge must not modify its input")
	require.Len(t, merged.Sessions, 2)
	assert.Equal(t, 3, merged.TotalApplications)
	assert.Equal(t, 2, merged.SuccessfulApplications)
	assert.Equal(t, 1, merged.FailedApplications)
	assert.Equal(t, "2024-01-02 15:00:00", merged.LastSession)
}

func TestAggregatePerDayAcrossSessions(t *testing.T) {
	s1 := NewSession("s1", day(1, 9), []model.ApplicationRecord{
		record("go", model.StatusSuccess, day(1, 9), nil, nil),
		record("go", model.StatusSuccess, day(1, 10), nil, nil),
		record("go", model.StatusFailed, day(2, 8), nil, nil),
	}, nil)
	s2 := NewSession("s2", day(1, 20), []model.ApplicationRecord{
		record("java", model.StatusSuccess, day(1, 20), nil, nil),
	}, nil)

	var user model.UserStatistics
	user = Merge(Merge(user, s1), s2)

	g := Aggregate(user)
	assert.Equal(t, map[string]int{"2024-01-01": 3, "2024-01-02": 1}, g.PerDay)
	assert.Equal(t, 4, g.TotalApplications)
	assert.Equal(t, 2, g.TotalSessions)
	assert.InDelta(t, 75.0, g.SuccessRate, 1e-9)
}

func TestAggregateContractAndRemoteBuckets(t *testing.T) {
	s := NewSession("s1", day(1, 9), []model.ApplicationRecord{
		record("go", model.StatusSuccess, day(1, 9), model.ParseTokens("permanent, contractor"), model.Tokens{"full"}),
		record("go", model.StatusFailed, day(1, 9), model.Tokens{"permanent"}, model.ParseTokens(nil)),
	}, nil)
	g := Aggregate(Merge(model.UserStatistics{}, s))

	assert.Equal(t, map[string]int{"permanent": 2, "contractor": 1}, g.PerContractType)
	assert.Equal(t, map[string]int{"full": 1}, g.PerRemoteType)
}

func TestAggregatePerTermPrefersSessionCounters(t *testing.T) {
	withCounters := NewSession("s1", day(1, 9), []model.ApplicationRecord{
		record("go", model.StatusSuccess, day(1, 9), nil, nil),
	}, []model.PerTermCounters{
		{SearchTerm: "go", JobsFound: 5, JobsSubmitted: 1, JobsAlreadyApplied: 2, JobsExcluded: 2},
	})
	legacy := NewSession("s0", day(1, 8), []model.ApplicationRecord{
		record("go", model.StatusFailed, day(1, 8), nil, nil),
		record("rust", model.StatusSuccess, day(1, 8), nil, nil),
	}, nil)

	g := Aggregate(Merge(Merge(model.UserStatistics{}, legacy), withCounters))
	require.Len(t, g.PerSearchTerm, 2)

	goStats := g.PerSearchTerm[0]
	assert.Equal(t, "go", goStats.SearchTerm)
	assert.Equal(t, 6, goStats.JobsFound)
	assert.Equal(t, 1, goStats.JobsSubmitted)
	assert.Equal(t, 2, goStats.JobsAlreadyApplied)
	assert.Equal(t, 2, goStats.JobsExcluded)
	assert.Equal(t, 1, goStats.JobsFailed)
	assert.Equal(t, 2, goStats.Applications)
	assert.True(t, goStats.Consistent())

	rust := g.PerSearchTerm[1]
	assert.Equal(t, "rust", rust.SearchTerm)
	assert.Equal(t, 1, rust.JobsFound)
	assert.Equal(t, 1, rust.JobsSubmitted)
}

func TestAggregateEmpty(t *testing.T) {
	g := Aggregate(model.UserStatistics{})
	assert.Empty(t, g.PerSearchTerm)
	assert.NotNil(t, g.PerDay)
	assert.Equal(t, 0.0, g.SuccessRate)
	assert.Equal(t, Trend{}, g.Trend)
}

func TestComputeTrend(t *testing.T) {
	sessions := []model.SessionRecord{
		{Total: 2, SuccessRate: 50},
		{Total: 4, SuccessRate: 100},
		{Total: 9, SuccessRate: 0},
	}
	tr := ComputeTrend(sessions)
	assert.Equal(t, 3, tr.Sessions)
	assert.InDelta(t, 5.0, tr.MeanApplications, 1e-9)
	assert.InDelta(t, 4.0, tr.MedianApplications, 1e-9)
	assert.InDelta(t, 50.0, tr.MeanSuccessRate, 1e-9)
}
