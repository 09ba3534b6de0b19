package stats

import (
	mstats "github.com/montanaflynn/stats"

	"github.com/blackwell-systems/autoapply/internal/model"
)

// ComputeTrend returns mean and median applications per session and the
// mean success rate. An empty history yields zeros.
func ComputeTrend(sessions []model.SessionRecord) Trend {
	t := Trend{Sessions: len(sessions)}
	if len(sessions) == 0 {
		return t
	}

	sizes := make(mstats.Float64Data, 0, len(sessions))
	rates := make(mstats.Float64Data, 0, len(sessions))
	for _, s := range sessions {
		sizes = append(sizes, float64(s.Total))
		rates = append(rates, s.SuccessRate)
	}

	if mean, err := sizes.Mean(); err == nil {
		t.MeanApplications = mean
	}
	if median, err := sizes.Median(); err == nil {
		t.MedianApplications = median
	}
	if mean, err := rates.Mean(); err == nil {
		t.MeanSuccessRate = mean
	}
	return t
}
