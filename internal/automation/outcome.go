package automation

import "github.com/blackwell-systems/autoapply/internal/model"

// OutcomeKind is the bucket a listing falls into.
type OutcomeKind string

const (
	OutcomeSubmitted      OutcomeKind = "submitted"
	OutcomeFailed         OutcomeKind = "failed"
	OutcomeAlreadyApplied OutcomeKind = "already_applied"
	OutcomeExcluded       OutcomeKind = "excluded"
)

// Outcome reports what happened to one listing. Record is set only for
// submitted and failed listings.
type Outcome struct {
	Term    string
	URL     string
	Title   string
	Company string
	Kind    OutcomeKind
	Keyword string
	Err     error
	Record  *model.ApplicationRecord
}

func (o Outcome) label() string {
	if o.Title == "" {
		return o.URL
	}
	if o.Company == "" {
		return o.Title
	}
	return o.Title + " at " + o.Company
}
