package automation

import (
	"context"
	"strings"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/model"
)

// evaluate screens one opened listing and submits the application when it
// passes. Errors never escape: they become failed outcomes.
func (r *run) evaluate(ctx context.Context, l *listing) Outcome {
	site := r.opts.Site
	out := Outcome{Term: r.term().SearchTerm, URL: l.url}

	if l.openErr != nil {
		return r.failed(out, apperr.Wrap(apperr.KindJobProcessing, l.openErr, "failed to open listing"))
	}
	tab := l.tab

	if err := tab.WaitFor(ctx, site.JobTitle, r.opts.Timing.ElementWait); err != nil {
		return r.failed(out, apperr.Wrap(apperr.KindJobProcessing, err, "listing did not load"))
	}
	out.Title = textOr(ctx, tab, site.JobTitle, "Unknown title")
	out.Company = textOr(ctx, tab, site.JobCompany, "Unknown company")

	if applied, _ := tab.Exists(ctx, site.AlreadyApplied); applied {
		out.Kind = OutcomeAlreadyApplied
		return out
	}

	body, err := tab.Text(ctx, site.JobBody)
	if err != nil {
		return r.failed(out, apperr.Wrap(apperr.KindJobProcessing, err, "listing description not found"))
	}
	if kw, ok := ExcludedKeyword(body, r.cfg.ExcludedKeywords); ok {
		out.Kind = OutcomeExcluded
		out.Keyword = kw
		return out
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return r.failed(out, err)
	}
	if err := r.submit(ctx, tab); err != nil {
		return r.failed(out, apperr.Wrap(apperr.KindJobProcessing, err, "application not submitted"))
	}

	out.Kind = OutcomeSubmitted
	out.Record = r.newRecord(out, model.StatusSuccess, "")
	return out
}

func (r *run) submit(ctx context.Context, tab Tab) error {
	site := r.opts.Site
	timing := r.opts.Timing

	if err := tab.WaitFor(ctx, site.MessageField, timing.ElementWait); err != nil {
		return err
	}
	if err := tab.Fill(ctx, site.MessageField, r.cfg.ApplicationMessage); err != nil {
		return err
	}
	if err := tab.JSClick(ctx, site.ApplyButton); err != nil {
		return err
	}
	if err := sleep(ctx, timing.ApplySettle); err != nil {
		return err
	}

	// The confirmation dialog only appears for some listings.
	if err := tab.WaitFor(ctx, site.ConfirmButton, timing.ConfirmWait); err != nil {
		return ctx.Err()
	}
	if err := tab.JSClick(ctx, site.ConfirmButton); err != nil {
		return err
	}
	return sleep(ctx, timing.ApplySettle)
}

func (r *run) failed(out Outcome, err error) Outcome {
	out.Kind = OutcomeFailed
	out.Err = err
	out.Record = r.newRecord(out, model.StatusFailed, err.Error())
	return out
}

func (r *run) newRecord(out Outcome, status model.Status, reason string) *model.ApplicationRecord {
	title := out.Title
	if title == "" {
		title = "Unknown title"
	}
	company := out.Company
	if company == "" {
		company = "Unknown company"
	}
	return &model.ApplicationRecord{
		JobTitle:     title,
		Company:      company,
		Status:       status,
		Timestamp:    model.NewTime(r.opts.Now()),
		SearchTerm:   out.Term,
		ContractType: model.ParseTokens(r.cfg.ContractTypes),
		RemoteType:   model.ParseTokens(r.cfg.RemoteTypes),
		Reason:       reason,
		JobURL:       out.URL,
	}
}

func textOr(ctx context.Context, p Page, sel Selector, fallback string) string {
	text, err := p.Text(ctx, sel)
	if err != nil {
		return fallback
	}
	if text = strings.TrimSpace(text); text == "" {
		return fallback
	}
	return text
}
