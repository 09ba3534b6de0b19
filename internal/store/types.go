package store

import (
	"time"

	"github.com/blackwell-systems/autoapply/internal/model"
)

// Session is one journaled session row.
type Session struct {
	ID          string
	Email       string
	StartedAt   time.Time
	Total       int
	Successful  int
	Failed      int
	SuccessRate float64
}

// Application is one journaled application attempt.
type Application struct {
	ID        int64
	SessionID string
	model.ApplicationRecord
}

// ApplicationFilter narrows ListApplications. Zero values match everything.
type ApplicationFilter struct {
	Since  time.Time
	Term   string
	Status model.Status
	Limit  int
}
