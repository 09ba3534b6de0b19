package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/autoapply/internal/model"
)

// Session operations

// RecordSession journals a finished session with its applications and
// per-term counters. Recording the same session ID again replaces it.
func (s *Store) RecordSession(email string, rec model.SessionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	started := rec.Date.Time
	if started.IsZero() {
		started = time.Now()
	}

	if _, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, rec.SessionID); err != nil {
		return fmt.Errorf("failed to replace session %s: %w", rec.SessionID, classify(err))
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (session_id, email, started_at, total, successful, failed, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.SessionID,
		email,
		started.UTC().Format(time.RFC3339),
		rec.Total,
		rec.Successful,
		rec.Failed,
		rec.SuccessRate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", rec.SessionID, classify(err))
	}

	for _, app := range rec.Applications {
		if err := insertApplication(tx, rec.SessionID, app); err != nil {
			return err
		}
	}

	for _, c := range rec.PerSearchTerm {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO term_counters
			(session_id, search_term, jobs_found, jobs_submitted, jobs_already_applied, jobs_excluded, jobs_failed)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			rec.SessionID,
			c.SearchTerm,
			c.JobsFound,
			c.JobsSubmitted,
			c.JobsAlreadyApplied,
			c.JobsExcluded,
			c.JobsFailed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert counters for %s: %w", c.SearchTerm, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", rec.SessionID, err)
	}
	return nil
}

func insertApplication(tx *sql.Tx, sessionID string, app model.ApplicationRecord) error {
	contractJSON, err := json.Marshal(app.ContractType)
	if err != nil {
		return fmt.Errorf("failed to marshal contract types: %w", err)
	}
	remoteJSON, err := json.Marshal(app.RemoteType)
	if err != nil {
		return fmt.Errorf("failed to marshal remote types: %w", err)
	}

	appliedAt := app.Timestamp.Time
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO applications
		(session_id, job_title, company, status, search_term, job_url, contract_type, remote_type, reason, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		app.JobTitle,
		app.Company,
		string(app.Status),
		app.SearchTerm,
		app.JobURL,
		string(contractJSON),
		string(remoteJSON),
		app.Reason,
		appliedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert application %q: %w", app.JobTitle, err)
	}
	return nil
}

// ListSessions returns the most recent sessions first. limit <= 0 returns all.
func (s *Store) ListSessions(limit int) ([]*Session, error) {
	query := `
		SELECT session_id, email, started_at, total, successful, failed, success_rate
		FROM sessions
		ORDER BY started_at DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", classify(err))
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var startedAt string

		if err := rows.Scan(
			&sess.ID,
			&sess.Email,
			&startedAt,
			&sess.Total,
			&sess.Successful,
			&sess.Failed,
			&sess.SuccessRate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}

		sess.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for %s: %w", sess.ID, err)
		}
		sess.StartedAt = sess.StartedAt.Local()

		sessions = append(sessions, &sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// GetTermCounters returns the per-term counters of one session.
func (s *Store) GetTermCounters(sessionID string) ([]model.PerTermCounters, error) {
	rows, err := s.db.Query(`
		SELECT search_term, jobs_found, jobs_submitted, jobs_already_applied, jobs_excluded, jobs_failed
		FROM term_counters
		WHERE session_id = ?
		ORDER BY search_term
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get counters for %s: %w", sessionID, classify(err))
	}
	defer rows.Close()

	var counters []model.PerTermCounters
	for rows.Next() {
		var c model.PerTermCounters
		if err := rows.Scan(
			&c.SearchTerm,
			&c.JobsFound,
			&c.JobsSubmitted,
			&c.JobsAlreadyApplied,
			&c.JobsExcluded,
			&c.JobsFailed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan counters row: %w", err)
		}
		counters = append(counters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counters: %w", err)
	}

	return counters, nil
}

// Application operations

// ListApplications returns journaled attempts, newest first.
func (s *Store) ListApplications(filter ApplicationFilter) ([]*Application, error) {
	var where []string
	var args []interface{}

	if !filter.Since.IsZero() {
		where = append(where, "applied_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Term != "" {
		where = append(where, "search_term = ?")
		args = append(args, filter.Term)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `
		SELECT id, session_id, job_title, company, status, search_term, job_url, contract_type, remote_type, reason, applied_at
		FROM applications
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY applied_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", classify(err))
	}
	defer rows.Close()

	var apps []*Application
	for rows.Next() {
		var app Application
		var status, contractJSON, remoteJSON, appliedAt string
		var jobURL, reason sql.NullString

		if err := rows.Scan(
			&app.ID,
			&app.SessionID,
			&app.JobTitle,
			&app.Company,
			&status,
			&app.SearchTerm,
			&jobURL,
			&contractJSON,
			&remoteJSON,
			&reason,
			&appliedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}

		app.Status = model.Status(status)
		app.JobURL = jobURL.String
		app.Reason = reason.String

		if err := json.Unmarshal([]byte(contractJSON), &app.ContractType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contract types for application %d: %w", app.ID, err)
		}
		if err := json.Unmarshal([]byte(remoteJSON), &app.RemoteType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal remote types for application %d: %w", app.ID, err)
		}

		ts, err := time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse applied_at for application %d: %w", app.ID, err)
		}
		app.Timestamp = model.NewTime(ts.Local())

		apps = append(apps, &app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

// AlreadyApplied reports whether a successful application to url has been
// journaled.
func (s *Store) AlreadyApplied(url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM applications WHERE job_url = ? AND status = ?
	`, url, string(model.StatusSuccess)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", url, classify(err))
	}
	return n > 0, nil
}

// CountApplications returns the number of journaled attempts.
func (s *Store) CountApplications() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM applications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", classify(err))
	}
	return n, nil
}
