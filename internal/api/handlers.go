package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/session"
	"github.com/blackwell-systems/autoapply/internal/stats"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

type statisticsResponse struct {
	TotalApplications      int                   `json:"total_applications"`
	SuccessfulApplications int                   `json:"successful_applications"`
	FailedApplications     int                   `json:"failed_applications"`
	SuccessRate            float64               `json:"success_rate"`
	LastSession            string                `json:"last_session,omitempty"`
	Sessions               []model.SessionRecord `json:"sessions"`
}

type advancedStatisticsResponse struct {
	stats.GlobalStatistics
	Sessions []model.SessionRecord `json:"sessions"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "autoapply job application API",
		"version": Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"session_running": s.manager.Busy(),
		"uptime_seconds":  int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(w, r, &creds); err != nil {
		writeAppError(w, err)
		return
	}
	if err := s.config.SaveCredentials(creds); err != nil {
		writeAppError(w, err)
		return
	}
	log.Printf("[api] credentials saved")
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Credentials saved",
		"token":      creds.Email,
		"token_type": "bearer",
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"email":         emailFrom(r.Context()),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config.LoadSearchConfig()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleSaveConfig layers the posted fields onto the stored config.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config.LoadSearchConfig()
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := decodeBody(w, r, &cfg); err != nil {
		writeAppError(w, err)
		return
	}
	if err := s.config.SaveSearchConfig(cfg); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Configuration saved successfully",
		"config":  cfg,
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	user, err := s.config.LoadStatistics(emailFrom(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	sessions := user.Sessions
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, statisticsResponse{
		TotalApplications:      user.TotalApplications,
		SuccessfulApplications: user.SuccessfulApplications,
		FailedApplications:     user.FailedApplications,
		SuccessRate:            stats.SuccessRate(user.SuccessfulApplications, user.TotalApplications),
		LastSession:            user.LastSession,
		Sessions:               sessions,
	})
}

func (s *Server) handleAdvancedStatistics(w http.ResponseWriter, r *http.Request) {
	user, err := s.config.LoadStatistics(emailFrom(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	sessions := user.Sessions
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, advancedStatisticsResponse{
		GlobalStatistics: stats.Aggregate(user),
		Sessions:         sessions,
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config.LoadSearchConfig()
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := cfg.Ready(); err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindValidation, err, "search config not ready"))
		return
	}

	run, err := s.manager.Start()
	if err != nil {
		writeAppError(w, err)
		return
	}
	log.Printf("[api] session run %s started", run.ID)
	w.Header().Set("Location", "/session/"+run.ID)
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, ok := s.manager.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session run "+id)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	err := s.manager.WhenIdle(s.config.Reset)
	if errors.Is(err, session.ErrBusy) {
		writeAppError(w, apperr.New(apperr.KindBusy, "cannot clear data while a session is running"))
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	log.Printf("[api] all data cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "All data cleared successfully"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[api] %v", err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(apperr.KindOf(err)),
	})
}
