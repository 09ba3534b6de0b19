package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/config"
)

type ctxKey int

const emailKey ctxKey = iota

// requireToken admits requests whose bearer token equals the stored email.
// This identifies the installation's account; it is not a secret.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		creds, err := s.config.LoadCredentials()
		if errors.Is(err, config.ErrNoCredentials) {
			writeError(w, http.StatusUnauthorized, "no account configured; POST /auth/login first")
			return
		}
		if err != nil {
			writeAppError(w, err)
			return
		}

		if subtle.ConstantTimeCompare([]byte(strings.ToLower(token)), []byte(strings.ToLower(creds.Email))) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), emailKey, creds.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBusy:
		return http.StatusConflict
	case apperr.KindLogin:
		return http.StatusUnauthorized
	case apperr.KindEnvironment:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
