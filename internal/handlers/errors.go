package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/form"
)

const unreachable = "Could not reach the plantation service. Please try again."

// describe turns err into text fit for the page. API answers carry their own
// message; anything else stays in the log.
func describe(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	var fieldErr *form.FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Error()
	}
	return unreachable
}

// mutationStatus is the status of a page re-rendered after a failed submit.
func mutationStatus(err error) int {
	var fieldErr *form.FieldError
	if errors.As(err, &fieldErr) || api.IsValidation(err) {
		return http.StatusUnprocessableEntity
	}
	if api.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

type loadError struct {
	Message string
	Retry   string
}

// loadFailed answers a fragment request whose data could not be fetched.
func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, what string, err error) {
	if api.IsUnauthorized(err) {
		s.toLogin(w, r)
		return
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		s.log.Debug("load abandoned", zap.String("what", what))
		return
	}
	s.log.Warn("load failed", zap.String("what", what), zap.Error(err))
	s.renderFragment(w, http.StatusOK, "load-error", loadError{
		Message: "Could not load " + what + ". " + describe(err),
		Retry:   r.URL.RequestURI(),
	})
}

// submitFailed logs a failed mutation. It reports false when the session was
// rejected and the browser has been sent to sign in.
func (s *Server) submitFailed(w http.ResponseWriter, r *http.Request, what string, err error) bool {
	if api.IsUnauthorized(err) {
		s.toLogin(w, r)
		return false
	}
	s.log.Warn("submit failed", zap.String("what", what), zap.Error(err))
	return true
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Restore(r.Context())
	s.renderPage(w, http.StatusNotFound, "not_found", s.page(r, "Not found", nil))
}
