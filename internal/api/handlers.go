package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"nutritrack.io/nutritrack/internal/auth"
	"nutritrack.io/nutritrack/internal/config"
	"nutritrack.io/nutritrack/internal/core"
	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
)

// maxBodyBytes bounds request bodies; photo uploads arrive as base64 data URIs.
const maxBodyBytes = 12 << 20

type APIHandler struct {
	tracker *core.TrackerService
	log     logging.Logger
}

func NewAPIHandler(tracker *core.TrackerService, log logging.Logger) *APIHandler {
	return &APIHandler{tracker: tracker, log: log}
}

// OwnerAuthMiddleware admits only bearer tokens issued to the configured owner.
func (h *APIHandler) OwnerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := auth.ValidateJWT(tokenString)
		if err != nil {
			h.log.Debug(r.Context(), "token rejected", "err", err)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if subject != config.AppConfig.OwnerID {
			writeError(w, http.StatusForbidden, "Token does not belong to the owner")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Profile())
}

func (h *APIHandler) DayHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.tracker.Day(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) WeekHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.tracker.Week(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) MonthHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.tracker.Month(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type LogTextRequest struct {
	Text string `json:"text"`
}

type LogPhotoRequest struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

func (h *APIHandler) LogMealHandler(w http.ResponseWriter, r *http.Request) {
	var req LogTextRequest
	if !decodeBody(w, r, &req) {
		return
	}

	meal, err := h.tracker.LogMeal(r.Context(), chi.URLParam(r, "date"), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

func (h *APIHandler) LogMealPhotoHandler(w http.ResponseWriter, r *http.Request) {
	var req LogPhotoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.tracker.LogMealFromImage(r.Context(), chi.URLParam(r, "date"), req.Image, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *APIHandler) LogWorkoutHandler(w http.ResponseWriter, r *http.Request) {
	var req LogTextRequest
	if !decodeBody(w, r, &req) {
		return
	}

	workout, err := h.tracker.LogWorkout(r.Context(), chi.URLParam(r, "date"), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

func (h *APIHandler) DeleteMealHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteMeal(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) DeleteWorkoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteWorkout(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) InsightHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.tracker.Insight(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"insight": text})
}

func (h *APIHandler) AdviceHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.tracker.Advice(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": text})
}

// fail maps a service error onto a status code and a JSON error body.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		extractionErr  *core.ExtractionError
		persistenceErr *core.PersistenceError
		degraded       *core.LoadDegraded
	)

	status := http.StatusInternalServerError
	msg := "Internal error"
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrBusy):
		status, msg = http.StatusConflict, err.Error()
	case errors.As(err, &extractionErr):
		status, msg = http.StatusBadGateway, "Could not understand the AI response, please try again"
	case errors.As(err, &persistenceErr) && errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "Record not found"
	case errors.As(err, &persistenceErr):
		msg = "Failed to save changes"
	case errors.As(err, &degraded):
		status, msg = http.StatusServiceUnavailable, "Day data is temporarily unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		h.log.Info(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
