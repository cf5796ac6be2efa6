package appointment

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	cal "github.com/carewell/medibot/internal/model/calendar"
	calendarService "github.com/carewell/medibot/internal/service/calendar"
	"github.com/carewell/medibot/pkg/utils"
)

// Handler exposes the appointment store over HTTP.
type Handler struct {
	store *calendarService.Store
}

// New creates an appointment handler.
func New(store *calendarService.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the appointment routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/appointments/", h.handleList)
	r.Post("/appointments/", h.handleCreate)
	r.Put("/appointments/{id}/", h.handleUpdate)
	r.Patch("/appointments/{id}/status/", h.handleSetStatus)
	r.Delete("/appointments/{id}/", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	var appts []cal.Appointment
	if date == "" {
		appts = h.store.ListAll()
	} else {
		if _, err := time.Parse(cal.DateLayout, date); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		appts = h.store.ListDay(date)
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": appts})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form cal.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.store.Create(form)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, appt)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var form cal.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.store.Update(id, form)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, appt)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload struct {
		Status cal.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !cal.ValidStatus(payload.Status) {
		utils.RespondFieldErrors(w, map[string]string{"status": "unknown appointment status"})
		return
	}

	appt, err := h.store.SetStatus(id, payload.Status)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, appt)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(id); err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// respondStoreError maps store failures to HTTP: validation failures carry
// every field message at once, unknown ids are 404.
func respondStoreError(w http.ResponseWriter, err error) {
	var fieldErrs cal.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		utils.RespondFieldErrors(w, fieldErrs)
	case errors.Is(err, calendarService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "appointment not found")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
