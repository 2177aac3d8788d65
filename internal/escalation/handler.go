package escalation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/pkg/httputil"
	"github.com/medops/opsdesk/internal/routing"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrNotificationNotFound, Status: http.StatusNotFound},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrIllegalTransition, Status: http.StatusConflict, Message: "transition not allowed from current lifecycle state"},
	{Error: ErrInvalidPriority, Status: http.StatusBadRequest},
	{Error: ErrInvalidLifecycle, Status: http.StatusBadRequest},
	{Error: ErrInvalidIncidentStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidCategory, Status: http.StatusBadRequest},
	{Error: ErrTitleRequired, Status: http.StatusBadRequest},
	{Error: ErrStoreClosed, Status: http.StatusServiceUnavailable, Message: "store is closed"},
}

// Handler handles HTTP requests for notifications, incidents and tasks.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new escalation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all routes of the escalation module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.ListNotifications)
		r.Post("/", h.CreateNotification)
		r.Get("/{id}", h.GetNotification)
		r.Patch("/{id}/lifecycle", h.UpdateNotificationLifecycle)
		r.Post("/{id}/quick-action", h.QuickAction)
		r.Get("/{id}/route", h.RouteNotification)
	})

	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Get("/summary", h.IncidentSummary)
		r.Get("/{id}", h.GetIncident)
		r.Patch("/{id}/status", h.UpdateIncidentStatus)
		r.Get("/{id}/countdown", h.IncidentCountdown)
	})

	r.Get("/tasks", h.ListTasks)
	r.Get("/route", h.RouteText)
	r.Post("/escalation/run", h.RunEscalation)
}

// CreateNotificationRequest represents the request body for ingesting a notification.
type CreateNotificationRequest struct {
	Priority    string `json:"priority" validate:"required,oneof=Rendah Sedang Tinggi Kritis"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Location    string `json:"location" validate:"max=255"`
	Time        string `json:"time" validate:"max=64"`
	ActionLabel string `json:"action_label" validate:"max=128"`
	Category    string `json:"category" validate:"omitempty,oneof='Pelayanan Medis' 'Logistik & Stok' 'Distribusi' 'Jadwal & Tugas'"`
}

// ToInput converts the request to service input.
func (r *CreateNotificationRequest) ToInput() IngestInput {
	return IngestInput{
		Priority:    domain.Priority(r.Priority),
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Time:        r.Time,
		ActionLabel: r.ActionLabel,
		Category:    domain.TargetModule(r.Category),
	}
}

// UpdateLifecycleRequest represents the request body for a notification lifecycle change.
type UpdateLifecycleRequest struct {
	Lifecycle string `json:"lifecycle" validate:"required,oneof=new acknowledged escalated resolved"`
}

// UpdateIncidentStatusRequest represents the request body for an incident status change.
type UpdateIncidentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open triage in-progress resolved closed"`
}

// RouteResponse describes where an item routes to.
type RouteResponse struct {
	Target domain.TargetModule `json:"target,omitempty"`
	Routed bool                `json:"routed"`
}

func routeResponse(target domain.TargetModule, ok bool) RouteResponse {
	return RouteResponse{Target: target, Routed: ok}
}

// IncidentView is an incident together with its routing target and deadline.
type IncidentView struct {
	domain.Incident
	Deadline time.Time           `json:"deadline"`
	Target   domain.TargetModule `json:"target,omitempty"`
}

func newIncidentView(inc domain.Incident) IncidentView {
	target, _ := routing.ForIncident(inc)
	return IncidentView{
		Incident: inc,
		Deadline: inc.Deadline().UTC(),
		Target:   target,
	}
}

// CountdownResponse is the SLA countdown of an incident.
type CountdownResponse struct {
	Countdown
	Text string `json:"text"`
}

// ListNotifications handles GET /notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	criticalOnly := false
	if raw := r.URL.Query().Get("critical_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "critical_only must be a boolean")
			return
		}
		criticalOnly = parsed
	}

	notifications, err := h.service.ListNotifications(r.Context(), criticalOnly)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, notifications)
}

// CreateNotification handles POST /notifications.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Ingest(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, result)
}

// GetNotification handles GET /notifications/{id}.
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.GetNotification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, n)
}

// UpdateNotificationLifecycle handles PATCH /notifications/{id}/lifecycle.
func (h *Handler) UpdateNotificationLifecycle(w http.ResponseWriter, r *http.Request) {
	var req UpdateLifecycleRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	n, err := h.service.UpdateNotificationLifecycle(r.Context(), chi.URLParam(r, "id"), domain.Lifecycle(req.Lifecycle))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, n)
}

// QuickAction handles POST /notifications/{id}/quick-action.
func (h *Handler) QuickAction(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.QuickAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// RouteNotification handles GET /notifications/{id}/route.
func (h *Handler) RouteNotification(w http.ResponseWriter, r *http.Request) {
	target, ok, err := h.service.RouteNotification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, routeResponse(target, ok))
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	var severity *domain.Priority
	if raw := r.URL.Query().Get("severity"); raw != "" {
		p := domain.Priority(raw)
		if !p.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid severity")
			return
		}
		severity = &p
	}

	incidents, err := h.service.ListIncidents(r.Context(), severity)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	views := make([]IncidentView, 0, len(incidents))
	for _, inc := range incidents {
		views = append(views, newIncidentView(inc))
	}
	httputil.Success(w, http.StatusOK, views)
}

// IncidentSummary handles GET /incidents/summary.
func (h *Handler) IncidentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.IncidentSummary(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, summary)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, newIncidentView(inc))
}

// UpdateIncidentStatus handles PATCH /incidents/{id}/status.
func (h *Handler) UpdateIncidentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentStatusRequest
	if !httputil.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	inc, err := h.service.UpdateIncidentStatus(r.Context(), chi.URLParam(r, "id"), domain.IncidentStatus(req.Status))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, newIncidentView(inc))
}

// IncidentCountdown handles GET /incidents/{id}/countdown.
func (h *Handler) IncidentCountdown(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.IncidentCountdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, CountdownResponse{Countdown: c, Text: c.Text()})
}

// ListTasks handles GET /tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.ListTaskColumns(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, board)
}

// RouteText handles GET /route?text=.
func (h *Handler) RouteText(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		httputil.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	httputil.Success(w, http.StatusOK, routeResponse(routing.RouteFor(text)))
}

// RunEscalationResponse reports the outcome of a manual eligibility run.
type RunEscalationResponse struct {
	Created     int          `json:"created"`
	Escalations []Escalation `json:"escalations"`
}

// RunEscalation handles POST /escalation/run.
func (h *Handler) RunEscalation(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.RunEscalation(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	if created == nil {
		created = []Escalation{}
	}

	httputil.Success(w, http.StatusOK, RunEscalationResponse{Created: len(created), Escalations: created})
}
