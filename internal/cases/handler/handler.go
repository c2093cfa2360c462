// Package handler exposes the case lifecycle over HTTP. It stays thin:
// decode, delegate, encode. Every rule lives in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/cases"
	"beacon/internal/platform/middleware"
	"beacon/internal/timeline"
	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/httputil"
)

// Service is the case lifecycle surface the handler depends on.
type Service interface {
	CreateCase(ctx context.Context, req cases.CreateCaseRequest) (cases.Case, error)
	Assign(ctx context.Context, req cases.AssignRequest) (cases.Case, error)
	UpdateStatus(ctx context.Context, req cases.UpdateStatusRequest) (cases.Case, error)
	Verify(ctx context.Context, req cases.VerifyRequest) (cases.ResponderVerification, error)
	MintVerificationToken(ctx context.Context, caseID domain.CaseID, responderID domain.ResponderID) (string, time.Time, error)
	Get(ctx context.Context, viewer cases.Viewer, id domain.CaseID) (cases.Case, error)
	List(ctx context.Context, viewer cases.Viewer, q cases.ListQuery) ([]cases.Case, error)
	Timeline(ctx context.Context, viewer cases.Viewer, id domain.CaseID) ([]timeline.Entry, error)
	Verifications(ctx context.Context, viewer cases.Viewer, id domain.CaseID) ([]cases.ResponderVerification, error)
}

// Handler wires the case routes.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
	rateLimit    func(http.Handler) http.Handler
	timeout      time.Duration
}

// Option configures the handler.
type Option func(*Handler)

// WithRateLimit applies a limiter to case creation.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.rateLimit = mw }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// New creates a case Handler.
func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		service:      service,
		logger:       logger,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the case routes on the router.
func (h *Handler) Register(r chi.Router) {
	caseRouter := chi.NewRouter()
	caseRouter.Use(middleware.Recovery(h.logger))
	caseRouter.Use(middleware.RequestID)
	caseRouter.Use(middleware.Logger(h.logger))
	caseRouter.Use(middleware.Timeout(h.timeout))
	caseRouter.Use(middleware.ContentTypeJSON)
	caseRouter.Use(middleware.Device)
	caseRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	if h.rateLimit != nil {
		caseRouter.With(h.rateLimit).Post("/cases", h.handleCreate)
	} else {
		caseRouter.Post("/cases", h.handleCreate)
	}
	caseRouter.Get("/cases", h.handleList)
	caseRouter.Get("/cases/{caseID}", h.handleGet)
	caseRouter.Get("/cases/{caseID}/timeline", h.handleTimeline)
	caseRouter.Get("/cases/{caseID}/verifications", h.handleVerifications)
	caseRouter.Post("/cases/{caseID}/assign", h.handleAssign)
	caseRouter.Post("/cases/{caseID}/status", h.handleUpdateStatus)
	caseRouter.Post("/cases/{caseID}/verify", h.handleVerify)
	caseRouter.Post("/cases/{caseID}/verification-token", h.handleMintToken)

	r.Mount("/", caseRouter)
}

func (h *Handler) viewer(ctx context.Context) (cases.Viewer, error) {
	userID, err := domain.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		return cases.Viewer{}, dErrors.New(dErrors.CodeUnauthorized, "invalid user identity")
	}
	role, err := domain.ParseRole(middleware.GetRole(ctx))
	if err != nil {
		return cases.Viewer{}, dErrors.New(dErrors.CodeUnauthorized, "invalid role")
	}
	v := cases.Viewer{UserID: userID, Role: role}
	if raw := middleware.GetResponderID(ctx); raw != "" {
		responderID, err := domain.ParseResponderID(raw)
		if err != nil {
			return cases.Viewer{}, dErrors.New(dErrors.CodeUnauthorized, "invalid responder identity")
		}
		v.ResponderID = &responderID
	}
	return v, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var body createCaseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	req := cases.CreateCaseRequest{
		IncidentType: body.IncidentType,
		Title:        body.Title,
		Description:  body.Description,
		Anonymous:    body.Anonymous,
		DeviceID:     body.DeviceID,
	}
	if req.DeviceID == "" {
		req.DeviceID = middleware.GetDevice(ctx)
	}
	if !body.Anonymous {
		uid := viewer.UserID
		req.ReporterID = &uid
	}
	if body.Location != nil {
		req.Lat = &body.Location.Lat
		req.Lng = &body.Location.Lng
		req.Accuracy = body.Location.Accuracy
	}

	c, err := h.service.CreateCase(ctx, req)
	if err != nil {
		h.logError(ctx, "create case failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseView(c))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	q := cases.ListQuery{Status: r.URL.Query().Get("status")}
	list, err := h.service.List(ctx, viewer, q)
	if err != nil {
		h.logError(ctx, "list cases failed", err)
		httputil.WriteError(w, err)
		return
	}

	views := make([]caseView, 0, len(list))
	for _, c := range list {
		views = append(views, toCaseView(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Get(ctx, viewer, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseView(c))
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.Timeline(ctx, viewer, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]timelineEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toTimelineEntryView(e))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"timeline": views})
}

func (h *Handler) handleVerifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.Verifications(ctx, viewer, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]verificationView, 0, len(records))
	for _, v := range records {
		views = append(views, toVerificationView(v))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"verifications": views})
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if viewer.Role != domain.RoleDispatcher && viewer.Role != domain.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only dispatchers can assign responders"))
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var body assignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	responderID, err := domain.ParseResponderID(body.ResponderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Assign(ctx, cases.AssignRequest{
		CaseID:        caseID,
		ResponderID:   responderID,
		AssignedBy:    domain.UserActor(viewer.UserID),
		AllowReassign: body.AllowReassign,
	})
	if err != nil {
		h.logError(ctx, "assign responder failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseView(c))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var body updateStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	c, err := h.service.UpdateStatus(ctx, cases.UpdateStatusRequest{
		CaseID: caseID,
		Status: body.Status,
		Actor:  domain.UserActor(viewer.UserID),
		Notes:  body.Notes,
	})
	if err != nil {
		h.logError(ctx, "status update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseView(c))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	responderID, err := domain.ParseResponderID(body.ResponderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req := cases.VerifyRequest{
		CaseID:      caseID,
		ResponderID: responderID,
		Method:      cases.VerificationMethod(body.Method),
		Code:        body.Code,
		QRToken:     body.QRToken,
		VerifierID:  viewer.UserID,
	}
	if body.Location != nil {
		loc, err := domain.ParseLocation(body.Location.Lat, body.Location.Lng, body.Location.Accuracy)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		req.Location = &loc
	}

	record, err := h.service.Verify(ctx, req)
	if err != nil {
		h.logError(ctx, "responder verification failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerificationView(record))
}

func (h *Handler) handleMintToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := h.viewer(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if viewer.ResponderID == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only responders can request verification tokens"))
		return
	}
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, expiresAt, err := h.service.MintVerificationToken(ctx, caseID, *viewer.ResponderID)
	if err != nil {
		h.logError(ctx, "token mint failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, msg,
		slog.Any("error", err),
		slog.String("request_id", middleware.GetRequestID(ctx)),
	)
}
