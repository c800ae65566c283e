// Package handler exposes registration over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"identity-registration/internal/registration"
	"identity-registration/internal/user/domain"
)

const (
	instrumentationName = "identity-registration/registration"
	maxBodyBytes        = 1 << 20
)

// Outcomes recorded on the registrations counter.
const (
	outcomeCreated  = "created"
	outcomePartial  = "created_with_warning"
	outcomeInvalid  = "invalid"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Registrar is the registration service used by the handler.
type Registrar interface {
	Register(ctx context.Context, in registration.Input) (*domain.User, error)
	Confirm(ctx context.Context, token string) (*domain.User, error)
}

// Handler serves POST /register and POST /confirm/{token}.
type Handler struct {
	reg           Registrar
	logger        *zap.Logger
	tracer        trace.Tracer
	registrations metric.Int64Counter
}

// NewHandler returns a handler for reg. Nil providers fall back to the otel globals.
func NewHandler(reg Registrar, logger *zap.Logger, mp metric.MeterProvider, tp trace.TracerProvider) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	counter, err := mp.Meter(instrumentationName).Int64Counter("registrations",
		metric.WithDescription("Registration attempts by outcome"))
	if err != nil {
		return nil, err
	}
	return &Handler{
		reg:           reg,
		logger:        logger,
		tracer:        tp.Tracer(instrumentationName),
		registrations: counter,
	}, nil
}

// Routes mounts the handler on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/confirm/{token}", h.Confirm)
}

type registerRequest struct {
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	Name       string            `json:"name"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes"`
}

type userResponse struct {
	User    *domain.User         `json:"user,omitempty"`
	Flashes []registration.Flash `json:"flashes"`
	Warning string               `json:"warning,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Register decodes a registration request and creates the user. A user whose
// post-commit step failed is still reported as created, with a warning.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registration.Register")
	defer span.End()

	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.count(ctx, outcomeInvalid)
		writeJSON(w, http.StatusBadRequest, userResponse{Flashes: []registration.Flash{}, Error: "invalid request body"})
		return
	}

	flashes := &registration.FlashBag{}
	ctx = registration.WithFeedback(ctx, flashes)
	u, err := h.reg.Register(ctx, registration.Input{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Roles:      req.Roles,
		Attributes: req.Attributes,
	})
	resp := userResponse{User: u, Flashes: flashes.Flashes()}
	if resp.Flashes == nil {
		resp.Flashes = []registration.Flash{}
	}

	var pce *registration.PostCommitError
	switch {
	case err == nil:
		h.count(ctx, outcomeCreated)
		span.SetAttributes(attribute.String("user.id", u.ID))
		writeJSON(w, http.StatusCreated, resp)
	case errors.As(err, &pce):
		h.count(ctx, outcomePartial)
		span.SetAttributes(attribute.String("user.id", u.ID), attribute.String("registration.failed_step", pce.Step))
		span.RecordError(err)
		h.logger.Warn("registration side effect failed",
			zap.String("user_id", u.ID), zap.String("step", pce.Step), zap.Error(pce.Err))
		resp.Warning = pce.Step + " failed"
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, registration.ErrInvalidInput):
		h.count(ctx, outcomeInvalid)
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, registration.ErrEmailAlreadyRegistered):
		h.count(ctx, outcomeConflict)
		resp.Error = registration.ErrEmailAlreadyRegistered.Error()
		writeJSON(w, http.StatusConflict, resp)
	default:
		h.count(ctx, outcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		h.logger.Error("registration failed", zap.Error(err))
		resp.Error = "internal error"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// Confirm marks the user behind the token in the path as confirmed.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registration.Confirm")
	defer span.End()

	u, err := h.reg.Confirm(ctx, chi.URLParam(r, "token"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, userResponse{User: u, Flashes: []registration.Flash{}})
	case errors.Is(err, registration.ErrConfirmationDisabled):
		writeJSON(w, http.StatusNotFound, userResponse{Flashes: []registration.Flash{}, Error: err.Error()})
	case errors.Is(err, registration.ErrInvalidConfirmation):
		writeJSON(w, http.StatusBadRequest, userResponse{Flashes: []registration.Flash{}, Error: registration.ErrInvalidConfirmation.Error()})
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirmation failed")
		h.logger.Error("confirmation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, userResponse{Flashes: []registration.Flash{}, Error: "internal error"})
	}
}

func (h *Handler) count(ctx context.Context, outcome string) {
	h.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
