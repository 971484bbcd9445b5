package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"notify-relay/internal/client"
	"notify-relay/internal/formatter"
	"notify-relay/internal/service"
	"notify-relay/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const successMessage = "Notification forwarded to Gotify"

// RelayHandler serves the webhook endpoints.
type RelayHandler struct {
	relay   *service.RelayService
	query   *queryParser
	metrics *RelayMetrics
	logger  *zap.Logger
}

// Response is the body of every relay answer.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	ID      json.Number  `json:"id,omitempty"`
	RelayID string       `json:"relay_id,omitempty"`
	Error   string       `json:"error,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

// NewRelayHandler creates the handler. defaults supplies the Gotify
// destination when a request names none; a non-empty sharedSecret must be
// repeated in the secret query parameter.
func NewRelayHandler(relay *service.RelayService, defaults client.Destination, sharedSecret string, metrics *RelayMetrics, logger *zap.Logger) *RelayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayHandler{
		relay:   relay,
		query:   newQueryParser(defaults, sharedSecret),
		metrics: metrics,
		logger:  logger,
	}
}

func (h *RelayHandler) RegisterRoutes(router chi.Router) {
	router.Post("/authentik", h.HandleAuthentik)
	router.Post("/webhook", h.HandleAuthentik)
	router.Post("/slack", h.HandleSlack)
	router.Post("/tracearr", h.HandleTracearr)
}

type relayFunc func(ctx context.Context, body []byte, opts service.RelayOptions) (*service.RelayResult, error)

func (h *RelayHandler) HandleAuthentik(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, service.SourceAuthentik, func(ctx context.Context, body []byte, opts service.RelayOptions) (*service.RelayResult, error) {
		n, err := h.relay.DecodeAuthentik(body)
		if err != nil {
			return nil, err
		}
		return h.relay.RelayAuthentik(ctx, n, opts)
	})
}

func (h *RelayHandler) HandleSlack(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, service.SourceSlack, func(ctx context.Context, body []byte, opts service.RelayOptions) (*service.RelayResult, error) {
		m, err := h.relay.DecodeSlack(body)
		if err != nil {
			return nil, err
		}
		return h.relay.RelaySlack(ctx, m, opts)
	})
}

func (h *RelayHandler) HandleTracearr(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, service.SourceTracearr, func(ctx context.Context, body []byte, opts service.RelayOptions) (*service.RelayResult, error) {
		p, err := h.relay.DecodeTracearr(body)
		if err != nil {
			return nil, err
		}
		return h.relay.RelayTracearr(ctx, p, opts)
	})
}

func (h *RelayHandler) handle(w http.ResponseWriter, r *http.Request, source service.Source, relay relayFunc) {
	start := time.Now()
	statusCode := http.StatusOK
	defer func() {
		h.metrics.Observe(string(source), statusLabel(statusCode), time.Since(start))
	}()

	q, err := h.query.Parse(r.URL.Query())
	if err != nil {
		statusCode = h.getStatusCode(err)
		h.respondWithError(w, statusCode, err, "Invalid request parameters")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		statusCode = http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			statusCode = http.StatusRequestEntityTooLarge
		}
		h.respondWithError(w, statusCode, err, "Failed to read request body")
		return
	}

	h.logger.Debug("Webhook received",
		util.String("source", string(source)),
		util.String("body", util.TruncateForLog(string(body), 500)),
	)

	res, err := relay(r.Context(), body, q.Options(r.Header.Get("ip")))
	if err != nil {
		statusCode = h.getStatusCode(err)
		h.respondWithError(w, statusCode, err, errorMessage(statusCode, err))
		return
	}

	h.respondWithJSON(w, statusCode, Response{
		Success: true,
		Message: successMessage,
		ID:      json.Number(res.ID),
		RelayID: res.RelayID,
	})
}

func (h *RelayHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func (h *RelayHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	resp := Response{
		Success: false,
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}
	h.respondWithJSON(w, statusCode, resp)
}

func (h *RelayHandler) getStatusCode(err error) int {
	var delivery *client.DeliveryError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, formatter.ErrUnsupportedEventType):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.As(err, &delivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the caller-facing detail. Client mistakes and Gotify
// rejections are echoed; anything else stays generic.
func errorMessage(statusCode int, err error) string {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusBadGateway:
		return err.Error()
	default:
		if errors.Is(err, client.ErrConfiguration) {
			return err.Error()
		}
		return "Failed to send message to Gotify"
	}
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode < 300:
		return "success"
	case statusCode == http.StatusUnauthorized:
		return "unauthorized"
	case statusCode == http.StatusBadGateway:
		return "upstream_error"
	case statusCode < 500:
		return "invalid"
	default:
		return "error"
	}
}
