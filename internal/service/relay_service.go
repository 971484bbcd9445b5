package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notify-relay/internal/client"
	"notify-relay/internal/formatter"
	"notify-relay/internal/model"
	"notify-relay/internal/parser"
	"notify-relay/internal/severity"
	"notify-relay/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

// Source names the upstream a notification came from. It is used as a log
// field and a metric label.
type Source string

const (
	SourceAuthentik Source = "authentik"
	SourceSlack     Source = "slack"
	SourceTracearr  Source = "tracearr"
)

const defaultSlackTitle = "Slack Notification"

// Sender delivers one formatted notification. *client.GotifyClient
// implements it.
type Sender interface {
	SendMessage(ctx context.Context, dest client.Destination, title, message string, priority int) (string, error)
}

// RelayOptions carries the per-request settings taken from the query string
// and headers.
type RelayOptions struct {
	Destination client.Destination
	Title       string
	Priority    *int
	IP          string
}

// RelayResult describes a delivered notification.
type RelayResult struct {
	ID       string `json:"id"`
	RelayID  string `json:"relay_id"`
	Source   Source `json:"-"`
	Kind     string `json:"-"`
	Title    string `json:"-"`
	Priority int    `json:"-"`
}

// RelayService turns upstream webhooks into Gotify messages.
type RelayService struct {
	sender   Sender
	location *time.Location
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRelayService creates a relay service. loc is the zone Tracearr
// timestamps are rendered in; nil means time.Local.
func NewRelayService(sender Sender, loc *time.Location, logger *zap.Logger) *RelayService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayService{
		sender:   sender,
		location: loc,
		validate: validator.New(),
		logger:   logger,
	}
}

// DecodeAuthentik reads a RawNotification from a JSON object or from a JSON
// string holding one.
func (s *RelayService) DecodeAuthentik(raw []byte) (*model.RawNotification, error) {
	var n model.RawNotification
	if err := decodeMaybeQuoted(raw, &n); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&n); err != nil {
		return nil, fmt.Errorf("%w: missing required field: body", ErrInvalidInput)
	}
	return &n, nil
}

// DecodeSlack reads a Slack incoming-webhook body. A missing text is allowed
// and relayed as an empty message.
func (s *RelayService) DecodeSlack(raw []byte) (*model.SlackMessage, error) {
	var m model.SlackMessage
	if err := decodeMaybeQuoted(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeTracearr reads a Tracearr envelope from a JSON object or from a JSON
// string holding one. event, timestamp and data are all required.
func (s *RelayService) DecodeTracearr(raw []byte) (*model.TracearrPayload, error) {
	var p model.TracearrPayload
	if err := decodeMaybeQuoted(raw, &p); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&p); err != nil || !p.HasData() {
		return nil, fmt.Errorf("%w: missing required fields: event, timestamp, or data", ErrInvalidInput)
	}
	return &p, nil
}

// RelayAuthentik formats an authentik notification according to the record
// embedded in its body and sends it. A body whose record cannot be parsed is
// relayed with the default layout.
func (s *RelayService) RelayAuthentik(ctx context.Context, n *model.RawNotification, opts RelayOptions) (*RelayResult, error) {
	if n == nil || n.Body == "" {
		return nil, fmt.Errorf("%w: missing required field: body", ErrInvalidInput)
	}

	username := firstNonEmpty(n.EventUserUsername, n.UserUsername)
	email := firstNonEmpty(n.EventUserEmail, n.UserEmail)

	kind := parser.Classify(n.Body)
	event, err := s.formatAuthentik(kind, opts.IP, n.Body, username, email)
	if err != nil {
		s.logger.Warn("Falling back to default layout",
			util.String("kind", kind.String()),
			util.ErrorField(err),
			util.String("body", util.TruncateForLog(n.Body, 200)),
		)
		kind = parser.KindDefault
		event = formatter.FormatDefaultEvent(opts.IP, username, email, n.Body)
	}

	return s.deliver(ctx, SourceAuthentik, kind.String(), event, severity.ToPriority(n.Severity), opts)
}

func (s *RelayService) formatAuthentik(kind parser.EventKind, ip, body, username, email string) (model.FormattedEvent, error) {
	switch kind {
	case parser.KindLogin:
		data, err := parser.ParseLoginEvent(body)
		if err != nil {
			return model.FormattedEvent{}, err
		}
		return formatter.FormatLoginEvent(ip, data, username, email), nil
	case parser.KindLoginFailed:
		data, err := parser.ParseLoginFailedEvent(body)
		if err != nil {
			return model.FormattedEvent{}, err
		}
		return formatter.FormatLoginFailedEvent(ip, data), nil
	case parser.KindUserWrite:
		data, err := parser.ParseUserWriteEvent(body)
		if err != nil {
			return model.FormattedEvent{}, err
		}
		return formatter.FormatUserWriteEvent(ip, data), nil
	default:
		return formatter.FormatDefaultEvent(ip, username, email, body), nil
	}
}

// RelaySlack forwards the text of a Slack-style message unchanged.
func (s *RelayService) RelaySlack(ctx context.Context, m *model.SlackMessage, opts RelayOptions) (*RelayResult, error) {
	if m == nil {
		m = &model.SlackMessage{}
	}
	event := model.FormattedEvent{Title: defaultSlackTitle, Message: m.Text}
	return s.deliver(ctx, SourceSlack, "message", event, severity.DefaultPriority, opts)
}

// RelayTracearr formats a Tracearr event and sends it. Violations take their
// priority from the violation severity.
func (s *RelayService) RelayTracearr(ctx context.Context, p *model.TracearrPayload, opts RelayOptions) (*RelayResult, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	event, err := formatter.FormatTracearrEvent(p, s.location)
	if err != nil {
		if errors.Is(err, formatter.ErrMalformedPayload) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	priority := severity.ToPriority(formatter.TracearrSeverity(p))
	return s.deliver(ctx, SourceTracearr, string(p.Event), event, priority, opts)
}

func (s *RelayService) deliver(ctx context.Context, source Source, kind string, event model.FormattedEvent, priority int, opts RelayOptions) (*RelayResult, error) {
	if opts.Title != "" {
		event.Title = opts.Title
	}
	if opts.Priority != nil {
		priority = *opts.Priority
	}
	priority = severity.Clamp(priority)

	relayID := uuid.NewString()
	start := time.Now()

	id, err := s.sender.SendMessage(ctx, opts.Destination, event.Title, event.Message, priority)
	if err != nil {
		s.logger.Error("Failed to relay notification",
			util.String("relay_id", relayID),
			util.String("source", string(source)),
			util.String("kind", kind),
			util.String("gotify_url", opts.Destination.URL),
			util.Secret("token", opts.Destination.Token),
			util.ErrorField(err),
		)
		return nil, err
	}

	s.logger.Info("Notification relayed",
		util.String("relay_id", relayID),
		util.String("source", string(source)),
		util.String("kind", kind),
		util.String("gotify_id", id),
		util.Int("priority", priority),
		util.Duration("duration", time.Since(start)),
	)

	return &RelayResult{
		ID:       id,
		RelayID:  relayID,
		Source:   source,
		Kind:     kind,
		Title:    event.Title,
		Priority: priority,
	}, nil
}

// decodeMaybeQuoted unmarshals raw into dest. Some senders post the payload
// as a JSON string, so one level of string encoding is unwrapped first.
func decodeMaybeQuoted(raw []byte, dest any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty request body", ErrInvalidInput)
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("%w: invalid JSON payload: %v", ErrInvalidInput, err)
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", ErrInvalidInput, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
