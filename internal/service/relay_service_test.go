package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"notify-relay/internal/client"
	"notify-relay/internal/formatter"
	"notify-relay/internal/model"
)

type sentMessage struct {
	dest     client.Destination
	title    string
	message  string
	priority int
}

type senderStub struct {
	calls []sentMessage
	id    string
	err   error
}

func (s *senderStub) SendMessage(ctx context.Context, dest client.Destination, title, message string, priority int) (string, error) {
	s.calls = append(s.calls, sentMessage{dest: dest, title: title, message: message, priority: priority})
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

var testDest = client.Destination{URL: "http://gotify.local", Token: "AppToken123"}

func newTestService(stub *senderStub) (*RelayService, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewRelayService(stub, time.UTC, zap.New(core)), logs
}

func TestRelayAuthentikLogin(t *testing.T) {
	stub := &senderStub{id: "7"}
	svc, _ := newTestService(stub)

	n := &model.RawNotification{
		Body:              "login: {'auth_method': 'password', 'auth_method_args': {'known_device': False}, 'geo': {'city': 'Berlin', 'lat': 52.5, 'long': 13.4}}",
		Severity:          "notice",
		EventUserUsername: "akadmin",
		EventUserEmail:    "root@example.com",
	}

	res, err := svc.RelayAuthentik(context.Background(), n, RelayOptions{Destination: testDest, IP: "10.1.2.3"})
	require.NoError(t, err)
	require.Len(t, stub.calls, 1)

	call := stub.calls[0]
	assert.Equal(t, testDest, call.dest)
	assert.Equal(t, "Login: akadmin", call.title)
	assert.Equal(t, 3, call.priority)
	assert.Contains(t, call.message, "**User:** akadmin (root@example.com)")
	assert.Contains(t, call.message, "⚠️ Unknown device")
	assert.Contains(t, call.message, "**IP Address:** 10.1.2.3")

	assert.Equal(t, "7", res.ID)
	assert.NotEmpty(t, res.RelayID)
	assert.Equal(t, SourceAuthentik, res.Source)
	assert.Equal(t, "login", res.Kind)
}

func TestRelayAuthentikUsesAccountFieldsWhenEventUserMissing(t *testing.T) {
	stub := &senderStub{id: "1"}
	svc, _ := newTestService(stub)

	_, err := svc.RelayAuthentik(context.Background(), &model.RawNotification{
		Body:         "Something happened",
		UserUsername: "bob",
	}, RelayOptions{Destination: testDest})
	require.NoError(t, err)

	assert.Equal(t, "Notification from bob", stub.calls[0].title)
	assert.Equal(t, 5, stub.calls[0].priority)
}

func TestRelayAuthentikFallsBackOnParseFailure(t *testing.T) {
	stub := &senderStub{id: "1"}
	svc, logs := newTestService(stub)

	body := "login: {'auth_method': 'password'"
	res, err := svc.RelayAuthentik(context.Background(), &model.RawNotification{Body: body}, RelayOptions{Destination: testDest})
	require.NoError(t, err)

	assert.Equal(t, "default", res.Kind)
	assert.Equal(t, "Notification from System", stub.calls[0].title)
	assert.Contains(t, stub.calls[0].message, body)
	assert.Equal(t, 1, logs.FilterMessage("Falling back to default layout").Len())
}

func TestRelayAuthentikRequiresBody(t *testing.T) {
	stub := &senderStub{}
	svc, _ := newTestService(stub)

	_, err := svc.RelayAuthentik(context.Background(), &model.RawNotification{Severity: "critical"}, RelayOptions{Destination: testDest})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, stub.calls)
}

func TestRelayOverrides(t *testing.T) {
	stub := &senderStub{id: "1"}
	svc, _ := newTestService(stub)
	prio := 42

	res, err := svc.RelayAuthentik(context.Background(), &model.RawNotification{Body: "x", Severity: "info"},
		RelayOptions{Destination: testDest, Title: "Custom", Priority: &prio})
	require.NoError(t, err)

	assert.Equal(t, "Custom", stub.calls[0].title)
	assert.Equal(t, 10, stub.calls[0].priority)
	assert.Equal(t, 10, res.Priority)
}

func TestRelaySlack(t *testing.T) {
	stub := &senderStub{id: "3"}
	svc, _ := newTestService(stub)

	_, err := svc.RelaySlack(context.Background(), &model.SlackMessage{Text: "deploy finished"}, RelayOptions{Destination: testDest})
	require.NoError(t, err)
	assert.Equal(t, sentMessage{dest: testDest, title: "Slack Notification", message: "deploy finished", priority: 5}, stub.calls[0])

	_, err = svc.RelaySlack(context.Background(), &model.SlackMessage{}, RelayOptions{Destination: testDest, Title: "CI"})
	require.NoError(t, err)
	assert.Equal(t, "CI", stub.calls[1].title)
	assert.Equal(t, "", stub.calls[1].message)
}

func TestRelayTracearr(t *testing.T) {
	stub := &senderStub{id: "9"}
	svc, _ := newTestService(stub)

	p, err := svc.DecodeTracearr([]byte(`{"event":"violation_detected","timestamp":"2025-03-01T18:30:00Z","data":{"user":{"username":"jdoe","displayName":"John"},"rule":{"name":"Max Streams","type":"concurrent_streams"},"violation":{"severity":"high"}}}`))
	require.NoError(t, err)

	res, err := svc.RelayTracearr(context.Background(), p, RelayOptions{Destination: testDest})
	require.NoError(t, err)
	assert.Equal(t, "violation_detected", res.Kind)
	assert.Equal(t, "Violation: John - Max Streams", stub.calls[0].title)
	assert.Equal(t, 8, stub.calls[0].priority)
	assert.Contains(t, stub.calls[0].message, "2025-03-01 18:30:00 UTC")
}

func TestRelayTracearrErrors(t *testing.T) {
	stub := &senderStub{}
	svc, _ := newTestService(stub)

	unsupported := &model.TracearrPayload{Event: "library_scan", Timestamp: "t", Data: []byte(`{}`)}
	_, err := svc.RelayTracearr(context.Background(), unsupported, RelayOptions{Destination: testDest})
	assert.ErrorIs(t, err, formatter.ErrUnsupportedEventType)

	malformed := &model.TracearrPayload{Event: model.TracearrTest, Timestamp: "t", Data: []byte(`[1,2]`)}
	_, err = svc.RelayTracearr(context.Background(), malformed, RelayOptions{Destination: testDest})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, stub.calls)
}

func TestDecodeTracearr(t *testing.T) {
	svc, _ := newTestService(&senderStub{})

	quoted := `"{\"event\":\"test\",\"timestamp\":\"2025-03-01T18:30:00Z\",\"data\":{\"message\":\"hi\"}}"`
	p, err := svc.DecodeTracearr([]byte(quoted))
	require.NoError(t, err)
	assert.Equal(t, model.TracearrTest, p.Event)

	for name, body := range map[string]string{
		"empty":             "",
		"invalid json":      "{not json",
		"missing event":     `{"timestamp":"t","data":{}}`,
		"missing timestamp": `{"event":"test","data":{}}`,
		"missing data":      `{"event":"test","timestamp":"t"}`,
		"null data":         `{"event":"test","timestamp":"t","data":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.DecodeTracearr([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDecodeAuthentik(t *testing.T) {
	svc, _ := newTestService(&senderStub{})

	n, err := svc.DecodeAuthentik([]byte(`{"body":"hello","severity":"alert","event_user_username":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", n.Body)
	assert.Equal(t, "bob", n.EventUserUsername)

	_, err = svc.DecodeAuthentik([]byte(`{"severity":"alert"}`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.DecodeAuthentik([]byte(`"{\"body\":\"quoted\"}"`))
	assert.NoError(t, err)
}

func TestRelaySenderErrorIsReturnedAndLogged(t *testing.T) {
	stub := &senderStub{err: &client.DeliveryError{StatusCode: 401, Body: "unauthorized"}}
	svc, logs := newTestService(stub)

	_, err := svc.RelaySlack(context.Background(), &model.SlackMessage{Text: "x"}, RelayOptions{Destination: testDest})

	var delivery *client.DeliveryError
	require.True(t, errors.As(err, &delivery))
	entries := logs.FilterMessage("Failed to relay notification").All()
	require.Len(t, entries, 1)
	token := entries[0].ContextMap()["token"].(string)
	assert.True(t, strings.HasPrefix(token, "Ap"))
	assert.NotContains(t, token, "Token123")
}
