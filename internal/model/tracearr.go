package model

import "encoding/json"

type TracearrEventType string

const (
	TracearrViolationDetected TracearrEventType = "violation_detected"
	TracearrStreamStarted     TracearrEventType = "stream_started"
	TracearrStreamStopped     TracearrEventType = "stream_stopped"
	TracearrServerDown        TracearrEventType = "server_down"
	TracearrServerUp          TracearrEventType = "server_up"
	TracearrNewDevice         TracearrEventType = "new_device"
	TracearrTrustScoreChanged TracearrEventType = "trust_score_changed"
	TracearrTest              TracearrEventType = "test"
)

// TracearrPayload is the webhook envelope. Data is decoded lazily into the
// variant struct selected by Event.
type TracearrPayload struct {
	Event     TracearrEventType `json:"event" validate:"required"`
	Timestamp string            `json:"timestamp" validate:"required"`
	Data      json.RawMessage   `json:"data"`
}

// HasData reports whether data was present and not JSON null.
func (p *TracearrPayload) HasData() bool {
	return len(p.Data) > 0 && string(p.Data) != "null"
}

type TracearrUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type TracearrRule struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type TracearrViolation struct {
	ID       string          `json:"id"`
	Severity string          `json:"severity"`
	Details  json.RawMessage `json:"details,omitempty"`
}

type TracearrMedia struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Type     string `json:"type"`
	Year     int    `json:"year,omitempty"`
}

type TracearrPlayback struct {
	Type    string `json:"type"`
	Quality string `json:"quality,omitempty"`
	Player  string `json:"player,omitempty"`
}

type TracearrLocation struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type TracearrSession struct {
	DurationMs int64 `json:"durationMs,omitempty"`
}

type TracearrViolationData struct {
	User      TracearrUser      `json:"user"`
	Rule      TracearrRule      `json:"rule"`
	Violation TracearrViolation `json:"violation"`
}

type TracearrStreamStartedData struct {
	User     TracearrUser     `json:"user"`
	Media    TracearrMedia    `json:"media"`
	Playback TracearrPlayback `json:"playback"`
	Location TracearrLocation `json:"location"`
}

type TracearrStreamStoppedData struct {
	User    TracearrUser    `json:"user"`
	Media   TracearrMedia   `json:"media"`
	Session TracearrSession `json:"session"`
}

type TracearrServerData struct {
	ServerName string `json:"serverName"`
	ServerType string `json:"serverType"`
}

type TracearrNewDeviceData struct {
	UserName   string `json:"userName"`
	DeviceName string `json:"deviceName"`
	Platform   string `json:"platform"`
	Location   string `json:"location,omitempty"`
}

type TracearrTrustScoreData struct {
	UserName      string  `json:"userName"`
	PreviousScore float64 `json:"previousScore"`
	NewScore      float64 `json:"newScore"`
	Reason        string  `json:"reason"`
}

type TracearrTestData struct {
	Message string `json:"message"`
}
