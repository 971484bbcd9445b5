package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"notify-relay/internal/model"
)

var (
	ErrUnsupportedEventType = errors.New("unsupported event type")
	ErrMalformedPayload     = errors.New("malformed event payload")
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// FormatTracearrEvent renders a Tracearr webhook. loc is the zone timestamps
// are shown in; nil means time.Local.
func FormatTracearrEvent(p *model.TracearrPayload, loc *time.Location) (model.FormattedEvent, error) {
	if loc == nil {
		loc = time.Local
	}
	ts := renderTimestamp(p.Timestamp, loc)

	switch p.Event {
	case model.TracearrViolationDetected:
		var d model.TracearrViolationData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatViolation(&d, ts), nil
	case model.TracearrStreamStarted:
		var d model.TracearrStreamStartedData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatStreamStarted(&d, ts), nil
	case model.TracearrStreamStopped:
		var d model.TracearrStreamStoppedData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatStreamStopped(&d, ts), nil
	case model.TracearrServerDown, model.TracearrServerUp:
		var d model.TracearrServerData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatServer(&d, p.Event == model.TracearrServerDown, ts), nil
	case model.TracearrNewDevice:
		var d model.TracearrNewDeviceData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatNewDevice(&d, ts), nil
	case model.TracearrTrustScoreChanged:
		var d model.TracearrTrustScoreData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatTrustScore(&d, ts), nil
	case model.TracearrTest:
		var d model.TracearrTestData
		if err := decodeData(p, &d); err != nil {
			return model.FormattedEvent{}, err
		}
		return formatTest(&d, ts), nil
	default:
		return model.FormattedEvent{}, fmt.Errorf("%w: %q", ErrUnsupportedEventType, p.Event)
	}
}

// TracearrSeverity returns the upstream severity of a violation event, or ""
// for every other event.
func TracearrSeverity(p *model.TracearrPayload) string {
	if p.Event != model.TracearrViolationDetected {
		return ""
	}
	var d model.TracearrViolationData
	if err := json.Unmarshal(p.Data, &d); err != nil {
		return ""
	}
	return d.Violation.Severity
}

func decodeData(p *model.TracearrPayload, dest any) error {
	if err := json.Unmarshal(p.Data, dest); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedPayload, p.Event, err)
	}
	return nil
}

// renderTimestamp shows an ISO-8601 timestamp in loc. Unparsable input is
// shown as received.
func renderTimestamp(raw string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.In(loc).Format(timestampLayout)
}

func formatViolation(d *model.TracearrViolationData, ts string) model.FormattedEvent {
	var l Lines
	l.Add("🚨 **Violation Detected**\n")
	l.AddField("User", fmt.Sprintf("%s (@%s)", d.User.DisplayName, d.User.Username))
	l.AddField("Rule", fmt.Sprintf("%s (%s)", d.Rule.Name, d.Rule.Type))
	l.AddField("Severity", d.Violation.Severity)
	if details := indentDetails(d.Violation.Details); details != "" {
		l.AddField("Details", details)
	}
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   fmt.Sprintf("Violation: %s - %s", d.User.DisplayName, d.Rule.Name),
		Message: l.Result(),
	}
}

func indentDetails(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func formatStreamStarted(d *model.TracearrStreamStartedData, ts string) model.FormattedEvent {
	var l Lines
	l.Add("▶️ **Stream Started**\n")
	l.AddField("User", fmt.Sprintf("%s (@%s)", d.User.DisplayName, d.User.Username))
	l.AddField("Media", d.Media.Title)
	if d.Media.Subtitle != "" {
		l.AddField("Episode", d.Media.Subtitle)
	}
	l.AddField("Type", d.Media.Type)
	if d.Media.Year != 0 {
		l.AddField("Year", strconv.Itoa(d.Media.Year))
	}
	l.AddField("Playback", d.Playback.Type)
	if d.Playback.Quality != "" {
		l.AddField("Quality", d.Playback.Quality)
	}
	if d.Playback.Player != "" {
		l.AddField("Player", d.Playback.Player)
	}
	switch loc := d.Location; {
	case loc.City != "" && loc.Country != "":
		l.AddField("Location", loc.City+", "+loc.Country)
	case loc.City != "" || loc.Country != "":
		l.AddField("Location", loc.City+loc.Country)
	}
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   fmt.Sprintf("Stream Started: %s - %s", d.User.DisplayName, d.Media.Title),
		Message: l.Result(),
	}
}

func formatStreamStopped(d *model.TracearrStreamStoppedData, ts string) model.FormattedEvent {
	var l Lines
	l.Add("⏹️ **Stream Stopped**\n")
	l.AddField("User", fmt.Sprintf("%s (@%s)", d.User.DisplayName, d.User.Username))
	l.AddField("Media", d.Media.Title)
	if d.Media.Subtitle != "" {
		l.AddField("Episode", d.Media.Subtitle)
	}
	l.AddField("Type", d.Media.Type)
	if d.Session.DurationMs != 0 {
		l.AddField("Duration", fmt.Sprintf("%d minutes", d.Session.DurationMs/60000))
	}
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   fmt.Sprintf("Stream Stopped: %s - %s", d.User.DisplayName, d.Media.Title),
		Message: l.Result(),
	}
}

func formatServer(d *model.TracearrServerData, down bool, ts string) model.FormattedEvent {
	icon, status := "🟢", "Up"
	if down {
		icon, status = "🔴", "Down"
	}

	var l Lines
	l.Add(fmt.Sprintf("%s **Server %s**\n", icon, status))
	l.AddField("Server", d.ServerName)
	l.AddField("Type", d.ServerType)
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   fmt.Sprintf("Server %s: %s", status, d.ServerName),
		Message: l.Result(),
	}
}

func formatNewDevice(d *model.TracearrNewDeviceData, ts string) model.FormattedEvent {
	var l Lines
	l.Add("📱 **New Device Detected**\n")
	l.AddField("User", d.UserName)
	l.AddField("Device", d.DeviceName)
	l.AddField("Platform", d.Platform)
	if d.Location != "" {
		l.AddField("Location", d.Location)
	}
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   fmt.Sprintf("New Device: %s - %s", d.UserName, d.DeviceName),
		Message: l.Result(),
	}
}

func formatTrustScore(d *model.TracearrTrustScoreData, ts string) model.FormattedEvent {
	icon, change := "📉", "Decreased"
	if d.NewScore > d.PreviousScore {
		icon, change = "📈", "Increased"
	}

	var l Lines
	l.Add(fmt.Sprintf("%s **Trust Score %s**\n", icon, change))
	l.AddField("User", d.UserName)
	l.AddField("Previous Score", formatNumber(d.PreviousScore))
	l.AddField("New Score", formatNumber(d.NewScore))
	l.AddField("Reason", d.Reason)
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   fmt.Sprintf("Trust Score %s: %s", change, d.UserName),
		Message: l.Result(),
	}
}

func formatTest(d *model.TracearrTestData, ts string) model.FormattedEvent {
	var l Lines
	l.Add("🧪 **Tracearr Test Event**\n")
	l.AddField("Message", d.Message)
	l.AddField("Timestamp", ts)

	return model.FormattedEvent{
		Title:   "Tracearr Test: " + d.Message,
		Message: l.Result(),
	}
}
