package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-relay/internal/model"
)

const testTimestamp = "2025-03-01T18:30:00Z"

func tracearrPayload(t *testing.T, event model.TracearrEventType, data any) *model.TracearrPayload {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &model.TracearrPayload{Event: event, Timestamp: testTimestamp, Data: raw}
}

func TestFormatTracearrEventVariants(t *testing.T) {
	user := map[string]any{"id": "u1", "username": "jdoe", "displayName": "John"}
	media := map[string]any{"title": "The Show", "subtitle": "S01E02", "type": "episode", "year": 2024}

	tests := []struct {
		name      string
		event     model.TracearrEventType
		data      any
		wantTitle string
		contains  []string
		absent    []string
	}{
		{
			name:  "violation",
			event: model.TracearrViolationDetected,
			data: map[string]any{
				"user":      user,
				"rule":      map[string]any{"id": "r1", "type": "concurrent_streams", "name": "Max Streams"},
				"violation": map[string]any{"id": "v1", "severity": "high", "details": map[string]any{"streams": 3}},
			},
			wantTitle: "Violation: John - Max Streams",
			contains:  []string{"🚨 **Violation Detected**", "**User:** John (@jdoe)", "**Rule:** Max Streams (concurrent_streams)", "**Severity:** high", "**Details:** {\n  \"streams\": 3\n}"},
		},
		{
			name:      "violation without details",
			event:     model.TracearrViolationDetected,
			data:      map[string]any{"user": user, "rule": map[string]any{"name": "R", "type": "t"}, "violation": map[string]any{"severity": "low"}},
			wantTitle: "Violation: John - R",
			absent:    []string{"Details"},
		},
		{
			name:  "stream started",
			event: model.TracearrStreamStarted,
			data: map[string]any{
				"user":     user,
				"media":    media,
				"playback": map[string]any{"type": "transcode", "quality": "1080p", "player": "Plex Web"},
				"location": map[string]any{"city": "Paris", "country": "France"},
			},
			wantTitle: "Stream Started: John - The Show",
			contains:  []string{"**Episode:** S01E02", "**Year:** 2024", "**Playback:** transcode", "**Quality:** 1080p", "**Player:** Plex Web", "**Location:** Paris, France"},
		},
		{
			name:  "stream started country only",
			event: model.TracearrStreamStarted,
			data: map[string]any{
				"user":     user,
				"media":    map[string]any{"title": "Film", "type": "movie"},
				"playback": map[string]any{"type": "direct"},
				"location": map[string]any{"country": "France"},
			},
			wantTitle: "Stream Started: John - Film",
			contains:  []string{"**Location:** France"},
			absent:    []string{"Episode", "Year", "Quality", "Player"},
		},
		{
			name:      "stream stopped",
			event:     model.TracearrStreamStopped,
			data:      map[string]any{"user": user, "media": media, "session": map[string]any{"durationMs": 3_659_000}},
			wantTitle: "Stream Stopped: John - The Show",
			contains:  []string{"⏹️ **Stream Stopped**", "**Duration:** 60 minutes"},
		},
		{
			name:      "server down",
			event:     model.TracearrServerDown,
			data:      map[string]any{"serverName": "plex-main", "serverType": "plex"},
			wantTitle: "Server Down: plex-main",
			contains:  []string{"🔴 **Server Down**", "**Server:** plex-main", "**Type:** plex"},
		},
		{
			name:      "server up",
			event:     model.TracearrServerUp,
			data:      map[string]any{"serverName": "plex-main", "serverType": "plex"},
			wantTitle: "Server Up: plex-main",
			contains:  []string{"🟢 **Server Up**"},
		},
		{
			name:      "new device",
			event:     model.TracearrNewDevice,
			data:      map[string]any{"userName": "jdoe", "deviceName": "iPhone", "platform": "iOS", "location": "Lyon"},
			wantTitle: "New Device: jdoe - iPhone",
			contains:  []string{"📱 **New Device Detected**", "**Platform:** iOS", "**Location:** Lyon"},
		},
		{
			name:      "trust score increased",
			event:     model.TracearrTrustScoreChanged,
			data:      map[string]any{"userName": "jdoe", "previousScore": 70, "newScore": 85.5, "reason": "clean week"},
			wantTitle: "Trust Score Increased: jdoe",
			contains:  []string{"📈", "**Previous Score:** 70", "**New Score:** 85.5", "**Reason:** clean week"},
		},
		{
			name:      "trust score decreased",
			event:     model.TracearrTrustScoreChanged,
			data:      map[string]any{"userName": "jdoe", "previousScore": 70, "newScore": 40, "reason": "sharing"},
			wantTitle: "Trust Score Decreased: jdoe",
			contains:  []string{"📉 **Trust Score Decreased**"},
		},
		{
			name:      "test",
			event:     model.TracearrTest,
			data:      map[string]any{"message": "ping"},
			wantTitle: "Tracearr Test: ping",
			contains:  []string{"🧪 **Tracearr Test Event**", "**Message:** ping"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatTracearrEvent(tracearrPayload(t, tt.event, tt.data), time.UTC)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, got.Title)
			assert.True(t, strings.HasSuffix(got.Message, "**Timestamp:** 2025-03-01 18:30:00 UTC"), got.Message)
			for _, s := range tt.contains {
				assert.Contains(t, got.Message, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, got.Message, s)
			}
		})
	}
}

func TestFormatTracearrEventUnsupported(t *testing.T) {
	_, err := FormatTracearrEvent(tracearrPayload(t, "library_scan", map[string]any{}), time.UTC)
	assert.ErrorIs(t, err, ErrUnsupportedEventType)
}

func TestFormatTracearrEventMalformedData(t *testing.T) {
	p := &model.TracearrPayload{Event: model.TracearrTest, Timestamp: testTimestamp, Data: json.RawMessage(`"just a string"`)}
	_, err := FormatTracearrEvent(p, time.UTC)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestRenderTimestamp(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	assert.Equal(t, "2025-03-01 19:30:00 CET", renderTimestamp(testTimestamp, berlin))
	assert.Equal(t, "2025-03-01 18:30:00 UTC", renderTimestamp("2025-03-01T18:30:00.123Z", time.UTC))
	assert.Equal(t, "yesterday", renderTimestamp("yesterday", time.UTC))
}

func TestTracearrSeverity(t *testing.T) {
	p := tracearrPayload(t, model.TracearrViolationDetected, map[string]any{"violation": map[string]any{"severity": "critical"}})
	assert.Equal(t, "critical", TracearrSeverity(p))

	assert.Equal(t, "", TracearrSeverity(tracearrPayload(t, model.TracearrTest, map[string]any{"message": "x"})))
}
