package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-relay/internal/model"
	"notify-relay/internal/parser"
)

func ptr[T any](v T) *T { return &v }

func TestLinesResultIsIdempotent(t *testing.T) {
	var l Lines
	l.Add("one")
	l.AddField("Two", "2")

	first := l.Result()
	second := l.Result()
	assert.Equal(t, first, second)
	assert.Equal(t, "one\n\n**Two:** 2", first)
	assert.Equal(t, 2, l.Len())

	lines := l.Lines()
	lines[0] = "mutated"
	assert.Equal(t, first, l.Result())

	l.Clear()
	assert.Equal(t, "", l.Result())
	assert.Zero(t, l.Len())
}

func TestFormatLoginEventFromParsedBody(t *testing.T) {
	data, err := parser.ParseLoginEvent("login: {'auth_method': 'password', 'auth_method_args': {'known_device': True, 'mfa_devices': []}}")
	require.NoError(t, err)

	got := FormatLoginEvent("", data, "", "")

	assert.Equal(t, "Login: Unknown user", got.Title)
	assert.NotContains(t, got.Message, "User:")
	assert.Contains(t, got.Message, "✅ Known device")
	assert.NotContains(t, got.Message, "MFA Devices")
	assert.NotContains(t, got.Message, "IP Address")
}

func TestFormatLoginEventFullComposition(t *testing.T) {
	data := &model.LoginEventData{
		AuthMethodArgs: &model.AuthMethodArgs{
			KnownDevice: ptr(false),
			MFADevices:  []model.MFADevice{{App: "authentik_stages_authenticator_totp", Name: "phone", ModelName: "totpdevice"}},
		},
		Geo: &model.Geo{Continent: "EU", Country: "DE", City: "Berlin", Lat: ptr(52.52), Long: ptr(13.405)},
		ASN: &model.ASN{ASN: ptr(int64(3320)), ASOrg: "Deutsche Telekom AG", Network: "93.192.0.0/10"},
	}

	got := FormatLoginEvent("93.200.1.1", data, "akadmin", "admin@example.com")

	assert.Equal(t, "Login: akadmin", got.Title)
	want := strings.Join([]string{
		"🔐 **Login Event**\n",
		"\n**User:** akadmin (admin@example.com)",
		"\n**Device Status:** ⚠️ Unknown device",
		"\n**MFA Devices Used:**\n- authentik_stages_authenticator_totp (phone, totpdevice)",
		"\n**IP Address:** 93.200.1.1",
		"\n**Location:** \n - Continent: 🌍 EU\n - Country: 🇩🇪 DE\n - City: Berlin",
		"\n**Coordinates:** 52.52, 13.405",
		"\n[View on Google Maps](https://www.google.com/maps?q=52.52,13.405)",
		"\n**ASN:** ASN 3320 Deutsche Telekom AG (93.192.0.0/10)",
	}, "\n")
	assert.Equal(t, want, got.Message)
}

func TestUserLineVariants(t *testing.T) {
	tests := []struct {
		username, email, want string
	}{
		{"bob", "", "\n**User:** bob"},
		{"", "bob@example.com", "\n**User:** bob@example.com"},
		{"bob", "bob@example.com", "\n**User:** bob (bob@example.com)"},
		{"", "", ""},
	}
	for _, tt := range tests {
		var l Lines
		extractUserInfo(&l, tt.username, tt.email)
		assert.Equal(t, tt.want, l.Result())
	}
}

func TestGeoLines(t *testing.T) {
	t.Run("city only", func(t *testing.T) {
		var l Lines
		extractGeoLocation(&l, &model.Geo{City: "Berlin"})
		msg := l.Result()
		assert.Equal(t, "\n**Location:** \n - City: Berlin", msg)
		assert.NotContains(t, msg, "Coordinates")
	})

	t.Run("city with coordinates", func(t *testing.T) {
		var l Lines
		extractGeoLocation(&l, &model.Geo{City: "Berlin", Lat: ptr(52.52), Long: ptr(-13.4)})
		msg := l.Result()
		assert.Contains(t, msg, "**Location:** \n - City: Berlin")
		assert.Contains(t, msg, "**Coordinates:** 52.52, -13.4")
		assert.Contains(t, msg, "(https://www.google.com/maps?q=52.52,-13.4)")
	})

	t.Run("only one coordinate", func(t *testing.T) {
		var l Lines
		extractGeoLocation(&l, &model.Geo{Lat: ptr(1.0)})
		assert.Zero(t, l.Len())
	})

	t.Run("absent", func(t *testing.T) {
		var l Lines
		extractGeoLocation(&l, nil)
		assert.Zero(t, l.Len())
	})
}

func TestASNLine(t *testing.T) {
	var l Lines
	extractASN(&l, &model.ASN{})
	assert.Zero(t, l.Len())

	extractASN(&l, &model.ASN{ASOrg: "Example"})
	assert.Equal(t, "\n**ASN:** Example", l.Result())
}

func TestHTTPRequestLine(t *testing.T) {
	var l Lines
	extractHTTPRequest(&l, &model.HTTPRequest{UserAgent: "curl"})
	assert.Zero(t, l.Len())

	extractHTTPRequest(&l, &model.HTTPRequest{Path: "/api/v3/core/users/"})
	assert.Equal(t, "\n**Request:** N/A /api/v3/core/users/", l.Result())
}

func TestFormatLoginFailedEvent(t *testing.T) {
	data := &model.LoginFailedEventData{
		Username: "mallory",
		Stage:    &model.Stage{App: "authentik_stages_password", Name: "default-password", ModelName: "passwordstage"},
	}

	got := FormatLoginFailedEvent("10.0.0.1", data)

	assert.Equal(t, "Login Failed: mallory", got.Title)
	assert.Equal(t, strings.Join([]string{
		"❌ **Login Failed Event**",
		"\n**Username:** mallory",
		"\n**IP Address:** 10.0.0.1",
		"\n**Failed Stage:** authentik_stages_password (default-password, passwordstage)",
	}, "\n"), got.Message)

	assert.Equal(t, "Login Failed: Unknown user", FormatLoginFailedEvent("", &model.LoginFailedEventData{}).Title)
}

func TestFormatUserWriteEvent(t *testing.T) {
	created := &model.UserWriteEventData{
		Username:    "bob",
		Name:        "Bob",
		Email:       "bob@example.com",
		Created:     ptr(true),
		Attributes:  &model.UserAttributes{Settings: &model.UserSettings{Locale: "de"}},
		HTTPRequest: &model.HTTPRequest{Method: "POST", Path: "/api/v3/core/users/"},
	}
	got := FormatUserWriteEvent("", created)
	assert.Equal(t, "User Created: bob", got.Title)
	assert.Equal(t, strings.Join([]string{
		"👤 **User Created**\n",
		"\n**Username:** bob",
		"\n**Name:** Bob",
		"\n**Email:** bob@example.com",
		"\n**Locale:** de",
		"\n**Request:** POST /api/v3/core/users/",
	}, "\n"), got.Message)

	updated := FormatUserWriteEvent("", &model.UserWriteEventData{Name: "Alice", Created: ptr(false)})
	assert.Equal(t, "User Updated: Alice", updated.Title)
	assert.True(t, strings.HasPrefix(updated.Message, "✏️ **User Updated**"))

	assert.Equal(t, "User Updated: Unknown user", FormatUserWriteEvent("", &model.UserWriteEventData{}).Title)
}

func TestFormatDefaultEvent(t *testing.T) {
	got := FormatDefaultEvent("", "", "", "Custom alert")
	assert.Equal(t, "Notification from System", got.Title)
	assert.True(t, strings.HasSuffix(got.Message, "User: N/A (N/A)"))
	assert.Contains(t, got.Message, "Custom alert")

	withUser := FormatDefaultEvent("1.2.3.4", "bob", "bob@example.com", "Custom alert")
	assert.Equal(t, "Notification from bob", withUser.Title)
	assert.Contains(t, withUser.Message, "**IP Address:** 1.2.3.4")
	assert.True(t, strings.HasSuffix(withUser.Message, "User: bob (bob@example.com)"))
}

func TestEmoji(t *testing.T) {
	assert.Equal(t, "🇩🇪", CountryEmoji("de"))
	assert.Equal(t, "🇺🇸", CountryEmoji("US"))
	assert.Equal(t, "", CountryEmoji("Germany"))
	assert.Equal(t, "", CountryEmoji("1A"))
	assert.Equal(t, "🌎", ContinentEmoji("NA"))
	assert.Equal(t, "🌐", ContinentEmoji("??"))
}
