package model

// RawNotification is the body authentik's webhook transport posts for every
// notification. Body is the rendered event text; structured event data is
// embedded in it as a Python dict repr.
type RawNotification struct {
	Body              string `json:"body" validate:"required"`
	Severity          string `json:"severity,omitempty"`
	UserEmail         string `json:"user_email,omitempty"`
	UserUsername      string `json:"user_username,omitempty"`
	EventUserEmail    string `json:"event_user_email,omitempty"`
	EventUserUsername string `json:"event_user_username,omitempty"`
}

type HTTPRequest struct {
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
}

// MFADevice.PK is a number for most device types and a string for WebAuthn.
type MFADevice struct {
	PK        any    `json:"pk,omitempty"`
	App       string `json:"app,omitempty"`
	Name      string `json:"name,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

type AuthMethodArgs struct {
	KnownDevice *bool       `json:"known_device,omitempty"`
	MFADevices  []MFADevice `json:"mfa_devices,omitempty"`
}

type Geo struct {
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	Continent string   `json:"continent,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Long      *float64 `json:"long,omitempty"`
}

type ASN struct {
	ASN     *int64 `json:"asn,omitempty"`
	ASOrg   string `json:"as_org,omitempty"`
	Network string `json:"network,omitempty"`
}

type Stage struct {
	PK        any    `json:"pk,omitempty"`
	App       string `json:"app,omitempty"`
	Name      string `json:"name,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

// LoginEventData is the record embedded after "login:".
type LoginEventData struct {
	AuthMethod     string          `json:"auth_method,omitempty"`
	HTTPRequest    *HTTPRequest    `json:"http_request,omitempty"`
	AuthMethodArgs *AuthMethodArgs `json:"auth_method_args,omitempty"`
	Geo            *Geo            `json:"geo,omitempty"`
	ASN            *ASN            `json:"asn,omitempty"`
}

// LoginFailedEventData is the record embedded after "login_failed:".
type LoginFailedEventData struct {
	Stage          *Stage          `json:"stage,omitempty"`
	Username       string          `json:"username,omitempty"`
	HTTPRequest    *HTTPRequest    `json:"http_request,omitempty"`
	AuthMethodArgs *AuthMethodArgs `json:"auth_method_args,omitempty"`
	Geo            *Geo            `json:"geo,omitempty"`
	ASN            *ASN            `json:"asn,omitempty"`
}

type UserSettings struct {
	Locale string `json:"locale,omitempty"`
}

type UserAttributes struct {
	Settings *UserSettings `json:"settings,omitempty"`
}

// UserWriteEventData is the record embedded after "user_write:".
type UserWriteEventData struct {
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Username    string          `json:"username,omitempty"`
	Created     *bool           `json:"created,omitempty"`
	Attributes  *UserAttributes `json:"attributes,omitempty"`
	HTTPRequest *HTTPRequest    `json:"http_request,omitempty"`
	Geo         *Geo            `json:"geo,omitempty"`
	ASN         *ASN            `json:"asn,omitempty"`
}

// Locale returns attributes.settings.locale, or "" when any level is missing.
func (u *UserWriteEventData) Locale() string {
	if u.Attributes == nil || u.Attributes.Settings == nil {
		return ""
	}
	return u.Attributes.Settings.Locale
}
