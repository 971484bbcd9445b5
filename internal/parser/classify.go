package parser

// EventKind is the shape of an authentik notification body.
type EventKind int

const (
	KindDefault EventKind = iota
	KindLogin
	KindLoginFailed
	KindUserWrite
)

const (
	prefixLogin       = "login"
	prefixLoginFailed = "login_failed"
	prefixUserWrite   = "user_write"
)

func (k EventKind) String() string {
	switch k {
	case KindLogin:
		return "login"
	case KindLoginFailed:
		return "login_failed"
	case KindUserWrite:
		return "user_write"
	default:
		return "default"
	}
}

func IsLoginEvent(body string) bool {
	return markerFor(prefixLogin).MatchString(body)
}

func IsLoginFailedEvent(body string) bool {
	return markerFor(prefixLoginFailed).MatchString(body)
}

func IsUserWriteEvent(body string) bool {
	return markerFor(prefixUserWrite).MatchString(body)
}

// Classify picks the event shape of body. Markers are checked in the order
// login, login_failed, user_write; the first match wins, which also settles
// malformed bodies that carry more than one marker.
func Classify(body string) EventKind {
	switch {
	case IsLoginEvent(body):
		return KindLogin
	case IsLoginFailedEvent(body):
		return KindLoginFailed
	case IsUserWriteEvent(body):
		return KindUserWrite
	default:
		return KindDefault
	}
}
