package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"notify-relay/internal/model"
)

// Every extract* helper adds nothing when its source field is absent.

func extractUserInfo(l *Lines, username, email string) {
	switch {
	case username != "" && email != "":
		l.AddField("User", fmt.Sprintf("%s (%s)", username, email))
	case username != "":
		l.AddField("User", username)
	case email != "":
		l.AddField("User", email)
	}
}

func extractIPAddress(l *Lines, ip string) {
	if ip == "" {
		return
	}
	l.AddField("IP Address", ip)
}

func extractDeviceStatus(l *Lines, args *model.AuthMethodArgs) {
	if args == nil || args.KnownDevice == nil {
		return
	}
	status := "⚠️ Unknown device"
	if *args.KnownDevice {
		status = "✅ Known device"
	}
	l.AddField("Device Status", status)
}

func extractMFADevices(l *Lines, args *model.AuthMethodArgs) {
	if args == nil || len(args.MFADevices) == 0 {
		return
	}
	items := make([]string, 0, len(args.MFADevices))
	for _, d := range args.MFADevices {
		items = append(items, fmt.Sprintf("- %s (%s, %s)", d.App, d.Name, d.ModelName))
	}
	l.Add("\n**MFA Devices Used:**\n" + strings.Join(items, "\n"))
}

func extractGeoLocation(l *Lines, geo *model.Geo) {
	if geo == nil {
		return
	}

	var parts []string
	if geo.Continent != "" {
		parts = append(parts, "\n - Continent: "+withEmoji(ContinentEmoji(geo.Continent), geo.Continent))
	}
	if geo.Country != "" {
		parts = append(parts, "\n - Country: "+withEmoji(CountryEmoji(geo.Country), geo.Country))
	}
	if geo.City != "" {
		parts = append(parts, "\n - City: "+geo.City)
	}
	if len(parts) > 0 {
		l.AddField("Location", strings.Join(parts, ""))
	}

	if geo.Lat != nil && geo.Long != nil {
		lat, long := formatNumber(*geo.Lat), formatNumber(*geo.Long)
		l.AddField("Coordinates", lat+", "+long)
		l.Add(fmt.Sprintf("\n[View on Google Maps](https://www.google.com/maps?q=%s,%s)", lat, long))
	}
}

func extractASN(l *Lines, asn *model.ASN) {
	if asn == nil {
		return
	}
	var parts []string
	if asn.ASN != nil {
		parts = append(parts, "ASN "+strconv.FormatInt(*asn.ASN, 10))
	}
	if asn.ASOrg != "" {
		parts = append(parts, asn.ASOrg)
	}
	if asn.Network != "" {
		parts = append(parts, "("+asn.Network+")")
	}
	if len(parts) == 0 {
		return
	}
	l.AddField("ASN", strings.Join(parts, " "))
}

func extractHTTPRequest(l *Lines, req *model.HTTPRequest) {
	if req == nil || (req.Method == "" && req.Path == "") {
		return
	}
	l.AddField("Request", orNA(req.Method)+" "+orNA(req.Path))
}

func extractStage(l *Lines, stage *model.Stage) {
	if stage == nil {
		return
	}
	l.AddField("Failed Stage", fmt.Sprintf("%s (%s, %s)", stage.App, stage.Name, stage.ModelName))
}

func extractLabeled(l *Lines, label, value string) {
	if value == "" {
		return
	}
	l.AddField(label, value)
}

// FormatLoginEvent renders a successful login. username and email come from
// the notification envelope, not the embedded record.
func FormatLoginEvent(ip string, data *model.LoginEventData, username, email string) model.FormattedEvent {
	var l Lines
	l.Add("🔐 **Login Event**\n")
	extractUserInfo(&l, username, email)
	extractDeviceStatus(&l, data.AuthMethodArgs)
	extractMFADevices(&l, data.AuthMethodArgs)
	extractIPAddress(&l, ip)
	extractGeoLocation(&l, data.Geo)
	extractASN(&l, data.ASN)

	return model.FormattedEvent{
		Title:   "Login: " + orDefault(username, "Unknown user"),
		Message: l.Result(),
	}
}

func FormatLoginFailedEvent(ip string, data *model.LoginFailedEventData) model.FormattedEvent {
	var l Lines
	l.Add("❌ **Login Failed Event**")
	extractLabeled(&l, "Username", data.Username)
	extractMFADevices(&l, data.AuthMethodArgs)
	extractIPAddress(&l, ip)
	extractGeoLocation(&l, data.Geo)
	extractASN(&l, data.ASN)
	extractStage(&l, data.Stage)

	return model.FormattedEvent{
		Title:   "Login Failed: " + orDefault(data.Username, "Unknown user"),
		Message: l.Result(),
	}
}

func FormatUserWriteEvent(ip string, data *model.UserWriteEventData) model.FormattedEvent {
	icon, eventType := "✏️", "User Updated"
	if data.Created != nil && *data.Created {
		icon, eventType = "👤", "User Created"
	}

	var l Lines
	l.Add(fmt.Sprintf("%s **%s**\n", icon, eventType))
	extractLabeled(&l, "Username", data.Username)
	extractLabeled(&l, "Name", data.Name)
	extractLabeled(&l, "Email", data.Email)
	extractLabeled(&l, "Locale", data.Locale())
	extractHTTPRequest(&l, data.HTTPRequest)
	extractIPAddress(&l, ip)
	extractGeoLocation(&l, data.Geo)
	extractASN(&l, data.ASN)

	who := orDefault(data.Username, orDefault(data.Name, "Unknown user"))
	return model.FormattedEvent{
		Title:   eventType + ": " + who,
		Message: l.Result(),
	}
}

// FormatDefaultEvent renders any notification without a recognised record.
// Unlike the other formatters, the user trailer is always present.
func FormatDefaultEvent(ip, username, email, body string) model.FormattedEvent {
	var l Lines
	l.Add("ℹ️ **Default Event**")
	extractIPAddress(&l, ip)
	l.Add("\n" + body)
	l.Add(fmt.Sprintf("\nUser: %s (%s)", orNA(username), orNA(email)))

	return model.FormattedEvent{
		Title:   "Notification from " + orDefault(username, "System"),
		Message: l.Result(),
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func orNA(value string) string {
	return orDefault(value, "N/A")
}

// formatNumber prints a float the shortest way that round-trips, so 52.52
// stays 52.52 and 13 stays 13.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
