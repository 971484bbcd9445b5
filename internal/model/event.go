package model

// FormattedEvent is the title/message pair handed to the notification sender.
type FormattedEvent struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SlackMessage is the part of a Slack incoming-webhook body the relay reads.
type SlackMessage struct {
	Text string `json:"text"`
}
