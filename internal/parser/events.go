package parser

import (
	"encoding/json"
	"fmt"

	"notify-relay/internal/model"
)

func ParseLoginEvent(body string) (*model.LoginEventData, error) {
	var data model.LoginEventData
	if err := parseRecord(body, prefixLogin, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func ParseLoginFailedEvent(body string) (*model.LoginFailedEventData, error) {
	var data model.LoginFailedEventData
	if err := parseRecord(body, prefixLoginFailed, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func ParseUserWriteEvent(body string) (*model.UserWriteEventData, error) {
	var data model.UserWriteEventData
	if err := parseRecord(body, prefixUserWrite, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// parseRecord extracts the record after prefix, parses it as a Python literal
// and decodes it into dest through its JSON tags.
func parseRecord(body, prefix string, dest any) error {
	raw, err := ExtractRecord(body, prefix)
	if err != nil {
		return err
	}
	value, err := ParseLiteral(raw)
	if err != nil {
		return fmt.Errorf("parse %s record: %w", prefix, err)
	}
	if _, ok := value.(map[string]any); !ok {
		return fmt.Errorf("%w: %s record is not a dict", ErrMalformedRecord, prefix)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %s record: %v", ErrMalformedRecord, prefix, err)
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return fmt.Errorf("%w: %s record: %v", ErrMalformedRecord, prefix, err)
	}
	return nil
}
