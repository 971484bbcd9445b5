package handler

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"notify-relay/internal/client"
	"notify-relay/internal/service"
)

// GotifyQuery holds the query parameters every relay endpoint accepts. URL
// and Token fall back to the configured defaults when omitted.
type GotifyQuery struct {
	URL      string `query:"url" validate:"required,http_url"`
	Token    string `query:"token" validate:"required"`
	Title    string `query:"title" validate:"max=250"`
	Priority *int   `query:"priority" validate:"omitempty,min=0,max=10"`
}

// FieldError is one failed rule, reported in the "details" of a 400.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError carries the per-field failures of a query. It matches
// service.ErrInvalidInput.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" failed "+f.Rule)
	}
	return "invalid query: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == service.ErrInvalidInput
}

// queryParser validates query strings against GotifyQuery.
type queryParser struct {
	defaults     client.Destination
	sharedSecret string
	validate     *validator.Validate
}

func newQueryParser(defaults client.Destination, sharedSecret string) *queryParser {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("query"); name != "" {
			return name
		}
		return fld.Name
	})
	return &queryParser{defaults: defaults, sharedSecret: sharedSecret, validate: v}
}

// Parse checks the shared secret, applies defaults and validates values.
func (p *queryParser) Parse(values url.Values) (*GotifyQuery, error) {
	if p.sharedSecret != "" {
		got := values.Get("secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(p.sharedSecret)) != 1 {
			return nil, fmt.Errorf("%w: shared secret mismatch", service.ErrUnauthorized)
		}
	}

	q := &GotifyQuery{
		URL:   firstNonEmpty(values.Get("url"), p.defaults.URL),
		Token: firstNonEmpty(values.Get("token"), p.defaults.Token),
		Title: values.Get("title"),
	}
	if raw := values.Get("priority"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ValidationError{Fields: []FieldError{{Field: "priority", Rule: "numeric"}}}
		}
		q.Priority = &n
	}

	if err := p.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return nil, &ValidationError{Fields: fields}
	}
	return q, nil
}

func (q *GotifyQuery) Options(ip string) service.RelayOptions {
	return service.RelayOptions{
		Destination: client.Destination{URL: q.URL, Token: q.Token},
		Title:       q.Title,
		Priority:    q.Priority,
		IP:          ip,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
