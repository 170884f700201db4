package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
	}{
		{"json string", `{"category":"  Food  "}`, "application/json", "category", "Food", true},
		{"json number keeps literal", `{"amount":12.50}`, "application/json", "amount", "12.50", true},
		{"json without content type", `{"amount":"7"}`, "", "amount", "7", true},
		{"json missing key", `{"amount":"7"}`, "application/json", "category", "", true},
		{"form", "amount=3%2C40&category=Food", "application/x-www-form-urlencoded", "amount", "3,40", false},
		{"control characters stripped", "description=a%00b%07c", "application/x-www-form-urlencoded", "description", "abc", false},
		{"empty body", "", "", "amount", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParserMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(req)
	if err := p.Parse(); !errors.Is(err, errMalformedBody) {
		t.Fatalf("Parse() error = %v, want errMalformedBody", err)
	}
	// Parse is memoized
	if err := p.Parse(); !errors.Is(err, errMalformedBody) {
		t.Fatalf("second Parse() error = %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrInvalidMonth, http.StatusUnprocessableEntity},
		{auth.ErrWeakPassword, http.StatusUnprocessableEntity},
		{storage.ErrUsernameTaken, http.StatusConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrMissingToken, http.StatusUnauthorized},
		{errMalformedBody, http.StatusBadRequest},
		{errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	_, msg := statusFor(errors.New("pq: relation does not exist"))
	if msg != "internal error" {
		t.Errorf("internal error leaked detail: %q", msg)
	}
}
