package notify

import (
	"strings"
	"testing"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("https://example.com/logo.png")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestAllTemplatesCarryBaseLayout(t *testing.T) {
	r := newTestRenderer(t)
	bodies := map[string]func() (string, error){
		"approval":     r.Approval,
		"reactivation": r.Reactivation,
		"rejection":    func() (string, error) { return r.Rejection("reason") },
		"suspension":   func() (string, error) { return r.Suspension("reason") },
		"welcome":      func() (string, error) { return r.Welcome("user") },
		"reset":        func() (string, error) { return r.PasswordReset("Temp1234!") },
	}
	for name, render := range bodies {
		body, err := render()
		if err != nil {
			t.Fatalf("%s render: %v", name, err)
		}
		if !strings.Contains(body, "MC3 GRC Platform") {
			t.Errorf("%s missing platform header", name)
		}
		if !strings.Contains(body, "https://example.com/logo.png") {
			t.Errorf("%s missing configured logo", name)
		}
		if !strings.Contains(body, "automated message") {
			t.Errorf("%s missing footer", name)
		}
	}
}

func TestRejectionReasonOptional(t *testing.T) {
	r := newTestRenderer(t)

	with, err := r.Rejection("incomplete documentation")
	if err != nil {
		t.Fatalf("Rejection: %v", err)
	}
	if !strings.Contains(with, "incomplete documentation") {
		t.Error("reason missing from body")
	}

	without, err := r.Rejection("")
	if err != nil {
		t.Fatalf("Rejection: %v", err)
	}
	if strings.Contains(without, "<strong>Reason:</strong>") {
		t.Error("reason paragraph rendered without a reason")
	}
}

func TestRejectionReasonEscaped(t *testing.T) {
	r := newTestRenderer(t)
	body, err := r.Rejection(`<script>alert("x")</script>`)
	if err != nil {
		t.Fatalf("Rejection: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("reason not HTML-escaped")
	}
}

func TestWelcomeIncludesRole(t *testing.T) {
	r := newTestRenderer(t)
	body, err := r.Welcome("admin")
	if err != nil {
		t.Fatalf("Welcome: %v", err)
	}
	if !strings.Contains(body, "admin") {
		t.Error("role missing from welcome body")
	}
}

func TestDefaultLogoUsedWhenUnconfigured(t *testing.T) {
	r, err := NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	body, err := r.Approval()
	if err != nil {
		t.Fatalf("Approval: %v", err)
	}
	if !strings.Contains(body, defaultLogoURL) {
		t.Error("default logo missing")
	}
}
