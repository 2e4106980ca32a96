package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func newTestApp(t *testing.T, rate config.RateLimitConfig) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0, rate)

	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return apperrors.NewFieldValidation("title", "title is required")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("unexpected")
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, path string) (*http.Response, errorEnvelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)
	return resp, envelope
}

func TestErrorEnvelopeShape(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{Max: 1000, WindowSeconds: 60})

	resp, envelope := doRequest(t, app, "/bad")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error.Code != "FIELD_VALIDATION" {
		t.Fatalf("expected FIELD_VALIDATION code, got %q", envelope.Error.Code)
	}
	if envelope.Error.Field != "title" {
		t.Fatalf("field must pass through, got %q", envelope.Error.Field)
	}
	if envelope.Error.Message == "" {
		t.Fatalf("message must be populated")
	}
}

func TestPanicRecovery(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{Max: 1000, WindowSeconds: 60})

	resp, envelope := doRequest(t, app, "/boom")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if envelope.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("expected INTERNAL_ERROR, got %q", envelope.Error.Code)
	}
}

func TestUnknownRouteStays404(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{Max: 1000, WindowSeconds: 60})

	resp, envelope := doRequest(t, app, "/no-such-route")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown route, got %d", resp.StatusCode)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND code, got %q", envelope.Error.Code)
	}
}

func TestRateLimitResponse(t *testing.T) {
	app := newTestApp(t, config.RateLimitConfig{Max: 2, WindowSeconds: 60})

	for i := 0; i < 2; i++ {
		resp, _ := doRequest(t, app, "/ok")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, resp.StatusCode)
		}
	}
	resp, envelope := doRequest(t, app, "/ok")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the window is exhausted, got %d", resp.StatusCode)
	}
	if envelope.Error.Code != "RATE_LIMIT" {
		t.Fatalf("expected RATE_LIMIT code, got %q", envelope.Error.Code)
	}
}
