package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/resilience"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noRetry() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      false,
	})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, Model: "llama3"}, noRetry(), testLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestGenerateSendsExpectedRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"response": `{"category": "세무", "subcategory": "종합소득세"}`,
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	assignment, err := c.Generate(context.Background(), "종합소득세 납부 고지서", 2)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if got["model"] != "llama3" {
		t.Fatalf("model = %v", got["model"])
	}
	if got["stream"] != false {
		t.Fatalf("stream = %v", got["stream"])
	}
	options := got["options"].(map[string]any)
	if options["temperature"].(float64) != 0.1 || options["top_p"].(float64) != 0.9 || options["num_predict"].(float64) != 512 {
		t.Fatalf("options = %v", options)
	}
	if !strings.Contains(got["prompt"].(string), "종합소득세 납부 고지서") {
		t.Fatalf("prompt missing document text")
	}

	if assignment.Category != "세무" || assignment.Subcategory != "종합소득세" {
		t.Fatalf("assignment = %+v", assignment)
	}
}

func TestGenerateExtractsJSONFromProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"response": "분류 결과입니다:\n```json\n{\"category\": \"병무\"}\n```",
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	assignment, err := c.Generate(context.Background(), "입영 통지서", 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if assignment.Category != "병무" {
		t.Fatalf("category = %q", assignment.Category)
	}
}

func TestGenerateRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing required field": `{"category": "세무"}`,
		"extra field":            `{"category": "세무", "subcategory": "소득세", "note": "x"}`,
		"empty value":            `{"category": "", "subcategory": "소득세"}`,
		"no json at all":         `죄송합니다, 분류할 수 없습니다.`,
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"response": response}) //nolint:errcheck
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			if _, err := c.Generate(context.Background(), "text", 2); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestGenerateRejectsInvalidDepth(t *testing.T) {
	c := newTestClient(t, "http://localhost:0")
	for _, depth := range []int{0, 5} {
		if _, err := c.Generate(context.Background(), "text", depth); err == nil {
			t.Fatalf("expected error for depth %d", depth)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	obj, err := extractJSONObject("prefix {\"a\": {\"b\": 1}} suffix")
	if err != nil {
		t.Fatalf("extractJSONObject() error = %v", err)
	}
	if obj != `{"a": {"b": 1}}` {
		t.Fatalf("obj = %q", obj)
	}
}
