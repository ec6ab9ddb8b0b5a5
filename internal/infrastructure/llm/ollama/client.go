// Package ollama implements LLM-driven category generation against a
// local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
	schemas    map[int]*jsonschema.Schema
}

func NewClient(cfg Config, executor *resilience.Executor, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	schemas := make(map[int]*jsonschema.Schema, domain.TaxonomyMaxDepth)
	for depth := domain.TaxonomyMinDepth; depth <= domain.TaxonomyMaxDepth; depth++ {
		compiler := jsonschema.NewCompiler()
		name := fmt.Sprintf("category-depth-%d.json", depth)
		if err := compiler.AddResource(name, strings.NewReader(schemaForDepth(depth))); err != nil {
			return nil, fmt.Errorf("add category schema: %w", err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile category schema: %w", err)
		}
		schemas[depth] = schema
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
		logger:     logger,
		schemas:    schemas,
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate asks the model to categorize one document's text at the
// requested depth and validates the answer before trusting it.
func (c *Client) Generate(ctx context.Context, text string, depth int) (domain.CategoryAssignment, error) {
	if depth < domain.TaxonomyMinDepth || depth > domain.TaxonomyMaxDepth {
		return domain.CategoryAssignment{}, domain.WrapError(domain.ErrInvalidInput, "ollama.Generate",
			fmt.Errorf("depth %d out of range [%d,%d]", depth, domain.TaxonomyMinDepth, domain.TaxonomyMaxDepth))
	}

	prompt := BuildCategoryPrompt(text, depth)

	var raw string
	err := c.executor.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		var err error
		raw, err = c.generate(ctx, prompt)
		return err
	}, classifyLLMError)
	if err != nil {
		return domain.CategoryAssignment{}, fmt.Errorf("ollama generate: %w", err)
	}

	return c.parseAssignment(raw, depth)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: 0.1,
			TopP:        0.9,
			NumPredict:  512,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Response, nil
}

func (c *Client) parseAssignment(raw string, depth int) (domain.CategoryAssignment, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return domain.CategoryAssignment{}, fmt.Errorf("extract category json: %w", err)
	}

	var decoded any
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return domain.CategoryAssignment{}, fmt.Errorf("parse category json: %w", err)
	}
	if err := c.schemas[depth].Validate(decoded); err != nil {
		return domain.CategoryAssignment{}, fmt.Errorf("category response failed validation: %w", err)
	}

	var assignment domain.CategoryAssignment
	if err := json.Unmarshal([]byte(obj), &assignment); err != nil {
		return domain.CategoryAssignment{}, fmt.Errorf("decode category assignment: %w", err)
	}
	return assignment, nil
}

// extractJSONObject pulls the first-to-last-brace span out of a model
// answer that may wrap the JSON in prose or code fences.
func extractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no json object in response")
	}
	return s[start : end+1], nil
}

func classifyLLMError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
