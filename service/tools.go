package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sbcesar/contractguardian/config"
)

// Tool names the reasoning service may request
const (
	ToolLawLookup = "consultar_ley"
	ToolClassify  = "clasificar_texto"
)

// maxClassifyChars bounds the document excerpt sent to the classifier tool
const maxClassifyChars = 2000

// ToolManager invokes the auxiliary tool endpoints over HTTP. Failures never
// surface as Go errors: the caller always gets a JSON payload string, error-
// shaped when the call failed, so an agent session degrades instead of
// aborting.
type ToolManager struct {
	config     *config.ToolsConfig
	httpClient *http.Client
}

func NewToolManager(cfg *config.ToolsConfig) *ToolManager {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ToolManager{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// post sends a JSON payload and returns the raw response body
func (m *ToolManager) post(ctx context.Context, url string, payload any) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tool endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}

// errorPayload builds the error-shaped result returned on tool failure
func errorPayload(err error, emptyField string) string {
	payload := map[string]any{
		"error":    err.Error(),
		emptyField: []any{},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// LawLookup calls the reference-lookup endpoint with a search topic
func (m *ToolManager) LawLookup(ctx context.Context, topic string) string {
	topic = strings.TrimSpace(topic)
	slog.Info("tool call: law lookup", "topic", topic)

	result, err := m.post(ctx, m.config.LawLookupURL, map[string]string{"topic": topic})
	if err != nil {
		slog.Error("law lookup tool failed", "error", err)
		return errorPayload(err, "results")
	}
	return result
}

// ClassifyClauses calls the clause-classification endpoint with a document
// excerpt
func (m *ToolManager) ClassifyClauses(ctx context.Context, contractText string) string {
	slog.Info("tool call: classify clauses", "text_len", len(contractText))

	result, err := m.post(ctx, m.config.ClassifierURL, map[string]string{"contract_text": contractText})
	if err != nil {
		slog.Error("classify tool failed", "error", err)
		return errorPayload(err, "clauses")
	}
	return result
}

// Execute dispatches a detected tool call by name. The classifier tool always
// receives a bounded prefix of the full document rather than the raw args.
// Unknown tool names produce a local not-found message, never a failure.
func (m *ToolManager) Execute(ctx context.Context, name, args, fullText string) string {
	switch name {
	case ToolLawLookup:
		return m.LawLookup(ctx, args)
	case ToolClassify:
		excerpt := fullText
		if runes := []rune(excerpt); len(runes) > maxClassifyChars {
			excerpt = string(runes[:maxClassifyChars])
		}
		return m.ClassifyClauses(ctx, excerpt)
	default:
		slog.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Error: Herramienta '%s' no existe.", name)
	}
}
