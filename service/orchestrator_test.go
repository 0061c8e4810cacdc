package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sbcesar/contractguardian/config"
	"github.com/sbcesar/contractguardian/model"
)

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(ctx context.Context, docURL string) (string, error) {
	return s.text, s.err
}

// scriptedLLM replays one canned response per turn, split into two fragments
// to exercise chunk accumulation
type scriptedLLM struct {
	responses []string
	err       error
	calls     int
	histories [][]model.Message
}

func (s *scriptedLLM) ChatStream(ctx context.Context, messages []model.Message) (<-chan StreamFragment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.histories = append(s.histories, append([]model.Message(nil), messages...))

	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	response := s.responses[idx]

	ch := make(chan StreamFragment, 2)
	half := len(response) / 2
	ch <- StreamFragment{Content: response[:half]}
	ch <- StreamFragment{Content: response[half:]}
	close(ch)
	return ch, nil
}

type recorderTools struct {
	name     string
	args     string
	fullText string
	result   string
}

func (r *recorderTools) Execute(ctx context.Context, name, args, fullText string) string {
	r.name = name
	r.args = args
	r.fullText = fullText
	return r.result
}

func agentConfig(maxTurns, contextChars int) *config.AgentConfig {
	return &config.AgentConfig{MaxTurns: maxTurns, ContextChars: contextChars}
}

func collectEvents(t *testing.T, events <-chan model.AnalysisEvent) []model.AnalysisEvent {
	t.Helper()
	var collected []model.AnalysisEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-timeout:
			t.Fatal("Timed out waiting for events")
		}
	}
}

func lastEvent(t *testing.T, events []model.AnalysisEvent) model.AnalysisEvent {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("No events received")
	}
	return events[len(events)-1]
}

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		expectOK     bool
		expectedTool string
		expectedArgs string
	}{
		{
			name:         "embedded in prose",
			text:         `Voy a verificar la fianza. {"tool": "consultar_ley", "args": "fianza"} espero el resultado`,
			expectOK:     true,
			expectedTool: "consultar_ley",
			expectedArgs: "fianza",
		},
		{
			name:         "bare json",
			text:         `{"tool": "clasificar_texto", "args": ""}`,
			expectOK:     true,
			expectedTool: "clasificar_texto",
			expectedArgs: "",
		},
		{"malformed json", `{"tool": }`, false, "", ""},
		{"no braces", "solo texto de razonamiento", false, "", ""},
		{"empty tool field", `{"tool": "", "args": "x"}`, false, "", ""},
		{"json without tool key", `{"args": "fianza"}`, false, "", ""},
		{"reversed braces", "} nada {", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := parseToolCall(tt.text)
			if ok != tt.expectOK {
				t.Fatalf("Expected ok=%v, got %v", tt.expectOK, ok)
			}
			if !ok {
				return
			}
			if call.Tool != tt.expectedTool || call.Args != tt.expectedArgs {
				t.Errorf("Expected (%s, %s), got (%s, %s)", tt.expectedTool, tt.expectedArgs, call.Tool, call.Args)
			}
		})
	}
}

func TestBuildResultSectionSplit(t *testing.T) {
	text := "INFORME FINAL: la cláusula es abusiva y la fianza es ilegal. Conclusión: no firmar sin revisar."

	result := buildResult(text, []string{"salida1"})

	if !strings.HasSuffix(strings.TrimSpace(result.Reasoning), "ilegal.") {
		t.Errorf("Unexpected reasoning split: %q", result.Reasoning)
	}
	if !strings.HasPrefix(result.Recommendations, "**Conclusión**") {
		t.Errorf("Expected recommendations to start with marked separator, got %q", result.Recommendations)
	}
	// abusiva + ilegal = 2 high, revisar = 1 medium
	if result.HighRiskCount != 2 {
		t.Errorf("Expected 2 high risk, got %d", result.HighRiskCount)
	}
	if result.MediumRiskCount != 1 {
		t.Errorf("Expected 1 medium risk, got %d", result.MediumRiskCount)
	}
	if result.TotalClauses != 3 {
		t.Errorf("Expected 3 total, got %d", result.TotalClauses)
	}
	if result.LowRiskCount != 0 {
		t.Errorf("Expected 0 low risk, got %d", result.LowRiskCount)
	}
	if len(result.ToolOutputs) != 1 || result.ToolOutputs[0] != "salida1" {
		t.Errorf("Unexpected tool outputs: %v", result.ToolOutputs)
	}
}

func TestBuildResultSeparatorPriority(t *testing.T) {
	// "Conclusión" comes later in the text but earlier in priority, so the
	// split happens there, not at "Recomendaciones"
	text := "INFORME FINAL: análisis. Recomendaciones: varias. Conclusión: fin."

	result := buildResult(text, nil)
	if !strings.HasPrefix(result.Recommendations, "**Conclusión**") {
		t.Errorf("Expected split at Conclusión, got %q", result.Recommendations)
	}
}

func TestBuildResultPlaceholder(t *testing.T) {
	text := "INFORME FINAL: todo en orden."

	result := buildResult(text, nil)
	if result.Reasoning != text {
		t.Errorf("Expected full text as reasoning, got %q", result.Reasoning)
	}
	if result.Recommendations != "Ver detalles en el análisis principal." {
		t.Errorf("Expected placeholder, got %q", result.Recommendations)
	}
}

func TestBuildResultRiskCountCapped(t *testing.T) {
	text := "INFORME FINAL: " + strings.Repeat("cláusula ilegal y abusiva. ", 10)

	result := buildResult(text, nil)
	if result.HighRiskCount != 5 {
		t.Errorf("Expected high risk capped at 5, got %d", result.HighRiskCount)
	}
}

func TestAnalyzeContractCompleteFlow(t *testing.T) {
	extractor := &stubExtractor{text: "1. El arrendador podrá rescindir sin previo aviso."}
	llm := &scriptedLLM{responses: []string{
		`Necesito verificar esto. {"tool": "consultar_ley", "args": "fianza alquiler"}`,
		"INFORME FINAL: la cláusula es abusiva. Conclusión: negociar antes de firmar.",
	}}
	tools := &recorderTools{result: `{"status":"ok","results":[]}`}

	o := NewOrchestrator(extractor, llm, tools, agentConfig(5, 8000))
	events := collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/contract.pdf"))

	if events[0].Status != model.EventExtracting {
		t.Errorf("Expected first event extracting, got %s", events[0].Status)
	}

	var statuses []string
	for _, ev := range events {
		statuses = append(statuses, ev.Status)
	}
	for _, required := range []string{
		model.EventReasoning, model.EventChunk, model.EventToolDispatch,
		model.EventToolDone, model.EventComplete,
	} {
		found := false
		for _, s := range statuses {
			if s == required {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Missing %s event in %v", required, statuses)
		}
	}

	final := lastEvent(t, events)
	if final.Status != model.EventComplete {
		t.Fatalf("Expected terminal complete event, got %s (%s)", final.Status, final.Message)
	}
	if final.Result == nil {
		t.Fatal("Complete event carries no result")
	}
	if final.Text != extractor.text {
		t.Errorf("Complete event missing extracted text: %q", final.Text)
	}
	if len(final.Result.ToolOutputs) != 1 {
		t.Errorf("Expected 1 tool output, got %d", len(final.Result.ToolOutputs))
	}

	if tools.name != ToolLawLookup || tools.args != "fianza alquiler" {
		t.Errorf("Unexpected tool dispatch: %s(%s)", tools.name, tools.args)
	}
	if llm.calls != 2 {
		t.Errorf("Expected 2 LLM turns, got %d", llm.calls)
	}

	// The tool result must have been fed back into the conversation
	secondTurn := llm.histories[1]
	lastMsg := secondTurn[len(secondTurn)-1]
	if lastMsg.Role != model.RoleUser || !strings.Contains(lastMsg.Content, "RESULTADO HERRAMIENTA (consultar_ley)") {
		t.Errorf("Tool result not appended to history: %+v", lastMsg)
	}
}

func TestAnalyzeContractFinalMarkerCaseInsensitive(t *testing.T) {
	extractor := &stubExtractor{text: "Contrato breve de prueba."}
	llm := &scriptedLLM{responses: []string{"informe final: sin problemas detectados."}}

	o := NewOrchestrator(extractor, llm, &recorderTools{}, agentConfig(5, 8000))
	events := collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/x.pdf"))

	if final := lastEvent(t, events); final.Status != model.EventComplete {
		t.Errorf("Expected complete, got %s", final.Status)
	}
}

func TestAnalyzeContractExtractionFailure(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("task failed")}
	llm := &scriptedLLM{responses: []string{"irrelevante"}}

	o := NewOrchestrator(extractor, llm, &recorderTools{}, agentConfig(5, 8000))
	events := collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/x.pdf"))

	final := lastEvent(t, events)
	if final.Status != model.EventError {
		t.Fatalf("Expected error event, got %s", final.Status)
	}
	if !strings.Contains(final.Message, "Error leyendo el documento") {
		t.Errorf("Unexpected error message: %s", final.Message)
	}
	if llm.calls != 0 {
		t.Errorf("LLM must not be called after extraction failure, got %d calls", llm.calls)
	}
}

func TestAnalyzeContractLLMFailure(t *testing.T) {
	extractor := &stubExtractor{text: "Contrato de prueba."}
	llm := &scriptedLLM{err: errors.New("connection refused")}

	o := NewOrchestrator(extractor, llm, &recorderTools{}, agentConfig(5, 8000))
	events := collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/x.pdf"))

	final := lastEvent(t, events)
	if final.Status != model.EventError {
		t.Fatalf("Expected error event, got %s", final.Status)
	}
	if final.Message != "Error de conexión con la IA." {
		t.Errorf("Unexpected message: %s", final.Message)
	}
}

func TestAnalyzeContractMaxTurns(t *testing.T) {
	extractor := &stubExtractor{text: "Contrato de prueba."}
	// Never a tool call, never a final marker
	llm := &scriptedLLM{responses: []string{"sigo pensando en el documento"}}

	o := NewOrchestrator(extractor, llm, &recorderTools{}, agentConfig(3, 8000))
	events := collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/x.pdf"))

	final := lastEvent(t, events)
	if final.Status != model.EventError {
		t.Fatalf("Expected error event after turn budget, got %s", final.Status)
	}
	if final.Message != ErrMaxTurns.Error() {
		t.Errorf("Unexpected message: %s", final.Message)
	}
	if llm.calls != 3 {
		t.Errorf("Expected exactly 3 turns, got %d", llm.calls)
	}
}

func TestAnalyzeContractTruncatesContext(t *testing.T) {
	longText := strings.Repeat("a", 100)
	extractor := &stubExtractor{text: longText}
	llm := &scriptedLLM{responses: []string{
		`{"tool": "clasificar_texto", "args": ""}`,
		"INFORME FINAL: listo.",
	}}
	tools := &recorderTools{result: "{}"}

	o := NewOrchestrator(extractor, llm, tools, agentConfig(5, 40))
	collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/x.pdf"))

	// The prompt sees only the bounded preview
	userMsg := llm.histories[0][1].Content
	if strings.Contains(userMsg, longText) {
		t.Error("Prompt contains the untruncated document")
	}
	if !strings.Contains(userMsg, strings.Repeat("a", 40)) {
		t.Error("Prompt is missing the document preview")
	}
	// Tools receive the full document regardless
	if tools.fullText != longText {
		t.Errorf("Expected full text passed to tools, got %d chars", len(tools.fullText))
	}
}

func TestAnalyzeContractChunksReassemble(t *testing.T) {
	extractor := &stubExtractor{text: "Contrato de prueba."}
	response := "INFORME FINAL: sin incidencias relevantes."
	llm := &scriptedLLM{responses: []string{response}}

	o := NewOrchestrator(extractor, llm, &recorderTools{}, agentConfig(5, 8000))
	events := collectEvents(t, o.AnalyzeContract(context.Background(), "http://docs/x.pdf"))

	var rebuilt strings.Builder
	for _, ev := range events {
		if ev.Status == model.EventChunk {
			rebuilt.WriteString(ev.Chunk)
		}
	}
	if rebuilt.String() != response {
		t.Errorf("Chunks do not reassemble the response: %q", rebuilt.String())
	}
}
