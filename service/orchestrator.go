package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sbcesar/contractguardian/config"
	"github.com/sbcesar/contractguardian/model"
)

// ErrMaxTurns means the turn budget ran out before the reasoning service
// produced a final report.
var ErrMaxTurns = errors.New("max turns exceeded without a final report")

// TextExtractor pulls the full text of a document
type TextExtractor interface {
	ExtractText(ctx context.Context, docURL string) (string, error)
}

// LLMProvider streams a completion for a message history
type LLMProvider interface {
	ChatStream(ctx context.Context, messages []model.Message) (<-chan StreamFragment, error)
}

// ToolExecutor runs a named tool and returns its payload string. Tool
// failures come back as error-shaped payloads, never as Go errors.
type ToolExecutor interface {
	Execute(ctx context.Context, name, args, fullText string) string
}

// finalMarker signals the terminal report in the reasoning output
// (case-insensitive containment check)
const finalMarker = "INFORME FINAL"

// sectionSeparators split the final report into reasoning and
// recommendations, tried in priority order
var sectionSeparators = []string{"Conclusión", "Recomendaciones", "Resumen"}

// noRecommendations is the placeholder when no separator is found
const noRecommendations = "Ver detalles en el análisis principal."

// Textual risk keyword lists used to populate the result counters
var (
	resultHighKeywords   = []string{"ilegal", "fraude", "nula", "abusiva", "grave", "infracción"}
	resultMediumKeywords = []string{"incorrecto", "revisar", "duda", "riesgo"}
)

const maxRiskCount = 5

const agentSystemPrompt = `Eres Contract Guardian, un auditor legal experto impulsado por IA.
Tu misión es analizar documentos legales (contratos, facturas, términos) para proteger al usuario de abusos, fraudes o ilegalidades.

TIENES DISPONIBLES ESTAS HERRAMIENTAS EXTERNAS:
1. ` + "`consultar_ley(topic)`" + `: Busca leyes oficiales españolas por palabras clave.
   - Úsala SIEMPRE que detectes una cláusula sospechosa (fianza, duración, pagos, impuestos).
   - Ejemplo: "IVA tipos generales", "fianza alquiler vivienda habitual", "plazo devolución fianza".
2. ` + "`clasificar_texto(texto)`" + `: (Opcional) Clasifica técnicamente una cláusula si tienes dudas sobre su tipo.

TU PROCESO DE PENSAMIENTO (OBLIGATORIO):
1. Lee el documento del usuario.
2. Identifica puntos clave: Fechas, importes, obligaciones, penalizaciones.
3. Si ves algo que podría contravenir la ley, USA consultar_ley para verificarlo. NO adivines.
4. Si encuentras una infracción, cítala en tu informe final.

FORMATO DE USO DE HERRAMIENTAS:
Para usar una herramienta, responde EXCLUSIVAMENTE con este formato JSON en una línea separada:
{"tool": "consultar_ley", "args": "término de búsqueda"}

FORMATO DE RESPUESTA FINAL:
Cuando tengas toda la información, genera un informe detallado que empiece con:
"INFORME FINAL:"
Seguido de:
- Lista numerada de problemas detectados.
- Citas legales (si las encontraste).
- Recomendaciones claras.
- Conclusión y "Semáforo de Riesgo" (Alto/Medio/Bajo).`

func initialUserMessage(contractText string) string {
	return fmt.Sprintf(`Analiza este documento legal y detecta infracciones, cláusulas abusivas o errores normativos:

--- INICIO DOCUMENTO ---
%s
--- FIN DOCUMENTO ---

Piensa paso a paso. Si necesitas leyes, búscalas.`, contractText)
}

// Orchestrator drives the agent loop of one or more analysis sessions. All
// collaborators are injected; the orchestrator itself holds no per-session
// state, so concurrent sessions are independent.
type Orchestrator struct {
	extractor    TextExtractor
	llm          LLMProvider
	tools        ToolExecutor
	maxTurns     int
	contextChars int
}

// session is the state owned by a single AnalyzeContract invocation
type session struct {
	messages    []model.Message
	toolOutputs []string
}

func NewOrchestrator(extractor TextExtractor, llm LLMProvider, tools ToolExecutor, cfg *config.AgentConfig) *Orchestrator {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	contextChars := cfg.ContextChars
	if contextChars <= 0 {
		contextChars = 8000
	}
	return &Orchestrator{
		extractor:    extractor,
		llm:          llm,
		tools:        tools,
		maxTurns:     maxTurns,
		contextChars: contextChars,
	}
}

// AnalyzeContract runs one full agent session over the document behind
// docURL. Progress is reported as an ordered stream of events; the channel
// is closed once the session reaches a terminal state (complete or error).
func (o *Orchestrator) AnalyzeContract(ctx context.Context, docURL string) <-chan model.AnalysisEvent {
	events := make(chan model.AnalysisEvent)
	go func() {
		defer close(events)
		o.run(ctx, docURL, events)
	}()
	return events
}

func (o *Orchestrator) emit(ctx context.Context, events chan<- model.AnalysisEvent, ev model.AnalysisEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) run(ctx context.Context, docURL string, events chan<- model.AnalysisEvent) {
	o.emit(ctx, events, model.AnalysisEvent{Status: model.EventExtracting, Message: "Leyendo documento..."})

	contractText, err := o.extractor.ExtractText(ctx, docURL)
	if err != nil {
		slog.Error("extraction failed", "error", err)
		o.emit(ctx, events, model.AnalysisEvent{
			Status:  model.EventError,
			Message: fmt.Sprintf("Error leyendo el documento: %v", err),
		})
		return
	}

	preview := contractText
	if runes := []rune(preview); len(runes) > o.contextChars {
		preview = string(runes[:o.contextChars])
	}

	sess := &session{
		messages: []model.Message{
			{Role: model.RoleSystem, Content: agentSystemPrompt},
			{Role: model.RoleUser, Content: initialUserMessage(preview)},
		},
	}

	for turn := 0; turn < o.maxTurns; turn++ {
		o.emit(ctx, events, model.AnalysisEvent{
			Status:  model.EventReasoning,
			Message: fmt.Sprintf("Paso %d: Analizando...", turn+1),
		})

		response, err := o.streamTurn(ctx, sess, events)
		if err != nil {
			slog.Error("LLM turn failed", "turn", turn+1, "error", err)
			o.emit(ctx, events, model.AnalysisEvent{
				Status:  model.EventError,
				Message: "Error de conexión con la IA.",
			})
			return
		}

		if toolCall, ok := parseToolCall(response); ok {
			o.emit(ctx, events, model.AnalysisEvent{
				Status:  model.EventToolDispatch,
				Message: fmt.Sprintf("Usando: %s ('%s')...", toolCall.Tool, toolCall.Args),
			})

			toolResult := o.tools.Execute(ctx, toolCall.Tool, toolCall.Args, contractText)
			sess.toolOutputs = append(sess.toolOutputs, toolResult)

			o.emit(ctx, events, model.AnalysisEvent{Status: model.EventToolDone, Message: "Datos obtenidos."})

			sess.messages = append(sess.messages,
				model.Message{Role: model.RoleAssistant, Content: response},
				model.Message{Role: model.RoleUser, Content: fmt.Sprintf("RESULTADO HERRAMIENTA (%s): %s", toolCall.Tool, toolResult)},
			)
			continue
		}

		if strings.Contains(strings.ToUpper(response), finalMarker) {
			result := buildResult(response, sess.toolOutputs)
			o.emit(ctx, events, model.AnalysisEvent{Status: model.EventComplete, Result: result, Text: contractText})
			return
		}

		// Intermediate reasoning, keep it in the history and loop again
		sess.messages = append(sess.messages, model.Message{Role: model.RoleAssistant, Content: response})
	}

	slog.Warn("session stopped without final report", "max_turns", o.maxTurns)
	o.emit(ctx, events, model.AnalysisEvent{Status: model.EventError, Message: ErrMaxTurns.Error()})
}

// streamTurn runs one reasoning invocation, forwarding every fragment as a
// chunk event while accumulating the full response
func (o *Orchestrator) streamTurn(ctx context.Context, sess *session, events chan<- model.AnalysisEvent) (string, error) {
	stream, err := o.llm.ChatStream(ctx, sess.messages)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for fragment := range stream {
		if fragment.Err != nil {
			return "", fragment.Err
		}
		full.WriteString(fragment.Content)
		o.emit(ctx, events, model.AnalysisEvent{Status: model.EventChunk, Chunk: fragment.Content})
	}
	return full.String(), nil
}

// parseToolCall scans a response for an embedded tool request: the substring
// between the first '{' and the last '}' must parse as JSON and carry a
// non-empty "tool" field. Anything else means no tool call this turn.
func parseToolCall(text string) (model.ToolCall, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return model.ToolCall{}, false
	}

	var call model.ToolCall
	if err := json.Unmarshal([]byte(text[start:end+1]), &call); err != nil {
		return model.ToolCall{}, false
	}
	if call.Tool == "" {
		return model.ToolCall{}, false
	}
	return call, true
}

// buildResult synthesizes the terminal AnalysisResult from the final report
// text: the report splits into reasoning and recommendations at the first
// section separator found, and risk counters come from keyword counting.
func buildResult(analysisText string, toolOutputs []string) *model.AnalysisResult {
	reasoning := analysisText
	recommendationsText := ""

	for _, sep := range sectionSeparators {
		if idx := strings.Index(analysisText, sep); idx >= 0 {
			reasoning = analysisText[:idx]
			recommendationsText = "**" + sep + "**" + analysisText[idx+len(sep):]
			break
		}
	}
	if recommendationsText == "" {
		recommendationsText = noRecommendations
	}

	textLower := strings.ToLower(analysisText)
	highRisk := countKeywords(textLower, resultHighKeywords)
	mediumRisk := countKeywords(textLower, resultMediumKeywords)

	return &model.AnalysisResult{
		Reasoning:       reasoning,
		Recommendations: recommendationsText,
		ToolOutputs:     toolOutputs,
		TotalClauses:    highRisk + mediumRisk,
		HighRiskCount:   highRisk,
		MediumRiskCount: mediumRisk,
		LowRiskCount:    0,
	}
}

func countKeywords(textLower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		count += strings.Count(textLower, kw)
	}
	if count > maxRiskCount {
		count = maxRiskCount
	}
	return count
}
