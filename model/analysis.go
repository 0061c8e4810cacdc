package model

// Message is one role-tagged entry of an agent conversation
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolCall is a structured tool request embedded in the reasoning output
type ToolCall struct {
	Tool string `json:"tool"`
	Args string `json:"args"`
}

// AnalysisEvent status discriminants. Every orchestrator state transition
// emits exactly one event; chunk events carry streamed fragments.
const (
	EventExtracting   = "extracting"
	EventReasoning    = "reasoning"
	EventChunk        = "chunk"
	EventToolDispatch = "tool-dispatch"
	EventToolDone     = "tool-done"
	EventComplete     = "complete"
	EventError        = "error"
)

// AnalysisEvent is one progress event of an analysis session. Text carries
// the extracted document on the complete event for the session owner to
// record; it never goes out on the wire.
type AnalysisEvent struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Chunk   string          `json:"chunk,omitempty"`
	Result  *AnalysisResult `json:"result,omitempty"`
	Text    string          `json:"-"`
}

// AnalysisResult is the terminal output of a completed session
type AnalysisResult struct {
	Reasoning       string   `json:"reasoning"`
	Recommendations string   `json:"recommendations"`
	ToolOutputs     []string `json:"tool_outputs,omitempty"`
	TotalClauses    int      `json:"total_clauses"`
	HighRiskCount   int      `json:"high_risk_count"`
	MediumRiskCount int      `json:"medium_risk_count"`
	LowRiskCount    int      `json:"low_risk_count"`
}
