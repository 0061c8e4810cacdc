package model

// ClauseType identifies the legal category of a clause
type ClauseType string

const (
	ClauseTermination  ClauseType = "TERMINACION"
	ClauseLiability    ClauseType = "RESPONSABILIDAD"
	ClausePrivacy      ClauseType = "PRIVACIDAD"
	ClausePayment      ClauseType = "PAGO"
	ClauseModification ClauseType = "MODIFICACION"
	ClauseArbitration  ClauseType = "ARBITRAJE"
	ClauseDuration     ClauseType = "DURACION"
	ClauseRestrictions ClauseType = "RESTRICCIONES"
	ClauseOther        ClauseType = "OTRO"
)

// ClauseTypePriority is the declared tie-break order for type detection.
// When two categories score the same, the one listed first wins.
var ClauseTypePriority = []ClauseType{
	ClauseTermination,
	ClauseLiability,
	ClausePrivacy,
	ClausePayment,
	ClauseModification,
	ClauseArbitration,
	ClauseDuration,
	ClauseRestrictions,
}

// RiskLevel is the coarse risk bucket derived from the numeric score
type RiskLevel string

const (
	RiskHigh   RiskLevel = "ALTO"
	RiskMedium RiskLevel = "MEDIO"
	RiskLow    RiskLevel = "BAJO"
)

// ClassifiedClause is one segmented clause with its full analysis.
// Instances are built per classification call and never mutated afterwards.
type ClassifiedClause struct {
	ID              string     `json:"id"`
	ClauseText      string     `json:"clause_text"`
	ClauseType      ClauseType `json:"clause_type"`
	RiskLevel       RiskLevel  `json:"risk_level"`
	RiskScore       int        `json:"risk_score"` // 0-100
	Confidence      float64    `json:"confidence"` // 0-1
	LegalIssue      string     `json:"legal_issue"`
	ApplicableLaws  []string   `json:"applicable_laws"`
	Recommendations []string   `json:"recommendations"`
	KeyTerms        []string   `json:"key_terms"`
}

// ClassificationSummary aggregates a classified contract
type ClassificationSummary struct {
	TotalClauses     int     `json:"total_clauses"`
	HighRisk         int     `json:"high_risk"`
	MediumRisk       int     `json:"medium_risk"`
	LowRisk          int     `json:"low_risk"`
	AverageRiskScore float64 `json:"average_risk_score"`
	RiskPercentage   float64 `json:"risk_percentage"`
}
