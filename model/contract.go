package model

import (
	"time"
)

// Contract represents an uploaded contract document
type Contract struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	PDFURL    string          `json:"pdf_url"`
	Status    string          `json:"status"` // pending, analyzing, completed, failed
	Text      string          `json:"-"`
	Result    *AnalysisResult `json:"result,omitempty"`
	ErrorMsg  string          `json:"error_msg,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ContractStatus constants
const (
	StatusPending   = "pending"
	StatusAnalyzing = "analyzing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
