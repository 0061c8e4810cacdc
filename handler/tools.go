package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sbcesar/contractguardian/service"
)

// ToolsHandler exposes the auxiliary tool endpoints the agent loop calls
// back into: keyword search over the legal reference collection and clause
// classification.
type ToolsHandler struct {
	laws       *service.LawStore
	classifier *service.ClauseClassifier
}

func NewToolsHandler(laws *service.LawStore, classifier *service.ClauseClassifier) *ToolsHandler {
	return &ToolsHandler{
		laws:       laws,
		classifier: classifier,
	}
}

type lawLookupRequest struct {
	Topic string `json:"topic"`
}

// LawLookup ranks legal reference articles against a search topic
func (h *ToolsHandler) LawLookup(c *gin.Context) {
	var req lawLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	c.JSON(http.StatusOK, h.laws.Search(req.Topic))
}

type classifyRequest struct {
	ContractText string `json:"contract_text"`
}

// ClassifyClauses segments and classifies a contract text excerpt
func (h *ToolsHandler) ClassifyClauses(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	clauses := h.classifier.ClassifyContract(req.ContractText)
	c.JSON(http.StatusOK, gin.H{
		"clauses": clauses,
		"summary": h.classifier.Summarize(clauses),
	})
}

// ListLaws returns the full loaded reference collection
func (h *ToolsHandler) ListLaws(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total": h.laws.Count(),
		"laws":  h.laws.Articles(),
	})
}

// LawStats returns per-domain article counts
func (h *ToolsHandler) LawStats(c *gin.Context) {
	stats := h.laws.DomainStats()
	c.JSON(http.StatusOK, gin.H{
		"total_articles": h.laws.Count(),
		"domains":        stats,
		"domains_count":  len(stats),
	})
}
