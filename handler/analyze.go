package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sbcesar/contractguardian/model"
	"github.com/sbcesar/contractguardian/pkg/logger"
	"github.com/sbcesar/contractguardian/service"
)

type AnalyzeHandler struct {
	orchestrator *service.Orchestrator
	store        *service.ContractStore
}

func NewAnalyzeHandler(orchestrator *service.Orchestrator, store *service.ContractStore) *AnalyzeHandler {
	return &AnalyzeHandler{
		orchestrator: orchestrator,
		store:        store,
	}
}

// Analyze runs one agent session over a contract and streams its progress
// events to the client as Server-Sent Events. The terminal result (or error)
// is also recorded on the contract.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	id := c.Param("id")

	contract := h.store.Get(id)
	if contract == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	h.store.UpdateStatus(id, model.StatusAnalyzing, "")

	ctx := context.WithValue(c.Request.Context(), logger.ContractIDKey, id)
	ctx = context.WithValue(ctx, logger.SessionIDKey, uuid.New().String())
	logger.Info(ctx, "analysis session started", "filename", contract.Filename)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	events := h.orchestrator.AnalyzeContract(ctx, contract.PDFURL)
	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		c.Writer.Flush()

		switch event.Status {
		case model.EventComplete:
			h.store.SetText(id, event.Text)
			h.store.SetResult(id, event.Result)
			logger.Info(ctx, "analysis session completed")
		case model.EventError:
			h.store.UpdateStatus(id, model.StatusFailed, event.Message)
			logger.Warn(ctx, "analysis session failed", "reason", event.Message)
		}
	}
}
