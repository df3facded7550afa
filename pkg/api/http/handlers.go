package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
)

// DecisionSubmitRequest represents a decision submission request
type DecisionSubmitRequest struct {
	AccountID string                  `json:"account_id" binding:"required"`
	Epoch     uint64                  `json:"epoch" binding:"required"`
	Actions   []domain.ProposedAction `json:"actions" binding:"required"`
}

// DecisionSubmitResponse represents a decision submission response
type DecisionSubmitResponse struct {
	DecisionID  string             `json:"decision_id"`
	Jobs        []domain.JobHandle `json:"jobs"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// SearchRequest represents a retrieval query
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"checks": gin.H{
			"dispatcher": "ok",
			"agents":     len(s.registry.Snapshot()),
		},
	})
}

// handleSubmitDecision handles decision submission
func (s *Server) handleSubmitDecision(c *gin.Context) {
	var req DecisionSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	decision := domain.Decision{
		ID:          uuid.New().String(),
		AccountID:   req.AccountID,
		Epoch:       req.Epoch,
		Actions:     req.Actions,
		SubmittedAt: time.Now(),
	}

	handles, err := s.dispatcher.Submit(c.Request.Context(), decision)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSuperseded):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: ErrorDetail{
					Code:    "EPOCH_SUPERSEDED",
					Message: err.Error(),
				},
			})
		case errors.Is(err, domain.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{
					Code:    "ACCOUNT_NOT_FOUND",
					Message: err.Error(),
				},
			})
		default:
			s.logger.Error("failed to submit decision", zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error: ErrorDetail{
					Code:    "SUBMISSION_FAILED",
					Message: err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusCreated, DecisionSubmitResponse{
		DecisionID:  decision.ID,
		Jobs:        handles,
		SubmittedAt: decision.SubmittedAt,
	})
}

// handleListDecisions pages through the decisions feed, newest first
func (s *Server) handleListDecisions(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "MISSING_ACCOUNT",
				Message: "account_id query parameter is required",
			},
		})
		return
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	records, err := s.feed.List(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "FEED_ERROR",
				Message: "Failed to retrieve decisions feed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": records,
		"limit":     limit,
		"offset":    offset,
	})
}

// handleGetJob handles getting job details
func (s *Server) handleGetJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := s.dispatcher.Job(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// handleGetJobStatus handles polling job status
func (s *Server) handleGetJobStatus(c *gin.Context) {
	jobID := c.Param("id")

	status, err := s.dispatcher.Poll(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":   jobID,
		"status":   status,
		"terminal": status.Terminal(),
	})
}

// handleGetPortfolio handles the portfolio summary view
func (s *Server) handleGetPortfolio(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "MISSING_ACCOUNT",
				Message: "account_id query parameter is required",
			},
		})
		return
	}

	summary, err := s.ledger.Summary(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "ACCOUNT_NOT_FOUND",
				Message: "Account not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleGetAssets handles the priced holdings list
func (s *Server) handleGetAssets(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "MISSING_ACCOUNT",
				Message: "account_id query parameter is required",
			},
		})
		return
	}

	assets, err := s.ledger.Assets(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "ACCOUNT_NOT_FOUND",
				Message: "Account not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// handleGetTransactions lists the account's ledger records, newest first
func (s *Server) handleGetTransactions(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "MISSING_ACCOUNT",
				Message: "account_id query parameter is required",
			},
		})
		return
	}
	limit := intQuery(c, "limit", 50)

	txns, err := s.ledger.Transactions(c.Request.Context(), accountID, limit)
	if err != nil {
		s.logger.Error("failed to list transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "LEDGER_ERROR",
				Message: "Failed to retrieve transactions",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// handleListAgents lists registered agents and their load
func (s *Server) handleListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"agents":    s.registry.Snapshot(),
		"timestamp": time.Now().UTC(),
	})
}

// handleSearch proxies a retrieval query to the search provider
func (s *Server) handleSearch(c *gin.Context) {
	if s.search == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SEARCH_NOT_AVAILABLE",
				Message: "Search provider is not configured",
			},
		})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	docs, err := s.search.Search(c.Request.Context(), req.Query, req.K)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SEARCH_FAILED",
				Message: "Failed to run query",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": docs})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
