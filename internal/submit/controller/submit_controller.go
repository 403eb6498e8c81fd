package controller

import (
	"coduel/internal/submit/service"
	"coduel/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmitController handles submission HTTP endpoints.
type SubmitController struct {
	submitService *service.SubmitService
}

// NewSubmitController creates a new SubmitController.
func NewSubmitController(submitService *service.SubmitService) *SubmitController {
	return &SubmitController{submitService: submitService}
}

// Create handles submission requests.
func (h *SubmitController) Create(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	submissionID, err := h.submitService.Submit(c.Request.Context(), service.SubmitInput{
		Language:  req.Language,
		Code:      req.Code,
		ProblemID: req.ProblemID,
		Opt:       req.Opt,
		Std:       req.Std,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, SubmitResponse{SubmissionID: submissionID})
}

// GetStatus returns metadata, compile log, and run result for one submission.
func (h *SubmitController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	status, err := h.submitService.GetStatus(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

// Compare ranks two finished submissions against each other.
func (h *SubmitController) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	outcome, err := h.submitService.Compare(c.Request.Context(), req.SubmissionIDA, req.SubmissionIDB)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, outcome)
}

// SubmitRequest defines the submission payload.
type SubmitRequest struct {
	Language  string `json:"language" binding:"required"`
	Code      string `json:"code" binding:"required"`
	ProblemID string `json:"problem_id" binding:"required"`
	Opt       string `json:"opt"`
	Std       string `json:"std"`
}

// SubmitResponse defines the submission response payload.
type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
}

// CompareRequest defines the compare payload.
type CompareRequest struct {
	SubmissionIDA string `json:"submission_id_a" binding:"required"`
	SubmissionIDB string `json:"submission_id_b" binding:"required"`
}
