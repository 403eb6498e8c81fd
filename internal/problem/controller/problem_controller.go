package controller

import (
	"coduel/internal/problem/repository"
	"coduel/internal/problem/service"
	"coduel/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// GetDetail returns statement and metadata for one problem.
func (h *ProblemController) GetDetail(c *gin.Context) {
	problemID := c.Param("problem_id")
	detail, err := h.problemService.GetDetail(c.Request.Context(), problemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// Add creates a new problem directory from the request payload.
func (h *ProblemController) Add(c *gin.Context) {
	var req AddProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	tests := make([]repository.TestCase, 0, len(req.Tests))
	for _, test := range req.Tests {
		tests = append(tests, repository.TestCase{Input: test.Input, Output: test.Output})
	}

	result, err := h.problemService.Create(c.Request.Context(), repository.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		SampleInput:  req.SampleInput,
		SampleOutput: req.SampleOutput,
		Difficulty:   req.Difficulty,
		Tests:        tests,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, AddProblemResponse{
		Message:    "problem created",
		ProblemID:  result.ProblemID,
		Number:     result.Number,
		Difficulty: req.Difficulty,
		TestsCount: result.TestsCount,
	})
}

// TestCasePayload is one input/output pair of a new problem.
type TestCasePayload struct {
	Input  string `json:"input" binding:"required"`
	Output string `json:"output" binding:"required"`
}

// AddProblemRequest defines the problem creation payload.
type AddProblemRequest struct {
	Title        string            `json:"title" binding:"required"`
	Description  string            `json:"description" binding:"required"`
	SampleInput  string            `json:"sample_input" binding:"required"`
	SampleOutput string            `json:"sample_output" binding:"required"`
	Difficulty   string            `json:"difficulty" binding:"required"`
	Tests        []TestCasePayload `json:"tests" binding:"required"`
}

// AddProblemResponse defines the problem creation response payload.
type AddProblemResponse struct {
	Message    string `json:"message"`
	ProblemID  string `json:"problem_id"`
	Number     int    `json:"number"`
	Difficulty string `json:"difficulty"`
	TestsCount int    `json:"tests_count"`
}
