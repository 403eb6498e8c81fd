// Package service validates and executes problem operations against the
// on-disk problems tree.
package service

import (
	"context"
	"strings"

	"coduel/internal/problem/repository"
	pkgerrors "coduel/pkg/errors"
	"coduel/pkg/utils/logger"

	"go.uber.org/zap"
)

var allowedDifficulties = map[string]bool{
	"fast":   true,
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ProblemService handles problem queries and creation.
type ProblemService struct {
	repo *repository.DiskRepository
}

// NewProblemService creates a new ProblemService.
func NewProblemService(repo *repository.DiskRepository) *ProblemService {
	return &ProblemService{repo: repo}
}

// GetDetail returns statement and metadata for one problem.
func (s *ProblemService) GetDetail(ctx context.Context, problemID string) (repository.Detail, error) {
	if problemID == "" || strings.ContainsAny(problemID, "/\\") {
		return repository.Detail{}, pkgerrors.New(pkgerrors.InvalidParams)
	}
	detail, err := s.repo.GetDetail(problemID)
	if err != nil {
		if err == repository.ErrProblemNotFound {
			return repository.Detail{}, pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return repository.Detail{}, pkgerrors.Wrap(err, pkgerrors.InternalServerError)
	}
	return detail, nil
}

// Create validates and writes a new problem directory.
func (s *ProblemService) Create(ctx context.Context, input repository.CreateInput) (repository.CreateResult, error) {
	if strings.TrimSpace(input.Title) == "" {
		return repository.CreateResult{}, pkgerrors.ValidationError("title", "required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return repository.CreateResult{}, pkgerrors.ValidationError("description", "required")
	}
	if strings.TrimSpace(input.SampleInput) == "" {
		return repository.CreateResult{}, pkgerrors.ValidationError("sample_input", "required")
	}
	if strings.TrimSpace(input.SampleOutput) == "" {
		return repository.CreateResult{}, pkgerrors.ValidationError("sample_output", "required")
	}
	if !allowedDifficulties[input.Difficulty] {
		return repository.CreateResult{}, pkgerrors.Newf(pkgerrors.InvalidValue, "difficulty must be one of fast, easy, medium, hard")
	}
	if len(input.Tests) == 0 {
		return repository.CreateResult{}, pkgerrors.ValidationError("tests", "required")
	}
	for _, test := range input.Tests {
		if test.Input == "" || test.Output == "" {
			return repository.CreateResult{}, pkgerrors.New(pkgerrors.TestCaseInvalid).WithMessage("test input/output cannot be empty")
		}
	}

	result, err := s.repo.Create(input)
	if err != nil {
		logger.Error(ctx, "create problem failed", zap.String("title", input.Title), zap.Error(err))
		return repository.CreateResult{}, pkgerrors.Wrap(err, pkgerrors.ProblemCreateFailed)
	}
	logger.Info(ctx, "problem created",
		zap.String("problem_id", result.ProblemID),
		zap.Int("number", result.Number),
		zap.Int("tests", result.TestsCount))
	return result, nil
}
