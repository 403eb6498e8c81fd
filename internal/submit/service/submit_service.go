// Package service accepts submissions into the job store, assembles status
// responses, and compares finished submissions.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"coduel/internal/judge/model"
	"coduel/internal/judge/rank"
	"coduel/internal/judge/store"
	pkgerrors "coduel/pkg/errors"
	"coduel/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	compileLogMaxChars = 8192
	maxCodeBytes       = 256 * 1024
)

var (
	allowedLanguages = map[string]bool{"c": true, "cpp": true}
	allowedOpts      = map[string]bool{"O0": true, "O1": true, "O2": true}
)

// SubmitInput is a validated submission request.
type SubmitInput struct {
	Language  string
	Code      string
	ProblemID string
	Opt       string
	Std       string
}

// StatusOutput is the status endpoint payload.
type StatusOutput struct {
	Meta       model.Submission `json:"meta"`
	CompileLog string           `json:"compile_log,omitempty"`
	RunResult  json.RawMessage  `json:"run_result,omitempty"`
}

// SubmitService mediates between the HTTP surface and the job store.
type SubmitService struct {
	store     *store.JobStore
	tolerance float64
}

// NewSubmitService creates a SubmitService. Tolerance feeds the compare
// operation; zero uses the ranking default.
func NewSubmitService(jobStore *store.JobStore, tolerance float64) *SubmitService {
	return &SubmitService{store: jobStore, tolerance: tolerance}
}

// Submit validates the request, stores metadata and source, and enqueues
// the compile job. Returns the new submission id.
func (s *SubmitService) Submit(ctx context.Context, input SubmitInput) (string, error) {
	if !allowedLanguages[input.Language] {
		return "", pkgerrors.New(pkgerrors.LanguageNotSupported).WithDetail("language", input.Language)
	}
	if strings.TrimSpace(input.Code) == "" {
		return "", pkgerrors.ValidationError("code", "required")
	}
	if len(input.Code) > maxCodeBytes {
		return "", pkgerrors.New(pkgerrors.CodeTooLarge)
	}
	if strings.TrimSpace(input.ProblemID) == "" || strings.ContainsAny(input.ProblemID, "/\\") {
		return "", pkgerrors.ValidationError("problem_id", "required")
	}
	opt := input.Opt
	if opt == "" {
		opt = "O2"
	}
	if !allowedOpts[opt] {
		return "", pkgerrors.New(pkgerrors.OptNotSupported).WithDetail("opt", opt)
	}
	std := input.Std
	if std == "" {
		std = model.DefaultStd(input.Language)
	}

	submissionID := uuid.NewString()
	sub := model.Submission{
		SubmissionID: submissionID,
		Status:       model.StatusQueued,
		ProblemID:    input.ProblemID,
		Language:     input.Language,
		Std:          std,
		Opt:          opt,
		CreatedAt:    time.Now().Unix(),
	}
	if err := s.store.PutSubmission(ctx, sub); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.SubmissionCreateFailed)
	}
	if err := s.store.PutCode(ctx, submissionID, input.Code); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.SubmissionCreateFailed)
	}
	if err := s.store.EnqueueCompile(ctx, model.CompileJob{SubmissionID: submissionID}); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.SubmissionCreateFailed)
	}

	logger.Info(ctx, "submission queued",
		zap.String("submission_id", submissionID),
		zap.String("problem_id", input.ProblemID),
		zap.String("language", input.Language))
	return submissionID, nil
}

// GetStatus assembles metadata, the truncated compile log, and the decoded
// run result for one submission.
func (s *SubmitService) GetStatus(ctx context.Context, submissionID string) (StatusOutput, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return StatusOutput{}, err
	}

	out := StatusOutput{Meta: sub}
	if log, err := s.store.GetCompileLog(ctx, submissionID); err == nil && log != "" {
		if len(log) > compileLogMaxChars {
			log = log[:compileLogMaxChars]
		}
		out.CompileLog = log
	}
	if raw, err := s.store.GetRunResult(ctx, submissionID); err == nil && raw != "" {
		out.RunResult = json.RawMessage(raw)
	}
	return out, nil
}

// Compare loads both run results and applies the lexicographic ranking
// rule. Both submissions must have a decodable run result.
func (s *SubmitService) Compare(ctx context.Context, idA, idB string) (rank.Outcome, error) {
	resultA, err := s.loadRunResult(ctx, idA)
	if err != nil {
		return rank.Outcome{}, err
	}
	resultB, err := s.loadRunResult(ctx, idB)
	if err != nil {
		return rank.Outcome{}, err
	}
	return rank.Compare(resultA, resultB, s.tolerance), nil
}

func (s *SubmitService) loadRunResult(ctx context.Context, submissionID string) (model.RunResult, error) {
	if submissionID == "" {
		return model.RunResult{}, pkgerrors.ValidationError("submission_id", "required")
	}
	raw, err := s.store.GetRunResult(ctx, submissionID)
	if err != nil {
		return model.RunResult{}, err
	}
	if raw == "" {
		return model.RunResult{}, pkgerrors.New(pkgerrors.RunResultMissing).WithDetail("submission_id", submissionID)
	}
	var result model.RunResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return model.RunResult{}, pkgerrors.Wrap(err, pkgerrors.RunResultInvalid)
	}
	if len(result.Tests) == 0 && !result.OK && result.Performance.TotalTests == 0 {
		// The stored blob may be a judge error payload, not a run result.
		var runErr model.RunError
		if json.Unmarshal([]byte(raw), &runErr) == nil && runErr.Error != "" {
			return model.RunResult{}, pkgerrors.New(pkgerrors.RunResultInvalid).WithDetail("error", runErr.Error)
		}
	}
	return result, nil
}
