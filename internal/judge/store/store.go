// Package store implements the transient job store for submissions: a
// keyed hash per submission, TTL'd blobs for source/compile log/run
// result, and the two FIFO work queues.
package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"coduel/internal/common/cache"
	"coduel/internal/judge/model"
	appErr "coduel/pkg/errors"
)

const (
	submissionKeyPrefix = "sub:"
	codeKeyPrefix       = "code:"
	compileLogKeyPrefix = "compile_log:"
	runResultKeyPrefix  = "run_result:"

	// CompileQueueKey and RunQueueKey name the two FIFO work queues.
	CompileQueueKey = "queue:compile"
	RunQueueKey     = "queue:run"

	blobTTL = time.Hour
)

// JobStore persists submission state and mediates the two work queues.
type JobStore struct {
	cache cache.Cache
}

// NewJobStore creates a store on top of the given cache client.
func NewJobStore(cacheClient cache.Cache) *JobStore {
	return &JobStore{cache: cacheClient}
}

// PutSubmission writes the submission hash.
func (s *JobStore) PutSubmission(ctx context.Context, sub model.Submission) error {
	if sub.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	fields := map[string]interface{}{
		"status":     string(sub.Status),
		"problem_id": sub.ProblemID,
		"language":   sub.Language,
		"opt":        sub.Opt,
		"created_at": strconv.FormatInt(sub.CreatedAt, 10),
	}
	if sub.Std != "" {
		fields["std"] = sub.Std
	}
	if err := s.cache.HMSet(ctx, submissionKeyPrefix+sub.SubmissionID, fields); err != nil {
		return appErr.Wrapf(err, appErr.StoreSetFailed, "store submission failed")
	}
	return nil
}

// GetSubmission fetches the submission hash. Returns SubmissionNotFound
// when the hash is absent.
func (s *JobStore) GetSubmission(ctx context.Context, submissionID string) (model.Submission, error) {
	if submissionID == "" {
		return model.Submission{}, appErr.ValidationError("submission_id", "required")
	}
	fields, err := s.cache.HGetAll(ctx, submissionKeyPrefix+submissionID)
	if err != nil {
		return model.Submission{}, appErr.Wrapf(err, appErr.StoreError, "get submission failed")
	}
	if len(fields) == 0 {
		return model.Submission{}, appErr.New(appErr.SubmissionNotFound)
	}
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	return model.Submission{
		SubmissionID: submissionID,
		Status:       model.Status(fields["status"]),
		ProblemID:    fields["problem_id"],
		Language:     fields["language"],
		Std:          fields["std"],
		Opt:          fields["opt"],
		CreatedAt:    createdAt,
	}, nil
}

// SetStatus writes the single status field of the submission hash.
func (s *JobStore) SetStatus(ctx context.Context, submissionID string, status model.Status) error {
	if submissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if err := s.cache.HSet(ctx, submissionKeyPrefix+submissionID, "status", string(status)); err != nil {
		return appErr.Wrapf(err, appErr.StoreSetFailed, "set status failed")
	}
	return nil
}

// PutCode stores the submitted source text with the blob TTL.
func (s *JobStore) PutCode(ctx context.Context, submissionID, code string) error {
	return s.putBlob(ctx, codeKeyPrefix+submissionID, code)
}

// GetCode reads the submitted source text; empty when expired or absent.
func (s *JobStore) GetCode(ctx context.Context, submissionID string) (string, error) {
	return s.getBlob(ctx, codeKeyPrefix+submissionID)
}

// PutCompileLog stores the captured compiler output with the blob TTL.
func (s *JobStore) PutCompileLog(ctx context.Context, submissionID, log string) error {
	return s.putBlob(ctx, compileLogKeyPrefix+submissionID, log)
}

// GetCompileLog reads the compile log; empty when expired or absent.
func (s *JobStore) GetCompileLog(ctx context.Context, submissionID string) (string, error) {
	return s.getBlob(ctx, compileLogKeyPrefix+submissionID)
}

// PutRunResult stores the aggregated run result JSON with the blob TTL.
func (s *JobStore) PutRunResult(ctx context.Context, submissionID, payload string) error {
	return s.putBlob(ctx, runResultKeyPrefix+submissionID, payload)
}

// GetRunResult reads the run result JSON; empty when expired or absent.
func (s *JobStore) GetRunResult(ctx context.Context, submissionID string) (string, error) {
	return s.getBlob(ctx, runResultKeyPrefix+submissionID)
}

// EnqueueCompile pushes a compile job onto the compile queue.
func (s *JobStore) EnqueueCompile(ctx context.Context, job model.CompileJob) error {
	return s.enqueue(ctx, CompileQueueKey, job)
}

// EnqueueRun pushes a run job onto the run queue.
func (s *JobStore) EnqueueRun(ctx context.Context, job model.RunJob) error {
	return s.enqueue(ctx, RunQueueKey, job)
}

// DequeueCompile blocks up to timeout for a compile job. The ok result is
// false when the queue stayed empty.
func (s *JobStore) DequeueCompile(ctx context.Context, timeout time.Duration) (model.CompileJob, bool, error) {
	var job model.CompileJob
	ok, err := s.dequeue(ctx, CompileQueueKey, timeout, &job)
	return job, ok, err
}

// DequeueRun blocks up to timeout for a run job. The ok result is false
// when the queue stayed empty.
func (s *JobStore) DequeueRun(ctx context.Context, timeout time.Duration) (model.RunJob, bool, error) {
	var job model.RunJob
	ok, err := s.dequeue(ctx, RunQueueKey, timeout, &job)
	return job, ok, err
}

func (s *JobStore) putBlob(ctx context.Context, key, value string) error {
	if err := s.cache.Set(ctx, key, value, blobTTL); err != nil {
		return appErr.Wrapf(err, appErr.StoreSetFailed, "store blob failed")
	}
	return nil
}

func (s *JobStore) getBlob(ctx context.Context, key string) (string, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StoreError, "get blob failed")
	}
	return value, nil
}

func (s *JobStore) enqueue(ctx context.Context, queue string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "encode queue payload failed")
	}
	if err := s.cache.LPush(ctx, queue, string(data)); err != nil {
		return appErr.Wrapf(err, appErr.StoreSetFailed, "enqueue failed")
	}
	return nil
}

func (s *JobStore) dequeue(ctx context.Context, queue string, timeout time.Duration, out interface{}) (bool, error) {
	_, payload, err := s.cache.BRPop(ctx, timeout, queue)
	if err != nil {
		return false, appErr.Wrapf(err, appErr.StoreError, "dequeue failed")
	}
	if payload == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, appErr.Wrapf(err, appErr.InternalServerError, "decode queue payload failed")
	}
	return true, nil
}
