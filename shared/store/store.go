// Package store is the durable side of the pipeline: job status records and
// cancel flags in Redis, job payload blobs and media assets in S3.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zk94007/osum-vsl/shared/types"
)

const (
	statusKeyPrefix = "status_"
	cancelKeyPrefix = "cancelled_"
	jobDataHashKey  = "jobData"
)

// ErrStatusNotFound is returned when no status record exists for a job id.
var ErrStatusNotFound = errors.New("job status not found")

// Blob is the object-store surface the Store needs. *common.S3 satisfies it.
type Blob interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	UploadFile(ctx context.Context, bucket, key, path, contentType string) error
	DownloadFile(ctx context.Context, bucket, key, path string) error
	UploadFromURL(ctx context.Context, bucket, key, rawURL string) error
	MakePublic(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Store combines the Redis status records with the S3 payload/asset blobs.
type Store struct {
	rdb    redis.UniversalClient
	blob   Blob
	bucket string
}

func New(rdb redis.UniversalClient, blob Blob, bucket string) *Store {
	return &Store{rdb: rdb, blob: blob, bucket: bucket}
}

// GetJobStatus reads the whole status record for a job.
func (s *Store) GetJobStatus(ctx context.Context, jobID string) (*types.JobStatus, error) {
	raw, err := s.rdb.Get(ctx, statusKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", jobID, err)
	}
	var st types.JobStatus
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode status %s: %w", jobID, err)
	}
	return &st, nil
}

// SetJobStatus writes the whole status record. There are no partial updates;
// callers read, modify and write back.
func (s *Store) SetJobStatus(ctx context.Context, jobID string, st *types.JobStatus) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, statusKeyPrefix+jobID, raw, 0).Err(); err != nil {
		return fmt.Errorf("set status %s: %w", jobID, err)
	}
	return nil
}

// SetProgress updates only step/status/percentage, preserving accumulated files.
func (s *Store) SetProgress(ctx context.Context, jobID string, step types.Stage, status string, pct int) error {
	st, err := s.GetJobStatus(ctx, jobID)
	if err != nil {
		if !errors.Is(err, ErrStatusNotFound) {
			return err
		}
		st = &types.JobStatus{Files: []types.FileRef{}}
	}
	st.Step = step
	st.Status = status
	st.Percentage = pct
	return s.SetJobStatus(ctx, jobID, st)
}

// AppendFiles adds output references to the status record.
func (s *Store) AppendFiles(ctx context.Context, jobID string, files ...types.FileRef) error {
	st, err := s.GetJobStatus(ctx, jobID)
	if err != nil {
		return err
	}
	st.Files = append(st.Files, files...)
	return s.SetJobStatus(ctx, jobID, st)
}

// StoreJobData persists the payload under a fresh ref and returns the ref.
// The blob goes to S3 under the job namespace and is mirrored into a Redis
// hash so the next stage avoids a round trip to object storage.
func (s *Store) StoreJobData(ctx context.Context, jobID string, data *types.JobData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s/%s.json", jobID, uuid.NewString())

	if err := s.blob.Put(ctx, s.bucket, ref, strings.NewReader(string(raw)), "application/json"); err != nil {
		return "", fmt.Errorf("store payload %s: %w", ref, err)
	}
	if err := s.rdb.HSet(ctx, jobDataHashKey, ref, raw).Err(); err != nil {
		return "", fmt.Errorf("mirror payload %s: %w", ref, err)
	}
	return ref, nil
}

// RemoveJobData deletes a consumed payload blob and its Redis mirror. Called
// once the following stage's payload exists; the ref is never read again.
func (s *Store) RemoveJobData(ctx context.Context, ref string) error {
	if err := s.rdb.HDel(ctx, jobDataHashKey, ref).Err(); err != nil {
		return fmt.Errorf("remove payload mirror %s: %w", ref, err)
	}
	if err := s.blob.Delete(ctx, s.bucket, ref); err != nil {
		return fmt.Errorf("remove payload %s: %w", ref, err)
	}
	return nil
}

// ReadJobData loads a payload by ref, preferring the Redis mirror.
func (s *Store) ReadJobData(ctx context.Context, ref string) (*types.JobData, error) {
	raw, err := s.rdb.HGet(ctx, jobDataHashKey, ref).Bytes()
	if err == redis.Nil {
		body, gerr := s.blob.Get(ctx, s.bucket, ref)
		if gerr != nil {
			return nil, fmt.Errorf("read payload %s: %w", ref, gerr)
		}
		defer body.Close()
		raw, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read payload %s: %w", ref, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", ref, err)
	}

	var data types.JobData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", ref, err)
	}
	return &data, nil
}

// Cancel raises the job's cancel flag. Stages observe it at their next
// progress checkpoint and abort with types.ErrJobCancelled.
func (s *Store) Cancel(ctx context.Context, jobID string) error {
	if err := s.rdb.Set(ctx, cancelKeyPrefix+jobID, "1", 0).Err(); err != nil {
		return fmt.Errorf("cancel %s: %w", jobID, err)
	}
	return nil
}

// IsCancelled reports whether the cancel flag is set for the job.
func (s *Store) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, cancelKeyPrefix+jobID).Result()
	if err != nil {
		return false, fmt.Errorf("check cancel %s: %w", jobID, err)
	}
	return n > 0, nil
}

// UploadAsset uploads a local media file under the job namespace and returns
// its object key.
func (s *Store) UploadAsset(ctx context.Context, jobID, path, ext, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s.%s", jobID, uuid.NewString(), ext)
	if err := s.blob.UploadFile(ctx, s.bucket, key, path, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// RehostURL copies an external asset into the job namespace and returns its
// object key. Third-party media URLs expire; job assets must not. Keys are
// derived from the source URL so a redelivered stage message skips assets it
// already copied.
func (s *Store) RehostURL(ctx context.Context, jobID, rawURL, ext string) (string, error) {
	sum := sha256.Sum256([]byte(rawURL))
	key := fmt.Sprintf("%s/%x.%s", jobID, sum[:12], ext)

	ok, err := s.blob.Exists(ctx, s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("rehost %s: %w", rawURL, err)
	}
	if ok {
		return key, nil
	}
	if err := s.blob.UploadFromURL(ctx, s.bucket, key, rawURL); err != nil {
		return "", err
	}
	return key, nil
}

// FetchAsset downloads a job asset by object key into a local path.
func (s *Store) FetchAsset(ctx context.Context, key, path string) error {
	return s.blob.DownloadFile(ctx, s.bucket, key, path)
}

// Publish makes an object public and returns its URL.
func (s *Store) Publish(ctx context.Context, key string) (string, error) {
	if err := s.blob.MakePublic(ctx, s.bucket, key); err != nil {
		return "", fmt.Errorf("publish %s: %w", key, err)
	}
	return s.blob.PublicURL(s.bucket, key), nil
}

// URL returns the browser-reachable URL of a job asset.
func (s *Store) URL(key string) string {
	return s.blob.PublicURL(s.bucket, key)
}
