// Package logstore keeps raw logs of completed jobs on disk. A completed
// job's log never changes, so it is served from here instead of being
// downloaded again after a cache eviction or a restart.
package logstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/model"
)

const (
	logFile  = "log.txt"
	metaFile = "meta.json"
)

type Store struct {
	dir     string
	maxSize int64         // max total store size in bytes
	ttl     time.Duration // entry TTL
	log     *zap.Logger
}

// Meta describes a stored job log.
type Meta struct {
	JobID    int64     `json:"job_id"`
	RunID    int64     `json:"run_id"`
	Attempt  int       `json:"attempt"`
	JobName  string    `json:"job_name"`
	StoredAt time.Time `json:"stored_at"`
}

// Entry is a stored job log with computed fields.
type Entry struct {
	Meta
	LastAccessed time.Time
	Size         int64
	Path         string
}

func New(dir string, maxSizeMB int, ttl time.Duration, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log store dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		dir:     dir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		ttl:     ttl,
		log:     log.Named("logstore"),
	}, nil
}

func (s *Store) jobDir(jobID int64, attempt int) string {
	return filepath.Join(s.dir, fmt.Sprintf("job-%d-attempt-%d", jobID, attempt))
}

// Has reports whether a fresh copy of the job's log is stored.
func (s *Store) Has(jobID int64, attempt int) bool {
	info, err := os.Stat(filepath.Join(s.jobDir(jobID, attempt), logFile))
	if err != nil {
		return false
	}
	return !info.IsDir() && time.Since(info.ModTime()) < s.ttl
}

func (s *Store) Open(jobID int64, attempt int) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.jobDir(jobID, attempt), logFile))
	if err != nil {
		return nil, fmt.Errorf("open stored log for job %d: %w", jobID, err)
	}
	return f, nil
}

// Put copies r into the store for job and returns the stored bytes as a
// reader positioned at the start. A partial write leaves no entry behind.
func (s *Store) Put(job model.Job, r io.Reader) (io.ReadCloser, error) {
	dir := s.jobDir(job.ID, job.RunAttempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job log dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, logFile+".*")
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("store log for job %d: %w", job.ID, err)
	}
	path := filepath.Join(dir, logFile)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	meta := Meta{
		JobID:    job.ID,
		RunID:    job.RunID,
		Attempt:  job.RunAttempt,
		JobName:  job.Name,
		StoredAt: time.Now(),
	}
	if err := s.writeMeta(dir, meta); err != nil {
		s.log.Warn("write log meta", zap.Int64("job_id", job.ID), zap.Error(err))
	}
	s.log.Debug("stored job log", zap.Int64("job_id", job.ID), zap.String("size", humanize.Bytes(uint64(n))))
	return os.Open(path)
}

// Evict removes expired entries, then the oldest ones until the store is
// under its size cap.
func (s *Store) Evict() error {
	entries, err := s.List()
	if err != nil {
		return err
	}

	var totalSize int64
	now := time.Now()
	remaining := entries[:0]
	for _, e := range entries {
		if now.Sub(e.LastAccessed) > s.ttl {
			os.RemoveAll(e.Path)
			continue
		}
		totalSize += e.Size
		remaining = append(remaining, e)
	}
	entries = remaining

	if totalSize > s.maxSize {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].LastAccessed.Before(entries[j].LastAccessed)
		})
		for _, e := range entries {
			if totalSize <= s.maxSize {
				break
			}
			os.RemoveAll(e.Path)
			totalSize -= e.Size
		}
	}
	s.log.Debug("evicted", zap.String("remaining", humanize.Bytes(uint64(totalSize))))
	return nil
}

func (s *Store) writeMeta(dir string, meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFile), data, 0o644)
}

func (s *Store) readMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List scans the store directory and returns all entries.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var result []Entry
	for _, e := range dirEntries {
		if !e.IsDir() {
			continue
		}
		// Directory name format from jobDir: job-<jobID>-attempt-<attempt>
		name := e.Name()
		if !strings.HasPrefix(name, "job-") {
			continue
		}
		name = strings.TrimPrefix(name, "job-")
		idx := strings.LastIndex(name, "-attempt-")
		if idx < 0 {
			continue
		}
		jobID, err1 := strconv.ParseInt(name[:idx], 10, 64)
		attempt, err2 := strconv.Atoi(name[idx+len("-attempt-"):])
		if err1 != nil || err2 != nil {
			continue
		}

		dirPath := filepath.Join(s.dir, e.Name())
		entry := Entry{Path: dirPath}
		if meta, err := s.readMeta(dirPath); err == nil {
			entry.Meta = *meta
		} else {
			entry.JobID = jobID
			entry.Attempt = attempt
		}
		entry.Size, entry.LastAccessed = dirStats(dirPath)
		result = append(result, entry)
	}
	return result, nil
}

func (s *Store) Delete(jobID int64, attempt int) error {
	return os.RemoveAll(s.jobDir(jobID, attempt))
}

// TotalSize returns total store size in bytes.
func (s *Store) TotalSize() (int64, error) {
	var total int64
	err := filepath.Walk(s.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	return total, nil
}

func dirStats(path string) (size int64, latest time.Time) {
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		size += info.Size()
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	return size, latest
}
