package jobstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const recordExt = ".json"

// ErrRecordNotFound reports an id with no record file behind it.
var ErrRecordNotFound = errors.New("job record not found")

// Store reads and updates job records kept as one JSON file per job. Writes
// touch only the evaluation_results section; everything else in a record,
// including fields this build knows nothing about, survives byte-for-byte in
// value terms.
type Store struct {
	dir    string
	logger *zap.Logger
}

func New(dir string, logger *zap.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("jobs directory is required")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("jobs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("jobs directory %q is not a directory", dir)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{dir: dir, logger: logger}, nil
}

// List loads every record in the directory, ordered by file name. Unreadable
// files are skipped with a warning so one corrupt record cannot block a batch.
func (s *Store) List() (*Jobs, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs directory: %w", err)
	}

	jobs := &Jobs{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasPrefix(name, ".") {
			continue
		}

		record, err := s.load(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable job record", zap.String("file", name), zap.Error(err))
			continue
		}
		if record.ID == "" {
			// Scrapers name files by job id; carry it for records that omit
			// the field.
			record.ID = strings.TrimSuffix(name, recordExt)
		}

		jobs.Items = append(jobs.Items, record)
	}

	return jobs, nil
}

func (s *Store) Get(id string) (*JobRecord, error) {
	path, err := s.recordPath(id)
	if err != nil {
		return nil, err
	}

	record, err := s.load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, err
	}
	if record.ID == "" {
		record.ID = id
	}

	return record, nil
}

// SaveEvaluation replaces the evaluation_results section of the stored record
// and rewrites the file atomically. Calling it again with the same results is
// a no-op in content terms.
func (s *Store) SaveEvaluation(id string, results *EvaluationResults) error {
	if results == nil {
		return errors.New("evaluation results are required")
	}

	path, err := s.recordPath(id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return fmt.Errorf("read job record %s: %w", id, err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	// Decode numbers as json.Number so scraper-owned integers wider than
	// float64 re-marshal with their exact digits.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("parse job record %s: %w", id, err)
	}

	raw["evaluation_results"] = results

	updated, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job record %s: %w", id, err)
	}
	updated = append(updated, '\n')

	return s.writeAtomic(path, updated, mode)
}

func (s *Store) recordPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("job id is required")
	}
	if strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return "", fmt.Errorf("job id %q must not contain path separators", id)
	}
	return filepath.Join(s.dir, id+recordExt), nil
}

func (s *Store) load(path string) (*JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return decodeRecord(raw)
}

// decodeRecord maps a raw record onto the typed view. Fields this build does
// not know about are simply not decoded; they stay in the file untouched.
func decodeRecord(raw map[string]any) (*JobRecord, error) {
	var record JobRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &record,
		TagName: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("create record decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode job record: %w", err)
	}
	return &record, nil
}

func (s *Store) writeAtomic(path string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(s.dir, ".fit-judge-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace job record: %w", err)
	}
	return nil
}
