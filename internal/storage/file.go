package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "swarmrelay/pkg/logx"
)

// Keep the audit file bounded: every compactEvery appends, rewrite it to the
// newest compactKeep records.
const (
	fileCompactEvery = 1000
	fileCompactKeep  = 1000
)

// fileStore is a dependency-free persistence backend: one append-only JSON
// Lines file, periodically compacted in place.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	file   *os.File
	writes int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{log: log, path: path, file: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) AppendDelivery(ctx context.Context, r DeliveryRecord) error {
	_ = ctx
	if r.At.IsZero() {
		r.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("audit file closed")
	}
	if err := json.NewEncoder(s.file).Encode(r); err != nil {
		return err
	}
	s.writes++
	if s.writes%fileCompactEvery == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("audit compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	_ = ctx
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.readAllLocked()
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

func (s *fileStore) readAllLocked() ([]DeliveryRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []DeliveryRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r DeliveryRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			// Tolerate the odd torn line; audit data is best-effort.
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}

func (s *fileStore) compactLocked() error {
	records, err := s.readAllLocked()
	if err != nil {
		return err
	}
	if len(records) <= fileCompactKeep {
		return nil
	}
	records = records[len(records)-fileCompactKeep:]

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}

	// Swap the live handle over to the compacted file.
	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	nf, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		s.file = nil
		return err
	}
	s.file = nf
	return nil
}
