package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends security events as JSON lines to a log file,
// rotating when the file exceeds the configured size.
type FileSink struct {
	basePath string
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// FileSinkConfig configures the file sink.
type FileSinkConfig struct {
	BasePath string // directory for audit logs
	MaxSize  int64  // bytes before rotation (default 50MB)
	MaxFiles int    // rotated files kept (default 10)
}

// NewFileSink creates a file-based audit sink.
func NewFileSink(config FileSinkConfig) (*FileSink, error) {
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	sink := &FileSink{
		basePath: config.BasePath,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
	}
	if sink.maxSize <= 0 {
		sink.maxSize = 50 * 1024 * 1024
	}
	if sink.maxFiles <= 0 {
		sink.maxFiles = 10
	}

	if err := sink.openLogFile(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *FileSink) logPath() string {
	return filepath.Join(s.basePath, "security.log")
}

func (s *FileSink) openLogFile() error {
	filename := s.logPath()

	if info, err := os.Stat(filename); err == nil && info.Size() >= s.maxSize {
		if err := s.rotate(); err != nil {
			return fmt.Errorf("failed to rotate audit log: %w", err)
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	s.file = file
	s.encoder = json.NewEncoder(file)
	return nil
}

func (s *FileSink) rotate() error {
	// Shift security.log.N-1 -> security.log.N, oldest dropped.
	oldest := fmt.Sprintf("%s.%d", s.logPath(), s.maxFiles-1)
	os.Remove(oldest)
	for i := s.maxFiles - 2; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", s.logPath(), i), fmt.Sprintf("%s.%d", s.logPath(), i+1))
	}
	return os.Rename(s.logPath(), s.logPath()+".1")
}

// Log appends the event as one JSON line.
func (s *FileSink) Log(_ context.Context, event *SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("audit sink is closed")
	}

	if info, err := s.file.Stat(); err == nil && info.Size() >= s.maxSize {
		s.file.Close()
		if err := s.openLogFile(); err != nil {
			return err
		}
	}

	return s.encoder.Encode(event)
}

// ReadEvents returns up to limit events from the current log file,
// oldest first. Intended for tests and operational spot checks.
func (s *FileSink) ReadEvents(limit int) ([]*SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.logPath())
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []*SecurityEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() && (limit <= 0 || len(events) < limit) {
		event, err := FromJSON(scanner.Bytes())
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

// Close flushes and closes the log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.encoder = nil
	return err
}
