// Package statistics collects thread-safe counters for one batch
// compression run.
package statistics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains all statistics for a batch compression run. Counter
// fields are updated atomically and may be read with atomic.LoadInt64 while
// a run is in progress.
type Statistics struct {
	TotalFilesFound     int64
	TotalFilesProcessed int64
	FilesCompressed     int64
	FilesCopied         int64
	FilesSkipped        int64
	FilesWithErrors     int64
	DuplicatesSkipped   int64
	OriginalsDeleted    int64

	BytesIn  int64
	BytesOut int64

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Errors []FileError

	mutex sync.RWMutex
}

// FileError records a single per-file failure without aborting the run.
type FileError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// NewStatistics returns a Statistics with the start time set to now.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		Errors:    make([]FileError, 0),
	}
}

// IncrementFilesFound increases the count of discovered files by 1.
func (s *Statistics) IncrementFilesFound() {
	atomic.AddInt64(&s.TotalFilesFound, 1)
}

// IncrementFilesProcessed increases the count of processed files by 1.
func (s *Statistics) IncrementFilesProcessed() {
	atomic.AddInt64(&s.TotalFilesProcessed, 1)
}

// IncrementFilesCompressed increases the count of compressed files by 1.
func (s *Statistics) IncrementFilesCompressed() {
	atomic.AddInt64(&s.FilesCompressed, 1)
}

// IncrementFilesCopied increases the count of files copied verbatim by 1.
func (s *Statistics) IncrementFilesCopied() {
	atomic.AddInt64(&s.FilesCopied, 1)
}

// IncrementFilesSkipped increases the count of skipped files by 1.
func (s *Statistics) IncrementFilesSkipped() {
	atomic.AddInt64(&s.FilesSkipped, 1)
}

// IncrementFilesWithErrors increases the count of failed files by 1.
func (s *Statistics) IncrementFilesWithErrors() {
	atomic.AddInt64(&s.FilesWithErrors, 1)
}

// IncrementDuplicatesSkipped increases the count of duplicate files by 1.
func (s *Statistics) IncrementDuplicatesSkipped() {
	atomic.AddInt64(&s.DuplicatesSkipped, 1)
}

// IncrementOriginalsDeleted increases the count of deleted originals by 1.
func (s *Statistics) IncrementOriginalsDeleted() {
	atomic.AddInt64(&s.OriginalsDeleted, 1)
}

// AddBytes records the size of one source file and its output.
func (s *Statistics) AddBytes(in, out int64) {
	atomic.AddInt64(&s.BytesIn, in)
	atomic.AddInt64(&s.BytesOut, out)
}

// RecordError appends a per-file error and bumps the error counter.
func (s *Statistics) RecordError(filePath, operation string, err error) {
	s.IncrementFilesWithErrors()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Errors = append(s.Errors, FileError{
		FilePath:  filePath,
		Operation: operation,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// GetErrors returns a copy of the recorded per-file errors.
func (s *Statistics) GetErrors() []FileError {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	errs := make([]FileError, len(s.Errors))
	copy(errs, s.Errors)
	return errs
}

// Finalize sets the end time and computes the run duration.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// GetDuration returns the run duration recorded by Finalize, or zero while
// the run is still in progress.
func (s *Statistics) GetDuration() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Duration
}

// SavedPercentage returns how much smaller the outputs are than the inputs,
// in percent. Zero when nothing was processed.
func (s *Statistics) SavedPercentage() float64 {
	in := atomic.LoadInt64(&s.BytesIn)
	out := atomic.LoadInt64(&s.BytesOut)
	if in <= 0 {
		return 0
	}
	return float64(in-out) * 100 / float64(in)
}

// GetSummary returns a human-readable summary of the run.
func (s *Statistics) GetSummary() string {
	var b strings.Builder

	b.WriteString("Compression Summary\n")
	b.WriteString("===================\n")
	fmt.Fprintf(&b, "Files found:        %d\n", atomic.LoadInt64(&s.TotalFilesFound))
	fmt.Fprintf(&b, "Files processed:    %d\n", atomic.LoadInt64(&s.TotalFilesProcessed))
	fmt.Fprintf(&b, "Files compressed:   %d\n", atomic.LoadInt64(&s.FilesCompressed))
	fmt.Fprintf(&b, "Files copied as-is: %d\n", atomic.LoadInt64(&s.FilesCopied))
	fmt.Fprintf(&b, "Files skipped:      %d\n", atomic.LoadInt64(&s.FilesSkipped))
	fmt.Fprintf(&b, "Duplicates skipped: %d\n", atomic.LoadInt64(&s.DuplicatesSkipped))
	fmt.Fprintf(&b, "Originals deleted:  %d\n", atomic.LoadInt64(&s.OriginalsDeleted))
	fmt.Fprintf(&b, "Errors:             %d\n", atomic.LoadInt64(&s.FilesWithErrors))
	fmt.Fprintf(&b, "Bytes in:           %d\n", atomic.LoadInt64(&s.BytesIn))
	fmt.Fprintf(&b, "Bytes out:          %d\n", atomic.LoadInt64(&s.BytesOut))
	fmt.Fprintf(&b, "Space saved:        %.1f%%\n", s.SavedPercentage())

	if duration := s.GetDuration(); duration > 0 {
		fmt.Fprintf(&b, "Duration:           %s\n", duration.Round(time.Millisecond))
	}

	errs := s.GetErrors()
	if len(errs) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "  %s (%s): %s\n", e.FilePath, e.Operation, e.Error)
		}
	}

	return b.String()
}
