package statistics

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestCounters_Concurrent(t *testing.T) {
	s := NewStatistics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncrementFilesFound()
			s.IncrementFilesProcessed()
			s.IncrementFilesCompressed()
			s.AddBytes(1000, 400)
		}()
	}
	wg.Wait()

	if s.TotalFilesFound != 50 {
		t.Errorf("TotalFilesFound = %d, want 50", s.TotalFilesFound)
	}
	if s.FilesCompressed != 50 {
		t.Errorf("FilesCompressed = %d, want 50", s.FilesCompressed)
	}
	if s.BytesIn != 50000 || s.BytesOut != 20000 {
		t.Errorf("bytes = %d/%d, want 50000/20000", s.BytesIn, s.BytesOut)
	}
}

func TestSavedPercentage(t *testing.T) {
	s := NewStatistics()
	if got := s.SavedPercentage(); got != 0 {
		t.Errorf("empty run SavedPercentage = %g, want 0", got)
	}

	s.AddBytes(1000, 250)
	if got := s.SavedPercentage(); got != 75 {
		t.Errorf("SavedPercentage = %g, want 75", got)
	}
}

func TestRecordError(t *testing.T) {
	s := NewStatistics()
	s.RecordError("/tmp/broken.jpg", "decode", errors.New("bad header"))

	if s.FilesWithErrors != 1 {
		t.Errorf("FilesWithErrors = %d, want 1", s.FilesWithErrors)
	}
	errs := s.GetErrors()
	if len(errs) != 1 {
		t.Fatalf("GetErrors() returned %d entries, want 1", len(errs))
	}
	if errs[0].FilePath != "/tmp/broken.jpg" || errs[0].Operation != "decode" {
		t.Errorf("unexpected error entry: %+v", errs[0])
	}
}

func TestFinalize_ConcurrentWithSummary(t *testing.T) {
	s := NewStatistics()
	s.AddBytes(100, 50)

	// Finalize and GetSummary may overlap when the web status endpoint is
	// polled while a run ends; both must be safe under the race detector.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Finalize()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = s.GetSummary()
		}
	}()
	wg.Wait()

	if s.GetDuration() <= 0 {
		t.Error("duration not recorded after Finalize")
	}
}

func TestGetSummary(t *testing.T) {
	s := NewStatistics()
	s.IncrementFilesFound()
	s.IncrementFilesCompressed()
	s.AddBytes(2000, 1000)
	s.Finalize()

	summary := s.GetSummary()
	for _, want := range []string{"Files found:", "Space saved:", "50.0%", "Duration:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
