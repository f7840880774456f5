package folder

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"image-compressor-go/internal/config"
	"image-compressor-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourceDirectory = filepath.Join(t.TempDir(), "source")
	cfg.TargetDirectory = filepath.Join(t.TempDir(), "target")
	if err := os.MkdirAll(cfg.SourceDirectory, 0755); err != nil {
		t.Fatalf("create source dir: %v", err)
	}
	return cfg
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// noisePNG writes a PNG full of deterministic noise. Noise keeps the PNG
// large, so the JPEG output is reliably smaller.
func noisePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(12345)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(seed >> 24),
				G: uint8(seed >> 16),
				B: uint8(seed >> 8),
				A: 255,
			})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func runCompress(t *testing.T, cfg *config.Config) ([]Result, *statistics.Statistics) {
	t.Helper()
	stats := statistics.NewStatistics()
	fc, err := New(cfg, testLogger(), stats)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	results, err := fc.Compress(context.Background())
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	return results, stats
}

func TestCompress_Basic(t *testing.T) {
	cfg := testConfig(t)
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "a.png"), 200, 200)
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "sub", "b.png"), 100, 100)

	results, stats := runCompress(t, cfg)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, res := range results {
		if res.Action != "compressed" {
			t.Errorf("%s: action = %q (%s), want compressed", res.InputPath, res.Action, res.Message)
		}
	}

	out := filepath.Join(cfg.TargetDirectory, "a.jpg")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	dec, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output not a valid JPEG: %v", err)
	}
	// 200 * 0.8 = 160 on both axes with the default factor.
	if dec.Bounds().Dx() != 160 || dec.Bounds().Dy() != 160 {
		t.Errorf("output dimensions = %dx%d, want 160x160", dec.Bounds().Dx(), dec.Bounds().Dy())
	}

	if _, err := os.Stat(filepath.Join(cfg.TargetDirectory, "sub", "b.jpg")); err != nil {
		t.Errorf("nested output missing: %v", err)
	}

	if stats.FilesCompressed != 2 {
		t.Errorf("FilesCompressed = %d, want 2", stats.FilesCompressed)
	}
	if stats.BytesOut >= stats.BytesIn {
		t.Errorf("no space saved: in=%d out=%d", stats.BytesIn, stats.BytesOut)
	}
}

func TestCompress_CopyUnsupported(t *testing.T) {
	cfg := testConfig(t)
	garbage := []byte("definitely not a jpeg")
	if err := os.WriteFile(filepath.Join(cfg.SourceDirectory, "broken.jpg"), garbage, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	results, stats := runCompress(t, cfg)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Action != "copied" {
		t.Fatalf("action = %q, want copied", results[0].Action)
	}

	copied, err := os.ReadFile(filepath.Join(cfg.TargetDirectory, "broken.jpg"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if !bytes.Equal(copied, garbage) {
		t.Error("copied file content differs from source")
	}
	if stats.FilesCopied != 1 {
		t.Errorf("FilesCopied = %d, want 1", stats.FilesCopied)
	}
}

func TestCompress_UndecodableError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processing.CopyUnsupported = false
	if err := os.WriteFile(filepath.Join(cfg.SourceDirectory, "broken.png"), []byte("nope"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "ok.png"), 120, 120)

	results, stats := runCompress(t, cfg)
	var errored, compressed int
	for _, res := range results {
		switch res.Action {
		case "error":
			errored++
		case "compressed":
			compressed++
		}
	}
	// The broken file fails alone; the good one still compresses.
	if errored != 1 || compressed != 1 {
		t.Errorf("errored=%d compressed=%d, want 1 and 1", errored, compressed)
	}
	if stats.FilesWithErrors != 1 {
		t.Errorf("FilesWithErrors = %d, want 1", stats.FilesWithErrors)
	}
}

func TestCompress_DeleteOriginals(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processing.DeleteOriginals = true
	src := filepath.Join(cfg.SourceDirectory, "a.png")
	noisePNG(t, src, 150, 150)

	_, stats := runCompress(t, cfg)
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("original still exists after delete_originals run")
	}
	if stats.OriginalsDeleted != 1 {
		t.Errorf("OriginalsDeleted = %d, want 1", stats.OriginalsDeleted)
	}
}

func TestCompress_SkipDuplicates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processing.SkipDuplicates = true
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "a.png"), 100, 100)
	data, err := os.ReadFile(filepath.Join(cfg.SourceDirectory, "a.png"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.SourceDirectory, "b.png"), data, 0644); err != nil {
		t.Fatalf("write duplicate: %v", err)
	}

	results, stats := runCompress(t, cfg)
	var compressed, duplicates int
	for _, res := range results {
		switch res.Action {
		case "compressed":
			compressed++
		case "duplicate":
			duplicates++
		}
	}
	if compressed != 1 || duplicates != 1 {
		t.Errorf("compressed=%d duplicates=%d, want 1 and 1", compressed, duplicates)
	}
	if stats.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", stats.DuplicatesSkipped)
	}
}

func TestCompress_DryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processing.DryRun = true
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "a.png"), 100, 100)

	results, _ := runCompress(t, cfg)
	if len(results) != 1 || results[0].Action != "compressed" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if _, err := os.Stat(filepath.Join(cfg.TargetDirectory, "a.jpg")); !os.IsNotExist(err) {
		t.Error("dry run wrote an output file")
	}
}

func TestCompress_KeepOriginalWhenNotSmaller(t *testing.T) {
	cfg := testConfig(t)
	// A tiny solid-color PNG is smaller than any JPEG rendition of it.
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	src := filepath.Join(cfg.SourceDirectory, "tiny.png")
	if err := os.WriteFile(src, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	results, stats := runCompress(t, cfg)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Action != "original" {
		t.Fatalf("action = %q, want original", results[0].Action)
	}

	kept, err := os.ReadFile(filepath.Join(cfg.TargetDirectory, "tiny.png"))
	if err != nil {
		t.Fatalf("kept original missing: %v", err)
	}
	if !bytes.Equal(kept, buf.Bytes()) {
		t.Error("kept original differs from source")
	}
	if stats.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", stats.FilesSkipped)
	}
}

func TestCompress_ProgressCallback(t *testing.T) {
	cfg := testConfig(t)
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "a.png"), 80, 80)
	noisePNG(t, filepath.Join(cfg.SourceDirectory, "b.png"), 80, 60)

	stats := statistics.NewStatistics()
	fc, err := New(cfg, testLogger(), stats)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var calls int64
	fc.SetProgress(func(Result) {
		atomic.AddInt64(&calls, 1)
	})

	if _, err := fc.Compress(context.Background()); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("progress called %d times, want 2", calls)
	}
}

func TestNew_InvalidFactor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Factor.Quality = 0
	if _, err := New(cfg, testLogger(), statistics.NewStatistics()); err == nil {
		t.Fatal("invalid factor accepted")
	}
}
