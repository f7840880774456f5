// Package folder drives batch compression over a directory tree: it
// discovers supported image files, feeds them to a worker pool, and writes
// the compressed outputs to the target directory. A single file failing to
// decode or encode never aborts the run; the failure is recorded and the
// remaining files keep processing.
package folder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/decoder"
	"image-compressor-go/internal/statistics"

	"github.com/barasher/go-exiftool"
	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// softwareMark is written into the Software EXIF tag of compressed JPEG
// outputs so later runs can recognize and skip them.
const softwareMark = "image-compressor"

// Result describes the outcome of processing a single file.
type Result struct {
	InputPath       string    `json:"input_path"`
	OutputPath      string    `json:"output_path,omitempty"`
	OriginalSize    int64     `json:"original_size"`
	CompressedSize  int64     `json:"compressed_size"`
	PercentageSaved float64   `json:"percentage_saved"`
	Action          string    `json:"action"` // compressed, original, copied, skipped, duplicate, error
	Message         string    `json:"message,omitempty"`
	Success         bool      `json:"success"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Err             error     `json:"-"`
}

// ProgressFunc observes per-file results as they complete. It is called
// from worker goroutines and must be safe for concurrent use.
type ProgressFunc func(Result)

// FolderCompressor compresses every supported image under a source
// directory into a target directory.
type FolderCompressor struct {
	cfg    *config.Config
	log    *logrus.Logger
	stats  *statistics.Statistics
	factor compressor.Factor

	progress ProgressFunc

	hashMutex sync.Mutex
	seen      map[uint64]string
}

// New builds a FolderCompressor from the validated configuration.
func New(cfg *config.Config, log *logrus.Logger, stats *statistics.Statistics) (*FolderCompressor, error) {
	factor, err := compressor.NewFactor(cfg.Factor.Quality, cfg.Factor.SizeRatio)
	if err != nil {
		return nil, fmt.Errorf("invalid factor in config: %w", err)
	}
	return &FolderCompressor{
		cfg:    cfg,
		log:    log,
		stats:  stats,
		factor: factor,
		seen:   make(map[uint64]string),
	}, nil
}

// SetFactor overrides the factor loaded from configuration.
func (fc *FolderCompressor) SetFactor(factor compressor.Factor) {
	fc.factor = factor
}

// SetProgress installs a per-file progress observer.
func (fc *FolderCompressor) SetProgress(fn ProgressFunc) {
	fc.progress = fn
}

// Compress runs the batch: discovery, worker pool, per-file processing.
// The returned error covers setup failures only; per-file failures land in
// the statistics and the per-file results.
func (fc *FolderCompressor) Compress(ctx context.Context) ([]Result, error) {
	fc.log.WithFields(logrus.Fields{
		"source":  fc.cfg.SourceDirectory,
		"target":  fc.cfg.GetTargetDirectory(),
		"quality": fc.factor.Quality(),
		"ratio":   fc.factor.SizeRatio(),
	}).Info("Starting batch compression")

	files, err := fc.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	if len(files) == 0 {
		fc.log.Info("No supported image files found")
		return nil, nil
	}
	fc.log.Infof("Found %d files to process", len(files))

	if !fc.cfg.Processing.DryRun {
		if err := os.MkdirAll(fc.cfg.GetTargetDirectory(), 0755); err != nil {
			return nil, fmt.Errorf("create target dir: %w", err)
		}
	}

	numWorkers := fc.cfg.Performance.WorkerThreads

	type job struct {
		index int
		path  string
	}
	type indexed struct {
		index int
		res   Result
	}

	jobs := make(chan job, len(files))
	results := make(chan indexed, len(files))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res := fc.processFile(j.path)
				if fc.progress != nil {
					fc.progress(res)
				}
				results <- indexed{index: j.index, res: res}
			}
		}()
	}

	for i, path := range files {
		jobs <- job{index: i, path: path}
	}
	close(jobs)

	wg.Wait()
	close(results)

	out := make([]Result, len(files))
	for r := range results {
		out[r.index] = r.res
	}

	fc.stats.Finalize()
	return out, ctx.Err()
}

// discoverFiles walks the source directory collecting supported files.
func (fc *FolderCompressor) discoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(fc.cfg.SourceDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			fc.log.Warnf("Error accessing path %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if fc.cfg.IsSupportedExtension(filepath.Ext(d.Name())) {
			files = append(files, path)
			fc.stats.IncrementFilesFound()
		}
		return nil
	})
	return files, err
}

// processFile compresses a single file and records the outcome. Every
// failure path returns a Result instead of propagating, so sibling files
// keep going.
func (fc *FolderCompressor) processFile(inputPath string) Result {
	res := Result{
		InputPath: inputPath,
		StartedAt: time.Now(),
	}
	defer func() {
		res.FinishedAt = time.Now()
	}()

	fc.stats.IncrementFilesProcessed()

	info, err := os.Stat(inputPath)
	if err != nil {
		return fc.fail(res, "stat", err)
	}
	res.OriginalSize = info.Size()

	if fc.cfg.Processing.SkipDuplicates {
		dup, first, err := fc.isDuplicate(inputPath)
		if err != nil {
			fc.log.Warnf("Hashing %s failed: %v", inputPath, err)
		} else if dup {
			fc.stats.IncrementDuplicatesSkipped()
			res.Action = "duplicate"
			res.Message = fmt.Sprintf("Same content as %s", first)
			res.Success = true
			return res
		}
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	isJPEG := ext == ".jpg" || ext == ".jpeg"

	if fc.cfg.Processing.PreserveMetadata && isJPEG && fc.hasSoftwareMark(inputPath) {
		fc.stats.IncrementFilesSkipped()
		res.Action = "skipped"
		res.Message = "Already compressed in a previous run"
		res.Success = true
		return res
	}

	outPath, err := fc.outputPath(inputPath)
	if err != nil {
		return fc.fail(res, "resolve output", err)
	}
	res.OutputPath = outPath

	img, err := decoder.Decode(inputPath)
	if err != nil {
		if fc.cfg.Processing.CopyUnsupported {
			return fc.copyVerbatim(res, inputPath, err)
		}
		return fc.fail(res, "decode", err)
	}

	comp := compressor.New(img)
	comp.SetFactor(fc.factor)
	data, err := comp.CompressImage()
	if err != nil {
		return fc.fail(res, "encode", err)
	}

	// Keep the original when compression does not actually shrink it.
	threshold := fc.cfg.Processing.SizeThreshold
	if float64(len(data)) >= float64(res.OriginalSize)*threshold {
		return fc.keepOriginal(res, inputPath)
	}

	res.CompressedSize = int64(len(data))
	res.PercentageSaved = float64(res.OriginalSize-res.CompressedSize) * 100 / float64(res.OriginalSize)

	if fc.cfg.Processing.DryRun {
		res.Action = "compressed"
		res.Message = "Dry run, nothing written"
		res.Success = true
		fc.stats.IncrementFilesCompressed()
		fc.stats.AddBytes(res.OriginalSize, res.CompressedSize)
		return res
	}

	if err := writeFileAtomic(outPath, data); err != nil {
		return fc.fail(res, "write", err)
	}

	if fc.cfg.Processing.PreserveMetadata && isJPEG {
		if err := carryOverMetadata(inputPath, outPath); err != nil {
			fc.log.Warnf("Metadata not carried over for %s: %v", outPath, err)
			res.Message = fmt.Sprintf("warning: metadata not carried over: %v", err)
		}
	}

	if fc.cfg.Processing.DeleteOriginals && outPath != inputPath {
		if err := os.Remove(inputPath); err != nil {
			fc.log.Warnf("Could not delete original %s: %v", inputPath, err)
		} else {
			fc.stats.IncrementOriginalsDeleted()
		}
	}

	fc.stats.IncrementFilesCompressed()
	fc.stats.AddBytes(res.OriginalSize, res.CompressedSize)

	res.Action = "compressed"
	res.Message = "Image compressed"
	res.Success = true
	return res
}

// outputPath mirrors the file's position under the source tree into the
// target directory, rewriting the extension to .jpg.
func (fc *FolderCompressor) outputPath(inputPath string) (string, error) {
	rel, err := filepath.Rel(fc.cfg.SourceDirectory, inputPath)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(rel)
	rel = strings.TrimSuffix(rel, ext) + ".jpg"
	return filepath.Join(fc.cfg.GetTargetDirectory(), rel), nil
}

// isDuplicate hashes the file content and reports whether the same hash
// was already processed in this run.
func (fc *FolderCompressor) isDuplicate(path string) (bool, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, "", err
	}
	sum := h.Sum64()

	fc.hashMutex.Lock()
	defer fc.hashMutex.Unlock()
	if first, ok := fc.seen[sum]; ok {
		return true, first, nil
	}
	fc.seen[sum] = path
	return false, "", nil
}

// hasSoftwareMark reports whether the file's Software tag carries our mark.
func (fc *FolderCompressor) hasSoftwareMark(path string) bool {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return false
	}
	defer et.Close()

	metas := et.ExtractMetadata(path)
	if len(metas) == 0 || metas[0].Err != nil {
		return false
	}
	if sw, ok := metas[0].Fields["Software"].(string); ok {
		return strings.Contains(sw, softwareMark)
	}
	return false
}

// copyVerbatim copies an un-decodable file to the target unchanged,
// keeping its original extension.
func (fc *FolderCompressor) copyVerbatim(res Result, inputPath string, decodeErr error) Result {
	rel, err := filepath.Rel(fc.cfg.SourceDirectory, inputPath)
	if err != nil {
		return fc.fail(res, "resolve output", err)
	}
	outPath := filepath.Join(fc.cfg.GetTargetDirectory(), rel)
	res.OutputPath = outPath

	if !fc.cfg.Processing.DryRun && outPath != inputPath {
		if err := copyFile(inputPath, outPath); err != nil {
			return fc.fail(res, "copy", err)
		}
	}

	fc.stats.IncrementFilesCopied()
	res.CompressedSize = res.OriginalSize
	res.Action = "copied"
	res.Message = fmt.Sprintf("Not decodable (%v), copied verbatim", decodeErr)
	res.Success = true
	return res
}

// keepOriginal stores the source file unchanged because the compressed
// version would not be smaller.
func (fc *FolderCompressor) keepOriginal(res Result, inputPath string) Result {
	rel, err := filepath.Rel(fc.cfg.SourceDirectory, inputPath)
	if err != nil {
		return fc.fail(res, "resolve output", err)
	}
	outPath := filepath.Join(fc.cfg.GetTargetDirectory(), rel)
	res.OutputPath = outPath

	if !fc.cfg.Processing.DryRun && outPath != inputPath {
		if err := copyFile(inputPath, outPath); err != nil {
			return fc.fail(res, "copy original", err)
		}
	}

	fc.stats.IncrementFilesSkipped()
	fc.stats.AddBytes(res.OriginalSize, res.OriginalSize)
	res.CompressedSize = res.OriginalSize
	res.Action = "original"
	res.Message = "Compressed output not smaller, kept original"
	res.Success = true
	return res
}

// fail records the error in the statistics and finishes the result.
func (fc *FolderCompressor) fail(res Result, operation string, err error) Result {
	fc.stats.RecordError(res.InputPath, operation, err)
	fc.log.WithFields(logrus.Fields{
		"file":      res.InputPath,
		"operation": operation,
	}).Errorf("Processing failed: %v", err)

	res.Action = "error"
	res.Message = fmt.Sprintf("%s: %v", operation, err)
	res.Err = err
	return res
}

// writeFileAtomic writes data to path through a temp file and rename so a
// crashed run never leaves a half-written output.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// copyFile copies src to dst, creating parent directories as needed.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// carryOverMetadata copies the EXIF block from the source JPEG onto the
// compressed output and stamps the Software tag with our mark.
func carryOverMetadata(src, dst string) error {
	if _, err := exec.LookPath("exiftool"); err != nil {
		return fmt.Errorf("exiftool not installed: %w", err)
	}
	if err := exec.Command("exiftool", "-TagsFromFile", src, "-overwrite_original", dst).Run(); err != nil {
		return fmt.Errorf("exiftool copy failed: %w", err)
	}
	if err := exec.Command("exiftool", "-overwrite_original", "-Software="+softwareMark, dst).Run(); err != nil {
		return fmt.Errorf("exiftool set Software failed: %w", err)
	}
	return nil
}
