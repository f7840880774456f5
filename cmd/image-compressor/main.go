package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/decoder"
	"image-compressor-go/internal/folder"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/statistics"
	"image-compressor-go/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile         string
	sourceDir       string
	targetDir       string
	quality         float64
	sizeRatio       float64
	workers         int
	deleteOriginals bool
	dryRun          bool
	verbose         bool
	quiet           bool
	outFile         string
	port            int
)

// rootCmd compresses every supported image under a directory.
var rootCmd = &cobra.Command{
	Use:   "image-compressor [directory]",
	Short: "Resize and re-encode images as JPEG in bulk",
	Long: `image-compressor walks a directory, shrinks every supported image by a
configurable size ratio, and re-encodes it as JPEG at a configurable
quality. Files that cannot be decoded are copied to the target verbatim,
and a single bad file never stops the batch.

Supported inputs: JPEG, PNG, GIF, BMP, TIFF, WebP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(args)
	},
}

// fileCmd compresses a single image file.
var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Compress a single image file",
	Long: `Compresses one image and writes the JPEG result next to the source
(or to --out). Useful for trying out quality/ratio settings before a
batch run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(args[0])
	},
}

// serveCmd starts the web monitoring interface.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Starts a local web server with a small interface for launching
compression runs and watching per-file progress in real time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Float64Var(&quality, "quality", 0, "JPEG quality in (0, 100] (default from config: 80)")
	rootCmd.PersistentFlags().Float64Var(&sizeRatio, "ratio", 0, "size ratio in (0, 1] (default from config: 0.8)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&sourceDir, "source", "", "source directory containing images")
	rootCmd.Flags().StringVar(&targetDir, "target", "", "target directory for compressed output (default: in place)")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers (default from config: 4)")
	rootCmd.Flags().BoolVar(&deleteOriginals, "delete-originals", false, "delete source files after successful compression")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate the run without writing or deleting anything")

	fileCmd.Flags().StringVar(&outFile, "out", "", "output path (default: source path with .jpg extension)")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the web server on")

	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads the configuration file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compressor")
		viper.AddConfigPath("/etc/image-compressor")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runCompress executes the batch compression over a directory.
func runCompress(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()

	fc, err := folder.New(cfg, log, stats)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := fc.Compress(ctx); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
	}
	return nil
}

// runFile compresses a single image file.
func runFile(path string) error {
	cfg, err := loadConfigNoSource()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	img, err := decoder.Decode(path)
	if err != nil {
		return fmt.Errorf("cannot decode %s: %w", path, err)
	}

	factor, err := compressor.NewFactor(cfg.Factor.Quality, cfg.Factor.SizeRatio)
	if err != nil {
		return err
	}

	comp := compressor.New(img)
	comp.SetFactor(factor)

	data, err := comp.CompressImage()
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	out := outFile
	if out == "" {
		out = replaceExt(path, ".jpg")
		if out == path {
			out = replaceExt(path, ".compressed.jpg")
		}
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if !quiet {
		fmt.Printf("%s -> %s (%d bytes)\n", path, out, len(data))
	}
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := loadConfigNoSource()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("Web interface running at http://localhost:%d (Ctrl+C to stop)\n", port)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// loadConfig loads configuration and applies CLI overrides for the batch
// command.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := loadConfigNoSource()
	if err != nil {
		return nil, err
	}

	if sourceDir != "" {
		cfg.SourceDirectory = sourceDir
	}
	if cfg.SourceDirectory == "" && len(args) > 0 {
		cfg.SourceDirectory = args[0]
	}
	if cfg.SourceDirectory == "" {
		cfg.SourceDirectory = "."
	}
	if targetDir != "" {
		cfg.TargetDirectory = targetDir
	}
	if workers > 0 {
		cfg.Performance.WorkerThreads = workers
	}
	if deleteOriginals {
		cfg.Processing.DeleteOriginals = true
	}
	if dryRun {
		cfg.Processing.DryRun = true
	}

	if !dirExists(cfg.SourceDirectory) {
		return nil, fmt.Errorf("source directory does not exist: %s", cfg.SourceDirectory)
	}
	return cfg, nil
}

// loadConfigNoSource loads configuration plus the factor overrides shared
// by every command.
func loadConfigNoSource() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if quality > 0 {
		cfg.Factor.Quality = quality
	}
	if sizeRatio > 0 {
		cfg.Factor.SizeRatio = sizeRatio
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	opts := logger.Options{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
	}

	if verbose {
		opts.Level = "debug"
	}
	if quiet {
		opts.Level = "error"
	}

	log, err := logger.New(opts)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// replaceExt swaps the file extension of path for newExt.
func replaceExt(path, newExt string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + newExt
}

// dirExists returns true if the given path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
