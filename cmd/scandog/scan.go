package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scandog/scandog/internal/cache"
	"github.com/scandog/scandog/internal/config"
	"github.com/scandog/scandog/internal/hashing"
	"github.com/scandog/scandog/internal/interrupt"
	"github.com/scandog/scandog/internal/logger"
	"github.com/scandog/scandog/internal/output"
	"github.com/scandog/scandog/internal/pipeline"
	"github.com/scandog/scandog/internal/processor"
	"github.com/scandog/scandog/internal/traverse"
)

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	outputFile      string
	format          string
	maxSizeStr      string
	includeBinary   bool
	excludeFolders  []string
	excludeFiles    []string
	excludePatterns []string
	followSymlinks  bool
	imageExts       []string
	workers         int
	encoding        string
	hashAlgorithm   string
	cacheFile       string
	noCache         bool
	cachePoolSize   int
	includeSummary  bool
	stream          bool
	noProgress      bool
	verbose         bool
	logFile         string
	configFile      string
}

// newScanCmd creates the scan subcommand.
func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		format:        "json",
		maxSizeStr:    "50MiB",
		hashAlgorithm: string(hashing.Default),
		cachePoolSize: cache.DefaultPoolSize,
	}

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory tree and emit its inventory",
		Long: `Walks a directory tree, classifies every file as text or binary,
reads bounded content and emits a nested document mirroring the
directory structure.

Content fingerprints are cached in a SQLite database under the scanned
root, so unchanged files are served from the cache on repeat runs.
Press Ctrl-C once for a graceful stop (partial results are written);
twice to abandon in-flight work.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runScan(cmd, root, opts)
		},
	}

	// Bind flags to options
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format,
		"Output format ("+strings.Join(output.Formats(), ", ")+")")
	cmd.Flags().StringVarP(&opts.maxSizeStr, "max-size", "m", opts.maxSizeStr, "Maximum file size to read (e.g., 100K, 1MiB, 10M)")
	cmd.Flags().BoolVar(&opts.includeBinary, "include-binary", false, "Include binary and image file content (base64)")
	cmd.Flags().StringSliceVar(&opts.excludeFolders, "exclude-folder", nil, "Additional folder names to prune")
	cmd.Flags().StringSliceVar(&opts.excludeFiles, "exclude-file", nil, "Additional file names to skip")
	cmd.Flags().StringSliceVarP(&opts.excludePatterns, "exclude-pattern", "e", nil,
		"Glob patterns to exclude (prefix with regex: for regular expressions)")
	cmd.Flags().BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Follow symbolic links (cycles are detected and skipped)")
	cmd.Flags().StringSliceVar(&opts.imageExts, "image-extension", nil, "Additional extensions to treat as images")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of parallel workers (0 = 2x CPU count)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "Force text encoding instead of detecting it")
	cmd.Flags().StringVar(&opts.hashAlgorithm, "hash-algorithm", opts.hashAlgorithm, "Fingerprint algorithm (md5, sha1, sha256, sha512, xxh64, none)")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to the fingerprint cache (default: <root>/"+config.DefaultCacheFileName+")")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Disable the fingerprint cache")
	cmd.Flags().IntVar(&opts.cachePoolSize, "cache-pool-size", opts.cachePoolSize, "Cache connection pool size")
	cmd.Flags().BoolVarP(&opts.includeSummary, "include-summary", "s", false, "Include the run summary in the output")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Stream results as NDJSON instead of materializing the tree")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Mirror log output to a file")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML or JSON config file")

	return cmd
}

// scanSettings is the merged run configuration: defaults, then config
// file values, then explicitly-set CLI flags, in increasing precedence.
type scanSettings struct {
	maxSize         int64
	workers         int
	encoding        string
	algorithm       hashing.Algorithm
	cachePoolSize   int
	excludedFolders map[string]struct{}
	excludedFiles   map[string]struct{}
	excludePatterns []string
	imageExts       map[string]struct{}
}

func mergeSettings(cmd *cobra.Command, opts *scanOptions, file *config.File) (*scanSettings, error) {
	s := &scanSettings{
		maxSize:         config.DefaultMaxFileSize,
		workers:         opts.workers,
		encoding:        file.Encoding,
		cachePoolSize:   opts.cachePoolSize,
		excludedFolders: config.DefaultExcludedFolders(),
		excludedFiles:   config.DefaultExcludedFiles(),
		imageExts:       config.DefaultImageExtensions(),
	}

	if file.MaxSize > 0 {
		s.maxSize = file.MaxSize
	}
	if cmd.Flags().Changed("max-size") {
		maxSize, err := parseSize(opts.maxSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --max-size: %w", err)
		}
		s.maxSize = maxSize
	}

	if file.Workers > 0 && !cmd.Flags().Changed("workers") {
		s.workers = file.Workers
	}
	if file.CachePoolSize > 0 && !cmd.Flags().Changed("cache-pool-size") {
		s.cachePoolSize = file.CachePoolSize
	}
	if cmd.Flags().Changed("encoding") || opts.encoding != "" {
		s.encoding = opts.encoding
	}

	algName := opts.hashAlgorithm
	if file.HashAlgorithm != "" && !cmd.Flags().Changed("hash-algorithm") {
		algName = file.HashAlgorithm
	}
	algorithm, err := hashing.Parse(algName)
	if err != nil {
		return nil, err
	}
	s.algorithm = algorithm

	config.Union(s.excludedFolders, file.ExcludeFolders)
	config.Union(s.excludedFolders, opts.excludeFolders)
	config.Union(s.excludedFiles, file.ExcludeFiles)
	config.Union(s.excludedFiles, opts.excludeFiles)
	config.UnionExts(s.imageExts, file.ImageExtensions)
	config.UnionExts(s.imageExts, opts.imageExts)
	s.excludePatterns = append(s.excludePatterns, file.ExcludePatterns...)
	s.excludePatterns = append(s.excludePatterns, opts.excludePatterns...)

	if err := validateGlobPatterns(s.excludePatterns); err != nil {
		return nil, fmt.Errorf("invalid --exclude-pattern: %w", err)
	}

	return s, nil
}

// runScan executes the scan pipeline: traverse, sweep, process, serialize.
func runScan(cmd *cobra.Command, root string, opts *scanOptions) error {
	if err := logger.Setup(opts.verbose, opts.logFile); err != nil {
		return err
	}
	defer logger.Close()

	fileCfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	settings, err := mergeSettings(cmd, opts, fileCfg)
	if err != nil {
		return err
	}

	format := strings.ToLower(opts.format)
	if opts.stream {
		format = "ndjson"
	}
	serializer, err := output.New(format)
	if err != nil {
		return err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	intr := &interrupt.Flag{}
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if intr.Trigger() {
				logger.Warnf("interrupt received, finishing in-flight work (press again to abandon)")
			} else {
				logger.Warnf("second interrupt, abandoning in-flight work")
			}
		}
	}()

	var store *cache.Store
	if !opts.noCache && settings.algorithm.Enabled() {
		cachePath := opts.cacheFile
		if cachePath == "" {
			cachePath = filepath.Join(root, config.DefaultCacheFileName)
		}
		store, err = cache.Open(cachePath, settings.cachePoolSize)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	walk, err := traverse.Collect(root, traverse.Options{
		ExcludedFolders: settings.excludedFolders,
		ExcludedFiles:   settings.excludedFiles,
		ExcludePatterns: settings.excludePatterns,
		FollowSymlinks:  opts.followSymlinks,
	}, intr)
	if err != nil {
		return err
	}
	logger.Infof("traversal found %d candidate files (%d excluded)", walk.Included, walk.Excluded)

	if store != nil && !intr.Stopped() {
		current := make(map[string]struct{}, len(walk.Paths))
		for _, p := range walk.Paths {
			current[cache.Canonical(p)] = struct{}{}
		}
		if _, err := store.Sweep(current); err != nil {
			logger.Warnf("cache sweep failed: %v", err)
		}
	}

	proc := &processor.Processor{
		Cache:           store,
		MaxSize:         settings.maxSize,
		IncludeBinary:   opts.includeBinary,
		ImageExtensions: settings.imageExts,
		Encoding:        settings.encoding,
		Algorithm:       settings.algorithm,
	}

	summaryAlg := ""
	if settings.algorithm.Enabled() {
		summaryAlg = string(settings.algorithm)
	}
	showProgress := !opts.noProgress && !opts.verbose && !opts.stream
	orch := pipeline.New(proc, settings.workers, summaryAlg, showProgress)
	counts := pipeline.Counts{Included: walk.Included, Excluded: walk.Excluded}

	w, closeOut, err := openOutput(opts.outputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	if opts.stream {
		if err := output.WriteStream(w, orch.Stream(root, walk.Paths, counts, intr)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else {
		tree, summary := orch.Run(root, walk.Paths, counts, intr)
		if !opts.includeSummary {
			summary = nil
		}
		if err := serializer.Write(w, tree, summary); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if intr.Stopped() {
		return errors.New("scan interrupted, partial results written")
	}
	return nil
}

// openOutput returns the destination writer and its cleanup. Stdout is
// never closed.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
