// Command integrity scans every frame of every sequence for almost-black,
// extremely bright and very noisy frames. The scan is checkpointed after each
// sequence and resumes from the checkpoint when restarted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/dataset"
	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/quality"
	"github.com/banshee-data/subsea.dataset/internal/report"
	"github.com/banshee-data/subsea.dataset/internal/scan"
	"github.com/banshee-data/subsea.dataset/internal/timeutil"
	"github.com/banshee-data/subsea.dataset/internal/version"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

var (
	datasetRoot      = flag.String("root", "", "Dataset root directory (required)")
	statePath        = flag.String("state", "integrity_state.json", "Scan checkpoint file")
	warningLogPath   = flag.String("log", "integrity_warnings.log", "Append-only warning log")
	anomalyDir       = flag.String("anomalies", "anomalies", "Directory for flagged frame dumps (empty disables dumps)")
	reportDir        = flag.String("report", "", "Write trend plots and an HTML report to this directory")
	sequenceRange    = flag.String("sequences", "", "Only scan sequences in this range, e.g. 3-10, 5- or 7")
	resetState       = flag.Bool("reset", false, "Ignore any existing checkpoint and start from the first sequence")
	analysisPath     = flag.String("config", "", "Analysis parameters JSON (default built-in values)")
	metadataPath     = flag.String("metadata", config.DefaultMetadataPath, "Metadata table, relative to the root unless absolute")
	ffmpegPath       = flag.String("ffmpeg", "ffmpeg", "ffmpeg executable")
	ffprobePath      = flag.String("ffprobe", "ffprobe", "ffprobe executable")
	progressInterval = flag.Duration("progress-interval", 30*time.Second, "Minimum time between progress lines")
)

// parseRange parses "a-b", "a-", "-b" or "a" into inclusive bounds, where
// zero means unbounded.
func parseRange(s string) (first, last int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	parse := func(v string) (int, error) {
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid sequence number %q", v)
		}
		return n, nil
	}
	if first, err = parse(lo); err != nil {
		return 0, 0, err
	}
	if !isRange {
		return first, first, nil
	}
	if last, err = parse(hi); err != nil {
		return 0, 0, err
	}
	if first > 0 && last > 0 && first > last {
		return 0, 0, fmt.Errorf("empty sequence range %q", s)
	}
	return first, last, nil
}

func loadState(fsys fsutil.FileSystem, path string, reset bool) (*scan.State, error) {
	if reset {
		monitoring.Logf("discarding checkpoint %s", path)
		return scan.NewState(), nil
	}
	return scan.LoadState(fsys, path)
}

func writeReport(fsys fsutil.FileSystem, dir string, st *scan.State) error {
	plots, err := report.WritePlots(fsys, dir, st)
	if err != nil {
		return err
	}
	var html strings.Builder
	if err := report.RenderHTML(&html, st); err != nil {
		return err
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	index := filepath.Join(dir, "index.html")
	if err := fsys.WriteFile(index, []byte(html.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", index, err)
	}
	monitoring.Logf("report: %s and %d plots", index, len(plots))
	return nil
}

func main() {
	flag.Parse()
	monitoring.Logf("integrity %s", version.String())

	cfg := config.Default()
	cfg.DatasetRoot = *datasetRoot
	cfg.MetadataPath = *metadataPath
	cfg.FFmpegPath = *ffmpegPath
	cfg.FFprobePath = *ffprobePath

	fsys := fsutil.OSFileSystem{}
	if err := cfg.Validate(fsys); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	first, last, err := parseRange(*sequenceRange)
	if err != nil {
		log.Fatalf("invalid -sequences: %v", err)
	}
	analysis, err := config.LoadAnalysisConfigOrDefault(*analysisPath)
	if err != nil {
		log.Fatalf("load analysis config: %v", err)
	}
	meta, err := dataset.ReadMetadata(fsys, cfg.MetadataFile())
	if err != nil {
		log.Fatalf("read metadata: %v", err)
	}
	st, err := loadState(fsys, *statePath, *resetState)
	if err != nil {
		log.Fatalf("load state: %v", err)
	}

	logFile, err := fsys.Append(*warningLogPath)
	if err != nil {
		log.Fatalf("open warning log: %v", err)
	}
	defer logFile.Close()
	warnings := monitoring.NewWarningLog(logFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner, err := scan.NewScanner(scan.ScannerConfig{
		Loader:   dataset.NewLoader(fsys, cfg.DatasetRoot, meta),
		Opener:   &video.Tool{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath},
		Analysis: analysis,
		Warnings: warnings,
		Sink:     quality.NewAnomalySink(fsys, *anomalyDir, warnings),
		Clock:    timeutil.RealClock{},
		State:    st,
		Checkpoint: func(st *scan.State) error {
			return scan.SaveState(fsys, *statePath, st)
		},
		First: first,
		Last:  last,
	})
	if err != nil {
		log.Fatalf("create scanner: %v", err)
	}

	runErr := scanner.Run(ctx)
	if scanner.Progress() != nil {
		scanner.Progress().SetInterval(0)
		scanner.Progress().MaybeReport()
	}
	sum := scanner.Summary()
	monitoring.Logf("scanned %d sequences, %d frames: %d warnings, %d anomaly dumps (see %s)",
		sum.Sequences, sum.Frames, sum.Warnings, sum.Anomalies, *warningLogPath)

	if *reportDir != "" {
		if err := writeReport(fsys, *reportDir, st); err != nil {
			monitoring.Logf("report failed: %v", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			monitoring.Logf("interrupted; resume from %s after sequence %d", *statePath, st.LastSequence)
			return
		}
		_ = logFile.Close()
		log.Fatalf("scan failed: %v", runErr)
	}
}
