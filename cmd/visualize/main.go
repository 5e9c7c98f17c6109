// Command visualize renders one dataset sequence as a labeled 2x2 composite
// video of both cameras, the sonar and its close-range crop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/dataset"
	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/version"
	"github.com/banshee-data/subsea.dataset/internal/video"
	"github.com/banshee-data/subsea.dataset/internal/visualize"
)

var (
	datasetRoot  = flag.String("root", "", "Dataset root directory (required)")
	sequenceID   = flag.Int("sequence", config.DefaultSequenceID, "Sequence number to render")
	showPreview  = flag.Bool("preview", false, "Write <output>.preview.png about once per second of timeline")
	outputPath   = flag.String("output", "", "Output video path (default sequence_<N>.mp4)")
	analysisPath = flag.String("config", "", "Analysis parameters JSON (default built-in values)")
	metadataPath = flag.String("metadata", config.DefaultMetadataPath, "Metadata table, relative to the root unless absolute")
	ffmpegPath   = flag.String("ffmpeg", "ffmpeg", "ffmpeg executable")
	ffprobePath  = flag.String("ffprobe", "ffprobe", "ffprobe executable")
)

// outputFor returns the output path for a sequence when none was given.
func outputFor(output string, sequenceNo int) string {
	if output != "" {
		return output
	}
	return fmt.Sprintf("sequence_%d.mp4", sequenceNo)
}

func main() {
	flag.Parse()
	monitoring.Logf("visualize %s", version.String())

	cfg := config.Default()
	cfg.DatasetRoot = *datasetRoot
	cfg.SequenceID = *sequenceID
	cfg.ShowPreview = *showPreview
	cfg.MetadataPath = *metadataPath
	cfg.FFmpegPath = *ffmpegPath
	cfg.FFprobePath = *ffprobePath

	fsys := fsutil.OSFileSystem{}
	if err := cfg.Validate(fsys); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	analysis, err := config.LoadAnalysisConfigOrDefault(*analysisPath)
	if err != nil {
		log.Fatalf("load analysis config: %v", err)
	}
	meta, err := dataset.ReadMetadata(fsys, cfg.MetadataFile())
	if err != nil {
		log.Fatalf("read metadata: %v", err)
	}
	for _, fe := range meta.RowErrors {
		monitoring.Logf("metadata row skipped: %v", fe)
	}

	output := outputFor(*outputPath, cfg.SequenceID)
	if dir := filepath.Dir(output); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create output directory: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tool := &video.Tool{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath}
	r := &visualize.Renderer{
		FS:       fsys,
		Loader:   dataset.NewLoader(fsys, cfg.DatasetRoot, meta),
		Opener:   tool,
		Encoder:  tool,
		Analysis: analysis,
		Preview:  cfg.ShowPreview,
	}
	res, err := r.Render(ctx, cfg.SequenceID, output)
	if err != nil {
		log.Fatalf("render sequence %d: %v", cfg.SequenceID, err)
	}
	monitoring.Logf("wrote %d frames (%.2f fps) to %s", res.Frames, res.Timeline.FPS(), res.Output)
}
