package video

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Info describes the first video stream of a container.
type Info struct {
	Width     int
	Height    int
	Codec     string
	FrameRate float64
	// Frames is the container's declared frame count, 0 when unknown.
	Frames int
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
}

func probeArgs(path string) []string {
	return []string{"-v", "error", "-print_format", "json", "-show_streams", "-select_streams", "v:0", path}
}

// Probe runs ffprobe on path and returns the first video stream's geometry.
func (t *Tool) Probe(ctx context.Context, path string) (Info, error) {
	out, err := t.output(ctx, t.ffprobe(), probeArgs(path)...)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(raw []byte) (Info, error) {
	var p probeOutput
	if err := json.Unmarshal(raw, &p); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	for _, s := range p.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return Info{}, fmt.Errorf("video stream %d has no dimensions", s.Index)
		}
		info := Info{Width: s.Width, Height: s.Height, Codec: s.CodecName}
		info.FrameRate = parseRate(s.AvgFrameRate)
		if n, err := strconv.Atoi(s.NbFrames); err == nil {
			info.Frames = n
		}
		return info, nil
	}
	return Info{}, fmt.Errorf("no video stream found")
}

// parseRate parses ffprobe's "num/den" rates. Malformed or zero-denominator
// rates yield 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
