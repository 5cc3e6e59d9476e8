package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

const (
	spliceSampleRate = 48000
	splicePixFmt     = "yuv420p"
)

// ErrInsertOutOfRange means the split point is not strictly inside the original.
var ErrInsertOutOfRange = errors.New("insert point outside video")

// SpliceInput names the files for one splice.
type SpliceInput struct {
	OriginalPath string
	Clip1Path    string
	Clip2Path    string
	InsertAtMs   int64
	OutputPath   string
}

// SplicePlan is a fully probed splice, ready to be turned into ffmpeg arguments.
type SplicePlan struct {
	SpliceInput
	Target        VideoProps
	DurationSec   float64
	OriginalAudio bool
	Clip1Audio    bool
	Clip2Audio    bool
}

// SplitSec is the split point in seconds.
func (p SplicePlan) SplitSec() float64 {
	return float64(p.InsertAtMs) / 1000
}

// ExpectedDurationMs is partA + clip1 + clip2 + partB.
func (p SplicePlan) ExpectedDurationMs() int64 {
	partA := p.InsertAtMs
	partB := int64(math.Round(p.DurationSec*1000)) - p.InsertAtMs
	return partA + 2*types.ClipDurationMs + partB
}

// Splice probes the inputs and concatenates [partA, clip1, clip2, partB] into OutputPath.
func (f *FFmpeg) Splice(ctx context.Context, in SpliceInput) error {
	plan, err := f.PlanSplice(ctx, in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(in.OutputPath), 0755); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}

	f.log.Info("splicing video",
		"original", in.OriginalPath,
		"insert_at_ms", in.InsertAtMs,
		"target", fmt.Sprintf("%dx%d@%.3f", plan.Target.Width, plan.Target.Height, plan.Target.FPS),
		"expected_ms", plan.ExpectedDurationMs(),
	)

	if _, err := f.runner.Run(ctx, f.ffmpegPath, BuildSpliceArgs(plan)...); err != nil {
		return fmt.Errorf("ffmpeg splice failed: %w", err)
	}
	return nil
}

// PlanSplice probes the original for the canonical geometry and each input for audio.
func (f *FFmpeg) PlanSplice(ctx context.Context, in SpliceInput) (SplicePlan, error) {
	target, err := f.ProbeVideo(ctx, in.OriginalPath)
	if err != nil {
		return SplicePlan{}, err
	}
	duration, err := f.ProbeDuration(ctx, in.OriginalPath)
	if err != nil {
		return SplicePlan{}, err
	}

	split := float64(in.InsertAtMs) / 1000
	if in.InsertAtMs <= 0 || split >= duration {
		return SplicePlan{}, fmt.Errorf("%w: %dms not in (0, %.0fms)", ErrInsertOutOfRange, in.InsertAtMs, duration*1000)
	}

	return SplicePlan{
		SpliceInput:   in,
		Target:        target,
		DurationSec:   duration,
		OriginalAudio: f.HasAudio(ctx, in.OriginalPath),
		Clip1Audio:    f.HasAudio(ctx, in.Clip1Path),
		Clip2Audio:    f.HasAudio(ctx, in.Clip2Path),
	}, nil
}

// BuildSpliceArgs renders the ffmpeg command line for a plan.
func BuildSpliceArgs(p SplicePlan) []string {
	split := formatSeconds(p.SplitSec())
	clip := formatSeconds(float64(types.ClipDurationMs) / 1000)
	rest := formatSeconds(p.DurationSec - p.SplitSec())
	vnorm := videoNormalizer(p.Target)
	anorm := audioNormalizer()

	var graph []string

	// video
	graph = append(graph,
		"[0:v]split=2[srcva][srcvb]",
		fmt.Sprintf("[srcva]trim=start=0:end=%s,%s[v0]", split, vnorm),
		fmt.Sprintf("[1:v]trim=duration=%s,%s[v1]", clip, vnorm),
		fmt.Sprintf("[2:v]trim=duration=%s,%s[v2]", clip, vnorm),
		fmt.Sprintf("[srcvb]trim=start=%s,%s[v3]", split, vnorm),
	)

	// audio
	if p.OriginalAudio {
		graph = append(graph,
			"[0:a]asplit=2[srcaa][srcab]",
			fmt.Sprintf("[srcaa]atrim=start=0:end=%s,%s[a0]", split, anorm),
			fmt.Sprintf("[srcab]atrim=start=%s,%s[a3]", split, anorm),
		)
	} else {
		graph = append(graph,
			silence(split, "a0"),
			silence(rest, "a3"),
		)
	}
	for i, has := range []bool{p.Clip1Audio, p.Clip2Audio} {
		label := fmt.Sprintf("a%d", i+1)
		if has {
			graph = append(graph, fmt.Sprintf("[%d:a]atrim=duration=%s,%s[%s]", i+1, clip, anorm, label))
		} else {
			graph = append(graph, silence(clip, label))
		}
	}

	graph = append(graph, "[v0][a0][v1][a1][v2][a2][v3][a3]concat=n=4:v=1:a=1[outv][outa]")

	return []string{
		"-y",
		"-i", p.OriginalPath,
		"-i", p.Clip1Path,
		"-i", p.Clip2Path,
		"-filter_complex", strings.Join(graph, ";"),
		"-map", "[outv]",
		"-map", "[outa]",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		p.OutputPath,
	}
}

func videoNormalizer(t VideoProps) string {
	return fmt.Sprintf(
		"setpts=PTS-STARTPTS,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%s,format=%s,setpts=PTS-STARTPTS",
		t.Width, t.Height, t.Width, t.Height,
		strconv.FormatFloat(t.FPS, 'f', -1, 64),
		splicePixFmt,
	)
}

func audioNormalizer() string {
	return fmt.Sprintf("aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo,asetpts=PTS-STARTPTS", spliceSampleRate)
}

func silence(duration, label string) string {
	return fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d,atrim=duration=%s,asetpts=PTS-STARTPTS[%s]",
		spliceSampleRate, duration, label)
}
