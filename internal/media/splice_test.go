package media

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func samplePlan() SplicePlan {
	return SplicePlan{
		SpliceInput: SpliceInput{
			OriginalPath: "orig.mp4",
			Clip1Path:    "clip1.mp4",
			Clip2Path:    "clip2.mp4",
			InsertAtMs:   20000,
			OutputPath:   "out.mp4",
		},
		Target:        VideoProps{Width: 1280, Height: 720, FPS: 30},
		DurationSec:   60,
		OriginalAudio: true,
	}
}

func TestExpectedDuration(t *testing.T) {
	p := samplePlan()
	if got := p.ExpectedDurationMs(); got != 20000+8000+8000+40000 {
		t.Errorf("got %d", got)
	}
}

func TestBuildSpliceArgs(t *testing.T) {
	args := BuildSpliceArgs(samplePlan())
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"trim=start=0:end=20.000",
		"trim=start=20.000",
		"trim=duration=8.000",
		"scale=1280:720:force_original_aspect_ratio=decrease",
		"pad=1280:720",
		"setsar=1",
		"fps=30",
		"format=yuv420p",
		"concat=n=4:v=1:a=1",
		"-movflags +faststart",
		"-c:v libx264",
		"-c:a aac",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q", want)
		}
	}

	// Clips without audio get an 8 second silent track each.
	if n := strings.Count(joined, "anullsrc"); n != 2 {
		t.Errorf("expected 2 silent tracks, got %d", n)
	}
	if !strings.HasSuffix(joined, "out.mp4") {
		t.Errorf("output should be last argument: %q", joined)
	}
}

func TestBuildSpliceArgsSilentOriginal(t *testing.T) {
	p := samplePlan()
	p.OriginalAudio = false
	p.Clip1Audio = true
	p.Clip2Audio = true

	joined := strings.Join(BuildSpliceArgs(p), " ")
	if strings.Contains(joined, "[0:a]") {
		t.Error("original has no audio, must not reference [0:a]")
	}
	if !strings.Contains(joined, "atrim=duration=20.000") {
		t.Error("part A silence should last until the split")
	}
	if !strings.Contains(joined, "atrim=duration=40.000") {
		t.Error("part B silence should cover the remainder")
	}
	if !strings.Contains(joined, "[1:a]atrim=duration=8.000") || !strings.Contains(joined, "[2:a]atrim=duration=8.000") {
		t.Error("clip audio should be trimmed to the clip length")
	}
}

func TestPlanSpliceRejectsOutOfRangeInsert(t *testing.T) {
	r := &fakeRunner{responses: map[string]string{
		"format=duration":                  "60",
		"stream=width,height,r_frame_rate": `{"streams":[{"width":640,"height":360,"r_frame_rate":"25/1"}]}`,
	}}
	f := newTestFFmpeg(r)

	for _, at := range []int64{0, -5, 60000, 90000} {
		_, err := f.PlanSplice(context.Background(), SpliceInput{OriginalPath: "o.mp4", InsertAtMs: at})
		if !errors.Is(err, ErrInsertOutOfRange) {
			t.Errorf("insert at %d should be rejected, got %v", at, err)
		}
	}

	plan, err := f.PlanSplice(context.Background(), SpliceInput{OriginalPath: "o.mp4", InsertAtMs: 20000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Target.FPS != 25 || plan.Target.Width != 640 {
		t.Errorf("target should come from the original, got %+v", plan.Target)
	}
}
