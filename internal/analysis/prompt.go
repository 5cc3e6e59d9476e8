package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

const (
	// MaxPromptSegments caps how many timestamped segments are sent to the model.
	MaxPromptSegments = 220
	// MaxPromptChars caps the full transcript text sent to the model.
	MaxPromptChars = 4000
)

// Response labels, in the order the model must emit them.
const (
	LabelShow     = "SHOW:"
	LabelBreak    = "LONGEST_BREAK_MS:"
	LabelQuestion = "CLIP_1_QUESTION:"
	LabelAnswer   = "CLIP_2_ANSWER:"
)

type compactSegment struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
}

// BuildPrompt renders the analysis prompt for a learning goal and transcript.
func BuildPrompt(goal string, tr *types.Transcript) string {
	segs := tr.Segments
	if len(segs) > MaxPromptSegments {
		segs = segs[:MaxPromptSegments]
	}
	compact := make([]compactSegment, 0, len(segs))
	for _, s := range segs {
		compact = append(compact, compactSegment{StartMs: s.StartMs, EndMs: s.EndMs, Text: s.Text})
	}
	segJSON, _ := json.Marshal(compact)

	text := tr.Text
	if r := []rune(text); len(r) > MaxPromptChars {
		text = string(r[:MaxPromptChars])
	}

	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = "(none given)"
	}

	var b strings.Builder
	b.WriteString("You are helping turn a short video into a learning moment.\n\n")
	fmt.Fprintf(&b, "Learning goal from the viewer: %s\n\n", goal)
	b.WriteString("Transcript segments as JSON (startMs, endMs, text):\n")
	b.Write(segJSON)
	b.WriteString("\n\nFull transcript text:\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString("Tasks:\n")
	b.WriteString("1. Name the show or series this video most likely comes from, or Unknown.\n")
	b.WriteString("2. Find the longest gap between consecutive segments (silence) in milliseconds.\n")
	b.WriteString("3. Write a question script for an 8 second clip that quizzes the viewer on the learning goal.\n")
	b.WriteString("4. Write an answer script for an 8 second clip that immediately answers the question from clip 1.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Answer with exactly four lines and nothing else.\n")
	b.WriteString("- Each script is a single line of roughly 8 seconds of spoken narration.\n")
	b.WriteString("- Do not impersonate or name copyrighted characters; use a neutral friendly narrator.\n\n")
	b.WriteString("Format:\n")
	fmt.Fprintf(&b, "%s <show name or Unknown>\n", LabelShow)
	fmt.Fprintf(&b, "%s <startMs>-<endMs> (<durationMs>)\n", LabelBreak)
	fmt.Fprintf(&b, "%s <one line question narration>\n", LabelQuestion)
	fmt.Fprintf(&b, "%s <one line answer narration>\n", LabelAnswer)

	return b.String()
}
