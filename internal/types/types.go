package types

import "time"

// Job status constants
const (
	StatusQueued       = "queued"
	StatusTranscribing = "transcribing"
	StatusAnalyzing    = "analyzing"
	StatusCapturing    = "capturing"
	StatusGenerating   = "generating"
	StatusSplicing     = "splicing"
	StatusDone         = "done"
	StatusFailed       = "failed"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceGDrive = "gdrive"
)

// ClipDurationMs is the fixed length of each generated clip.
const ClipDurationMs = 8000

// Submission is one uploaded video plus everything the pipeline derived from it.
type Submission struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	Prompt     string          `json:"prompt"`
	SourceType string          `json:"sourceType,omitempty"`
	File       FileMeta        `json:"file"`
	Transcript *Transcript     `json:"transcript,omitempty"`
	Gemini     *AnalysisResult `json:"gemini,omitempty"`
	Clips      *GeneratedClips `json:"clips,omitempty"`
	Splice     *SpliceOutput   `json:"splice,omitempty"`
}

// FileMeta describes a stored upload.
type FileMeta struct {
	OriginalName string `json:"originalName"`
	StoredPath   string `json:"storedPath"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

// Transcript is the whisper output for a submission.
type Transcript struct {
	Text      string              `json:"text"`
	Segments  []TranscriptSegment `json:"segments"`
	Model     string              `json:"model,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// TranscriptSegment is one timestamped subtitle block.
type TranscriptSegment struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
}

// AnalysisResult is the parsed 4-line language-model answer.
type AnalysisResult struct {
	Show          string      `json:"show"`
	LongestBreak  BreakWindow `json:"longestBreak"`
	Clip1Question string      `json:"clip1Question"`
	Clip2Answer   string      `json:"clip2Answer"`
	// Missing lists the labels that were absent from the response.
	Missing   []string  `json:"missing,omitempty"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"createdAt"`
}

// BreakWindow is the longest silence; all fields nil when undetected.
type BreakWindow struct {
	StartMs    *int64 `json:"startMs"`
	EndMs      *int64 `json:"endMs"`
	DurationMs *int64 `json:"durationMs"`
}

// Detected reports whether a start offset was parsed.
func (b BreakWindow) Detected() bool {
	return b.StartMs != nil
}

// GeneratedClips records the two generated clips.
type GeneratedClips struct {
	Clip1URL  string    `json:"clip1Url"`
	Clip2URL  string    `json:"clip2Url"`
	Clip1Path string    `json:"clip1Path"`
	Clip2Path string    `json:"clip2Path"`
	Prompt1   string    `json:"prompt1"`
	Prompt2   string    `json:"prompt2"`
	FramePath string    `json:"framePath,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SpliceOutput records the spliced video.
type SpliceOutput struct {
	OutputPath string    `json:"outputPath"`
	OutputURL  string    `json:"outputUrl"`
	InsertAtMs int64     `json:"insertAtMs"`
	DriveURL   string    `json:"driveUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Timeline marks where playback pauses for the spoken question and where the answer clip begins.
type Timeline struct {
	InsertAtMs    int64 `json:"insertAtMs"`
	QuestionEndMs int64 `json:"questionEndMs"`
	AnswerStartMs int64 `json:"answerStartMs"`
	AnswerEndMs   int64 `json:"answerEndMs"`
}

// Session is what the voice assistant needs to run a quiz.
type Session struct {
	SubmissionID string   `json:"submissionId"`
	Show         string   `json:"show"`
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Timeline     Timeline `json:"timeline"`
	VideoURL     string   `json:"videoUrl,omitempty"`
}
