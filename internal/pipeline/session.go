package pipeline

import (
	"context"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
	"github.com/codebuildervaibhav/quizsplice/internal/verify"
)

// BuildTimeline places the question clip at insertAtMs and the answer clip right after it.
func BuildTimeline(insertAtMs int64) types.Timeline {
	questionEnd := insertAtMs + types.ClipDurationMs
	return types.Timeline{
		InsertAtMs:    insertAtMs,
		QuestionEndMs: questionEnd,
		AnswerStartMs: questionEnd,
		AnswerEndMs:   questionEnd + types.ClipDurationMs,
	}
}

// Session is the quiz for a submission as the voice assistant sees it.
func (s *Service) Session(ctx context.Context, id string) (*types.Session, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hasScripts(sub) {
		return nil, apierr.BadRequest("ERR_NO_ANALYSIS", "run analysis first")
	}

	var insertAt int64
	switch {
	case sub.Splice != nil:
		insertAt = sub.Splice.InsertAtMs
	case sub.Gemini.LongestBreak.Detected():
		insertAt = *sub.Gemini.LongestBreak.StartMs
	}

	videoURL := sub.File.URL
	if sub.Splice != nil && sub.Splice.OutputURL != "" {
		videoURL = sub.Splice.OutputURL
	}

	return &types.Session{
		SubmissionID: sub.ID,
		Show:         sub.Gemini.Show,
		Question:     sub.Gemini.Clip1Question,
		Answer:       sub.Gemini.Clip2Answer,
		Timeline:     BuildTimeline(insertAt),
		VideoURL:     videoURL,
	}, nil
}

// VerifyAnswer grades a spoken answer against the submission's answer script.
func (s *Service) VerifyAnswer(ctx context.Context, id, answer string) (verify.Result, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return verify.Result{}, err
	}
	if !hasScripts(sub) {
		return verify.Result{}, apierr.BadRequest("ERR_NO_ANALYSIS", "run analysis first")
	}

	res := s.checker.Check(sub.Gemini.Clip2Answer, answer)
	s.log.Info("answer checked", "submission", id, "correct", res.Correct, "score", res.Score)
	return res, nil
}

func hasScripts(sub *types.Submission) bool {
	return sub.Gemini != nil &&
		strings.TrimSpace(sub.Gemini.Clip1Question) != "" &&
		strings.TrimSpace(sub.Gemini.Clip2Answer) != ""
}
