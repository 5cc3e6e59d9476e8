package skill

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

const (
	speechNotFound = "I couldn't find that quiz. Please upload a video and generate the quiz first."
	speechError    = "Sorry, something went wrong checking your answer. Please try again later."
	speechHelp     = "I'll ask you a question about the video you just watched. Say something like, the answer is, followed by your answer."
	speechGoodbye  = "Goodbye!"
	speechReprompt = "What's your answer?"
	speechNoAnswer = "I didn't catch an answer. What do you think it is?"
	speechUnknown  = "Sorry, I didn't get that. Say the answer is, followed by your answer."
)

// Skill answers the platform's requests for one configured submission.
type Skill struct {
	backend      Backend
	submissionID string
	log          *logger.Logger
}

func New(backend Backend, submissionID string, log *logger.Logger) *Skill {
	return &Skill{
		backend:      backend,
		submissionID: submissionID,
		log:          log.With("component", "Skill"),
	}
}

// Handle dispatches on the request type and intent name.
func (s *Skill) Handle(ctx context.Context, env RequestEnvelope) ResponseEnvelope {
	req := env.Request
	switch req.Type {
	case LaunchRequest:
		return s.launch(ctx)
	case IntentRequest:
		switch req.Intent.Name {
		case AnswerIntent:
			return s.answer(ctx, req.Intent.SlotValue(answerSlot))
		case HelpIntent:
			return ask(speechHelp, speechReprompt)
		case StopIntent, CancelIntent:
			return tell(speechGoodbye)
		default:
			s.log.Warn("unhandled intent", "intent", req.Intent.Name)
			return ask(speechUnknown, speechReprompt)
		}
	case SessionEndedRequest:
		s.log.Info("session ended", "session", env.Session.SessionID, "reason", req.Reason)
		return end()
	default:
		s.log.Warn("unhandled request type", "type", req.Type)
		return tell(speechUnknown)
	}
}

func (s *Skill) launch(ctx context.Context) ResponseEnvelope {
	if s.submissionID == "" {
		return tell(speechNotFound)
	}
	session, err := s.backend.Session(ctx, s.submissionID)
	if err != nil {
		if !errors.Is(err, ErrQuizNotFound) {
			s.log.Error("session lookup failed", "submission", s.submissionID, "error", err)
		}
		return tell(speechNotFound)
	}
	return ask(questionSpeech(session), speechReprompt)
}

func (s *Skill) answer(ctx context.Context, answer string) ResponseEnvelope {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ask(speechNoAnswer, speechReprompt)
	}
	res, err := s.backend.Verify(ctx, s.submissionID, answer)
	if err != nil {
		s.log.Error("verify failed", "submission", s.submissionID, "error", err)
		return tell(speechError)
	}
	s.log.Info("answer graded", "submission", s.submissionID, "correct", res.Correct)
	return tell(res.Message)
}

func questionSpeech(session *types.Session) string {
	q := strings.TrimSpace(session.Question)
	if show := strings.TrimSpace(session.Show); show != "" && !strings.EqualFold(show, "unknown") {
		return fmt.Sprintf("Here's a question about %s. %s", show, q)
	}
	return "Here's your question. " + q
}

// Webhook is the fiber handler for the platform's POSTs.
func (s *Skill) Webhook(c *fiber.Ctx) error {
	var env RequestEnvelope
	if err := c.BodyParser(&env); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request envelope"})
	}
	return c.JSON(s.Handle(c.UserContext(), env))
}
