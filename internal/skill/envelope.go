// Package skill implements the voice-assistant webhook that quizzes a viewer and grades the
// spoken answer through the backend.
package skill

// Request types and built-in intents of the voice platform.
const (
	LaunchRequest       = "LaunchRequest"
	IntentRequest       = "IntentRequest"
	SessionEndedRequest = "SessionEndedRequest"

	AnswerIntent = "AnswerIntent"
	HelpIntent   = "AMAZON.HelpIntent"
	StopIntent   = "AMAZON.StopIntent"
	CancelIntent = "AMAZON.CancelIntent"

	answerSlot = "answer"
)

// RequestEnvelope is the body the platform posts to the webhook.
type RequestEnvelope struct {
	Version string  `json:"version"`
	Session Session `json:"session"`
	Request Request `json:"request"`
}

type Session struct {
	New        bool           `json:"new"`
	SessionID  string         `json:"sessionId"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
	Locale    string `json:"locale,omitempty"`
	Intent    Intent `json:"intent"`
	Reason    string `json:"reason,omitempty"`
}

type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SlotValue returns the named slot's value, or "" when absent.
func (i Intent) SlotValue(name string) string {
	return i.Slots[name].Value
}

// ResponseEnvelope is what the webhook answers with.
type ResponseEnvelope struct {
	Version  string   `json:"version"`
	Response Response `json:"response"`
}

type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Reprompt struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

func plain(text string) *OutputSpeech {
	return &OutputSpeech{Type: "PlainText", Text: text}
}

// tell speaks text and ends the session.
func tell(text string) ResponseEnvelope {
	return ResponseEnvelope{
		Version:  "1.0",
		Response: Response{OutputSpeech: plain(text), ShouldEndSession: true},
	}
}

// ask speaks text, keeps the session open and reprompts if the user says nothing.
func ask(text, reprompt string) ResponseEnvelope {
	return ResponseEnvelope{
		Version: "1.0",
		Response: Response{
			OutputSpeech:     plain(text),
			Reprompt:         &Reprompt{OutputSpeech: *plain(reprompt)},
			ShouldEndSession: false,
		},
	}
}

// end closes the session without speaking.
func end() ResponseEnvelope {
	return ResponseEnvelope{Version: "1.0", Response: Response{ShouldEndSession: true}}
}
