package gateway

import (
	"encoding/json"
	"time"

	"github.com/easypoll/easypoll/internal/poll"
	"github.com/google/uuid"
)

// Envelope is the inbound wire frame: a type tag plus a type-specific body.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is the outbound wire frame.
type Event struct {
	ID        string          `json:"id"`
	PollID    string          `json:"pollId,omitempty"`
	Type      poll.EventType  `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// newEvent wraps a payload into the outbound frame. Marshalling happens here,
// while the payload snapshot is still consistent.
func newEvent(pollID string, typ poll.EventType, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		PollID:    pollID,
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

func (e *Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Inbound payload shapes. Unknown or missing fields default to zero values;
// the core repairs what it can and drops the rest silently.

type createPollRequest struct {
	PollID string `json:"pollId"`
	Lang   string `json:"lang"`
	Title  string `json:"title"`
}

type addQuestionRequest struct {
	PollID string `json:"pollId"`
	poll.QuestionSpec
}

type setCorrectAnswerRequest struct {
	PollID        string `json:"pollId"`
	QuestionIndex int    `json:"questionIndex"`
	Correct       string `json:"correct"`
}

type pollRequest struct {
	PollID string `json:"pollId"`
}

type participateRequest struct {
	PollID string `json:"pollId"`
	Name   string `json:"name"`
}

type submitAnswerRequest struct {
	PollID          string `json:"pollId"`
	ParticipantName string `json:"participantName"`
	Answer          string `json:"answer"`
}

type uiLabelsRequest struct {
	Lang string `json:"lang"`
}
