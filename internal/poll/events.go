package poll

// EventType names an outbound event. The gateway maps these one-to-one onto
// wire messages.
type EventType string

const (
	EventPollData           EventType = "pollData"
	EventParticipantsUpdate EventType = "participantsUpdate"
	EventPollState          EventType = "pollState"
	EventStartPoll          EventType = "startPoll"
	EventQuestionUpdate     EventType = "questionUpdate"
	EventQuestionUpdateHost EventType = "questionUpdateHost"
	EventSubmittedAnswers   EventType = "submittedAnswersUpdate"
	EventParticipantsScore  EventType = "participantsScoreUpdate"
	EventTimerUpdate        EventType = "timerUpdate"
	EventPollAdvance        EventType = "pollAdvance"
	EventPollEnded          EventType = "pollEnded"
	EventAnswerResult       EventType = "answerResult"
	EventUILabels           EventType = "uiLabels"
)

// AdvanceReason distinguishes a host click from a countdown expiry in the
// pollAdvance event. It never changes advance behavior.
type AdvanceReason string

const (
	ReasonHost  AdvanceReason = "host"
	ReasonTimer AdvanceReason = "timer"
)

// Broadcaster is the engine's only view of the transport: fan a payload out
// to every connection in a poll's room, or to the host connections only.
// Payloads handed over are snapshots; the transport may marshal them at any
// later point. Implementations must enqueue without blocking: the engine
// calls them while holding the poll's lock.
type Broadcaster interface {
	BroadcastToPoll(pollID string, typ EventType, payload any)
	BroadcastToHosts(pollID string, typ EventType, payload any)
}

// TimerUpdate announces the countdown for the current question. EndsAt and
// Seconds are nil when the question runs without a timer.
type TimerUpdate struct {
	PollID  string `json:"pollId"`
	EndsAt  *int64 `json:"endsAt"` // unix milliseconds
	Seconds *int   `json:"seconds"`
}

// Advance is the observability event emitted on every successful transition
// to a new question.
type Advance struct {
	PollID          string        `json:"pollId"`
	CurrentQuestion int           `json:"currentQuestion"`
	Reason          AdvanceReason `json:"reason"`
}

// Ended announces poll termination.
type Ended struct {
	PollID string `json:"pollId"`
}

// AnswerResult is the direct reply to a submitting connection. The correct
// label is revealed to the submitter after submission regardless of
// correctness. QuestionIndex is -1 when the submission had no effect.
type AnswerResult struct {
	PollID        string  `json:"pollId"`
	QuestionIndex int     `json:"questionIndex"`
	IsCorrect     bool    `json:"isCorrect"`
	Correct       *string `json:"correct"`
}

// State is the unified snapshot sent to a joining host or participant.
type State struct {
	Poll             Summary        `json:"poll"`
	Question         Question       `json:"question"`
	SubmittedAnswers map[string]int `json:"submittedAnswers"`
	Participants     []Participant  `json:"participants"`
}
