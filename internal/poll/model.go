package poll

import "sync"

// Lobby is the value of Poll.CurrentQuestion before the poll has started.
const Lobby = -1

// DefaultPoints is awarded for a correct answer when a question spec does not
// carry its own points value.
const DefaultPoints = 100

// Settings holds poll-level behavior flags.
type Settings struct {
	// AutoAdvanceOnTimer controls whether a question's countdown expiry
	// advances the poll or only clears the countdown display.
	AutoAdvanceOnTimer bool `json:"autoAdvanceOnTimer"`
}

// Question is immutable after creation except for Correct, which the host may
// set at any point.
type Question struct {
	Text         string   `json:"q"`
	Options      []string `json:"a"`
	Correct      *string  `json:"correct,omitempty"`
	TimerEnabled bool     `json:"timerEnabled"`
	TimerSeconds int      `json:"timerSeconds"`
	Hidden       bool     `json:"hidden"`
	Points       int      `json:"points"`
}

// Sanitized returns a copy of the question with the correct answer stripped,
// safe to send to non-host recipients.
func (q Question) Sanitized() Question {
	q.Correct = nil
	return q
}

// QuestionSpec is the untrusted inbound shape of a question. Missing fields
// are repaired by normalize rather than rejected.
type QuestionSpec struct {
	Text         string   `json:"q"`
	Options      []string `json:"a"`
	Correct      *string  `json:"correct"`
	TimerEnabled bool     `json:"timerEnabled"`
	TimerSeconds *int     `json:"timerSeconds"`
	Hidden       bool     `json:"hidden"`
	Points       *int     `json:"points"`
}

func (s QuestionSpec) normalize() Question {
	q := Question{
		Text:         s.Text,
		Options:      s.Options,
		Correct:      s.Correct,
		TimerEnabled: s.TimerEnabled,
		Hidden:       s.Hidden,
		Points:       DefaultPoints,
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	if s.TimerSeconds != nil && *s.TimerSeconds > 0 {
		q.TimerSeconds = *s.TimerSeconds
	}
	if s.Points != nil {
		q.Points = *s.Points
		if q.Points < 0 {
			q.Points = 0
		}
	}
	return q
}

// Participant is one joined client identity. Answers is aligned to question
// indexes; a nil entry means the participant has not answered that question.
type Participant struct {
	Name    string    `json:"name"`
	Answers []*string `json:"answers"`
}

func (p *Participant) setAnswer(questionIndex int, label string) {
	for len(p.Answers) <= questionIndex {
		p.Answers = append(p.Answers, nil)
	}
	p.Answers[questionIndex] = &label
}

// Poll is the authoritative aggregate for one live session. All mutating
// operations serialize on mu; snapshot reads take the read lock and copy out.
//
// An unstarted poll sits at CurrentQuestion == Lobby. The reverse does not
// quite hold: a poll started with no visible questions ends immediately and
// keeps Started true with CurrentQuestion at Lobby, since no valid index was
// ever entered.
type Poll struct {
	mu sync.RWMutex

	ID           string
	Lang         string
	Title        string
	Settings     Settings
	Questions    []Question
	Answers      []map[string]int // aggregate counts, aligned to Questions
	Participants []Participant

	CurrentQuestion int // Lobby (-1) until started
	Started         bool
}

func newPoll(id, lang, title string) *Poll {
	if lang == "" {
		lang = "en"
	}
	if title == "" {
		title = id
	}
	return &Poll{
		ID:              id,
		Lang:            lang,
		Title:           title,
		Settings:        Settings{AutoAdvanceOnTimer: true},
		Questions:       []Question{},
		Answers:         []map[string]int{},
		Participants:    []Participant{},
		CurrentQuestion: Lobby,
	}
}

// aggregateFor returns the aggregate map for a question, creating the slot on
// first use. Caller holds the write lock.
func (p *Poll) aggregateFor(questionIndex int) map[string]int {
	for len(p.Answers) <= questionIndex {
		p.Answers = append(p.Answers, nil)
	}
	if p.Answers[questionIndex] == nil {
		p.Answers[questionIndex] = make(map[string]int)
	}
	return p.Answers[questionIndex]
}

// Snapshot is a deep copy of a poll's externally visible state, used for the
// pollData payload and safe to marshal after the lock is released.
type Snapshot struct {
	ID              string           `json:"id"`
	Lang            string           `json:"lang"`
	Title           string           `json:"title"`
	Settings        Settings         `json:"settings"`
	Questions       []Question       `json:"questions"`
	Answers         []map[string]int `json:"answers"`
	Participants    []Participant    `json:"participants"`
	CurrentQuestion int              `json:"currentQuestion"`
	Started         bool             `json:"started"`
}

// Summary is the compact poll header used inside the pollState payload.
type Summary struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Lang            string   `json:"lang"`
	Settings        Settings `json:"settings"`
	Started         bool     `json:"started"`
	CurrentQuestion int      `json:"currentQuestion"`
	TotalQuestions  int      `json:"totalQuestions"`
}

// Snapshot returns a deep copy of the poll.
func (p *Poll) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		ID:              p.ID,
		Lang:            p.Lang,
		Title:           p.Title,
		Settings:        p.Settings,
		Questions:       append([]Question(nil), p.Questions...),
		Answers:         copyAggregates(p.Answers),
		Participants:    copyParticipants(p.Participants),
		CurrentQuestion: p.CurrentQuestion,
		Started:         p.Started,
	}
}

func (p *Poll) summaryLocked() Summary {
	return Summary{
		ID:              p.ID,
		Title:           p.Title,
		Lang:            p.Lang,
		Settings:        p.Settings,
		Started:         p.Started,
		CurrentQuestion: p.CurrentQuestion,
		TotalQuestions:  len(p.Questions),
	}
}

// submittedAnswersLocked copies the aggregate map for the current question.
// Returns an empty map while the poll is in the lobby or past its last
// question.
func (p *Poll) submittedAnswersLocked() map[string]int {
	if p.CurrentQuestion < 0 || p.CurrentQuestion >= len(p.Questions) {
		return map[string]int{}
	}
	if p.CurrentQuestion >= len(p.Answers) || p.Answers[p.CurrentQuestion] == nil {
		return map[string]int{}
	}
	return copyAggregate(p.Answers[p.CurrentQuestion])
}

func copyAggregate(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAggregates(in []map[string]int) []map[string]int {
	out := make([]map[string]int, len(in))
	for i, m := range in {
		if m != nil {
			out[i] = copyAggregate(m)
		}
	}
	return out
}

func copyParticipants(in []Participant) []Participant {
	out := make([]Participant, len(in))
	for i, p := range in {
		out[i] = Participant{Name: p.Name, Answers: append([]*string(nil), p.Answers...)}
	}
	return out
}
