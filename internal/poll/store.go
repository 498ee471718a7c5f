package poll

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Store owns the mapping from poll id to Poll aggregate. The map itself is
// guarded by mu; per-poll mutation is serialized on each Poll's own lock, so
// independent polls never contend.
type Store struct {
	mu    sync.RWMutex
	polls map[string]*Poll
}

func NewStore() *Store {
	return &Store{polls: make(map[string]*Poll)}
}

// Exists reports whether a poll has been created under id.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.polls[id]
	return ok
}

// Create constructs a poll in lobby state. Idempotent: if id already exists
// the existing poll is returned untouched.
func (s *Store) Create(id, lang, title string) *Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[id]; ok {
		return p
	}
	p := newPoll(id, lang, title)
	s.polls[id] = p
	log.Info().Str("poll_id", id).Str("lang", p.Lang).Msg("poll created")
	return p
}

// GetOrCreate is the implicit-creation entry used when a client joins or
// participates in a poll that nobody has explicitly created yet.
func (s *Store) GetOrCreate(id string) *Poll {
	return s.Create(id, "", "")
}

// Get returns the poll for id, or an empty placeholder if none exists. The
// placeholder is not inserted into the store; stale references stay harmless.
func (s *Store) Get(id string) *Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.polls[id]; ok {
		return p
	}
	return newPoll(id, "", "")
}

// lookup returns the stored poll or nil. Mutating operations use this so an
// unknown id becomes a no-op instead of materializing a poll.
func (s *Store) lookup(id string) *Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polls[id]
}

// AddQuestion normalizes spec and appends it to the poll's question list.
func (s *Store) AddQuestion(id string, spec QuestionSpec) {
	p := s.lookup(id)
	if p == nil {
		log.Debug().Str("poll_id", id).Msg("addQuestion for unknown poll dropped")
		return
	}
	q := spec.normalize()
	p.mu.Lock()
	p.Questions = append(p.Questions, q)
	p.mu.Unlock()
	log.Debug().Str("poll_id", id).Str("question", q.Text).Msg("question added")
}

// SetCorrectAnswer sets the correct label for a question after creation.
// Out-of-range indexes are ignored.
func (s *Store) SetCorrectAnswer(id string, questionIndex int, correct string) {
	p := s.lookup(id)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if questionIndex < 0 || questionIndex >= len(p.Questions) {
		log.Debug().Str("poll_id", id).Int("question", questionIndex).Msg("setCorrectAnswer index out of range")
		return
	}
	p.Questions[questionIndex].Correct = &correct
	log.Debug().Str("poll_id", id).Int("question", questionIndex).Msg("correct answer set")
}

// AddParticipant appends a participant entry. Names are not deduplicated; a
// rejoin under the same name creates a fresh entry with no answer history.
func (s *Store) AddParticipant(id, name string) {
	p := s.lookup(id)
	if p == nil {
		return
	}
	p.mu.Lock()
	p.Participants = append(p.Participants, Participant{Name: name, Answers: []*string{}})
	p.mu.Unlock()
	log.Debug().Str("poll_id", id).Str("name", name).Msg("participant added")
}

// ParticipantNames returns the roster in join order.
func (s *Store) ParticipantNames(id string) []string {
	p := s.lookup(id)
	if p == nil {
		return []string{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.Participants))
	for i, part := range p.Participants {
		names[i] = part.Name
	}
	return names
}

// RecordAnswer increments the aggregate count for label on a question,
// creating the slot on first use.
func (s *Store) RecordAnswer(id string, questionIndex int, label string) {
	p := s.lookup(id)
	if p == nil || questionIndex < 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aggregateFor(questionIndex)[label]++
}

// RecordParticipantAnswer stores label as the participant's answer to the
// current question and updates the aggregate. Aggregate recording proceeds
// even when no participant matches name; the two records are independent.
func (s *Store) RecordParticipantAnswer(id, name, label string) {
	p := s.lookup(id)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordParticipantAnswerLocked(name, label)
}

func (p *Poll) recordParticipantAnswerLocked(name, label string) {
	if p.CurrentQuestion < 0 || p.CurrentQuestion >= len(p.Questions) {
		return
	}
	for i := range p.Participants {
		if p.Participants[i].Name == name {
			p.Participants[i].setAnswer(p.CurrentQuestion, label)
			break
		}
	}
	p.aggregateFor(p.CurrentQuestion)[label]++
}
