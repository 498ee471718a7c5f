package poll

import (
	"github.com/rs/zerolog/log"
)

// Engine is the poll state machine. A whole transition on one poll, the
// mutation plus its broadcast fan-out plus the countdown re-arm, runs under
// that poll's lock, so transitions form one ordered queue per poll. The
// countdown expiry path re-enters through AdvanceFrom with the question index
// it was armed for, so a stale expiry after a manual advance re-validates
// against the live index and becomes a no-op.
type Engine struct {
	store  *Store
	timers *TimerService
	bc     Broadcaster
}

func NewEngine(store *Store, timers *TimerService, bc Broadcaster) *Engine {
	return &Engine{store: store, timers: timers, bc: bc}
}

// questionView is the per-transition snapshot gathered under the poll lock
// and broadcast after it is released.
type questionView struct {
	index        int
	question     Question
	aggregate    map[string]int
	scores       []ParticipantScore
	autoAdvance  bool
	timerEnabled bool
	timerSeconds int
}

func (e *Engine) viewLocked(p *Poll) questionView {
	q := p.Questions[p.CurrentQuestion]
	return questionView{
		index:        p.CurrentQuestion,
		question:     q,
		aggregate:    p.submittedAnswersLocked(),
		scores:       participantsWithScoresLocked(p),
		autoAdvance:  p.Settings.AutoAdvanceOnTimer,
		timerEnabled: q.TimerEnabled,
		timerSeconds: q.TimerSeconds,
	}
}

// Start moves a poll from lobby to its first non-hidden question. Idempotent:
// a second start is a no-op. If every question is hidden (or there are none)
// the poll ends immediately.
func (e *Engine) Start(pollID string) {
	p := e.store.lookup(pollID)
	if p == nil {
		log.Debug().Str("poll_id", pollID).Msg("start for unknown poll dropped")
		return
	}

	p.mu.Lock()
	if p.Started {
		p.mu.Unlock()
		log.Debug().Str("poll_id", pollID).Msg("poll already started")
		return
	}
	p.Started = true
	p.CurrentQuestion = 0
	for p.CurrentQuestion < len(p.Questions) && p.Questions[p.CurrentQuestion].Hidden {
		p.CurrentQuestion++
	}
	if p.CurrentQuestion >= len(p.Questions) {
		// Nothing visible to run: started stays true, the index never
		// settles on a question.
		p.CurrentQuestion = Lobby
		p.mu.Unlock()
		log.Info().Str("poll_id", pollID).Msg("poll started with no visible questions; ending")
		e.bc.BroadcastToPoll(pollID, EventStartPoll, struct{}{})
		e.End(pollID)
		return
	}
	view := e.viewLocked(p)
	e.bc.BroadcastToPoll(pollID, EventStartPoll, struct{}{})
	e.announceQuestionLocked(pollID, view)
	p.mu.Unlock()

	log.Info().Str("poll_id", pollID).Int("question", view.index).Msg("poll started")
}

// Advance moves the poll to the next non-hidden question on a host command.
func (e *Engine) Advance(pollID string, reason AdvanceReason) {
	e.advance(pollID, nil, reason)
}

// AdvanceFrom is the countdown expiry entry point: it only advances if the
// poll still sits on the question the countdown was armed for.
func (e *Engine) AdvanceFrom(pollID string, fromIndex int, reason AdvanceReason) {
	e.advance(pollID, &fromIndex, reason)
}

func (e *Engine) advance(pollID string, fromIndex *int, reason AdvanceReason) {
	p := e.store.lookup(pollID)
	if p == nil {
		log.Debug().Str("poll_id", pollID).Msg("advance for unknown poll dropped")
		return
	}

	p.mu.Lock()
	if !p.Started {
		p.mu.Unlock()
		log.Debug().Str("poll_id", pollID).Str("reason", string(reason)).Msg("advance in lobby dropped")
		return
	}
	if fromIndex != nil && p.CurrentQuestion != *fromIndex {
		p.mu.Unlock()
		log.Debug().
			Str("poll_id", pollID).
			Int("armed_for", *fromIndex).
			Int("current", p.CurrentQuestion).
			Msg("stale countdown expiry dropped")
		return
	}

	next := p.CurrentQuestion + 1
	for next < len(p.Questions) && p.Questions[next].Hidden {
		next++
	}
	if next >= len(p.Questions) {
		// Finished. CurrentQuestion keeps the last valid index so score
		// queries after the end still resolve. The countdown is cancelled
		// before the end is announced.
		e.timers.Cancel(pollID)
		e.bc.BroadcastToPoll(pollID, EventPollEnded, Ended{PollID: pollID})
		p.mu.Unlock()
		log.Info().Str("poll_id", pollID).Str("reason", string(reason)).Msg("poll ended")
		return
	}

	p.CurrentQuestion = next
	view := e.viewLocked(p)
	e.announceQuestionLocked(pollID, view)
	e.bc.BroadcastToPoll(pollID, EventPollAdvance, Advance{
		PollID:          pollID,
		CurrentQuestion: next,
		Reason:          reason,
	})
	p.mu.Unlock()

	log.Info().
		Str("poll_id", pollID).
		Int("question", next).
		Str("reason", string(reason)).
		Msg("advanced to next question")
}

// announceQuestionLocked fans out everything a freshly entered question
// needs: sanitized question to the room, full question to hosts, the (fresh)
// aggregate, the score snapshot, and the countdown. Callers hold the poll
// lock across the whole fan-out, so two overlapping transitions emit their
// intents and re-arm the countdown in the same order they moved the poll;
// a slower transition can never re-arm the countdown over a newer one.
func (e *Engine) announceQuestionLocked(pollID string, view questionView) {
	e.bc.BroadcastToPoll(pollID, EventQuestionUpdate, view.question.Sanitized())
	e.bc.BroadcastToHosts(pollID, EventQuestionUpdateHost, view.question)
	e.bc.BroadcastToPoll(pollID, EventSubmittedAnswers, view.aggregate)
	e.bc.BroadcastToPoll(pollID, EventParticipantsScore, view.scores)
	e.startCountdownLocked(pollID, view)
}

func (e *Engine) startCountdownLocked(pollID string, view questionView) {
	seconds := 0
	if view.timerEnabled {
		seconds = view.timerSeconds
	}
	armedFor := view.index
	endsAt, ok := e.timers.Start(pollID, seconds, func() {
		e.onCountdownExpired(pollID, armedFor)
	})
	if !ok {
		e.bc.BroadcastToPoll(pollID, EventTimerUpdate, TimerUpdate{PollID: pollID})
		return
	}
	ms := endsAt.UnixMilli()
	e.bc.BroadcastToPoll(pollID, EventTimerUpdate, TimerUpdate{
		PollID:  pollID,
		EndsAt:  &ms,
		Seconds: &seconds,
	})
}

func (e *Engine) onCountdownExpired(pollID string, armedFor int) {
	p := e.store.lookup(pollID)
	if p == nil {
		return
	}
	p.mu.RLock()
	autoAdvance := p.Settings.AutoAdvanceOnTimer
	p.mu.RUnlock()
	if !autoAdvance {
		// Countdown was display only; just clear it for the room.
		e.bc.BroadcastToPoll(pollID, EventTimerUpdate, TimerUpdate{PollID: pollID})
		return
	}
	e.AdvanceFrom(pollID, armedFor, ReasonTimer)
}

// SubmitAnswer records a participant's answer to the current question and
// returns the direct correctness reply for the submitting connection. While
// the poll is in the lobby or has ended, the call is accepted but mutates
// nothing and the result carries QuestionIndex -1.
func (e *Engine) SubmitAnswer(pollID, participantName, label string) AnswerResult {
	p := e.store.lookup(pollID)
	if p == nil {
		return AnswerResult{PollID: pollID, QuestionIndex: -1}
	}

	p.mu.Lock()
	cur := p.CurrentQuestion
	if cur < 0 || cur >= len(p.Questions) {
		p.mu.Unlock()
		log.Debug().Str("poll_id", pollID).Str("name", participantName).Msg("answer outside active question dropped")
		return AnswerResult{PollID: pollID, QuestionIndex: -1}
	}
	p.recordParticipantAnswerLocked(participantName, label)
	q := p.Questions[cur]
	e.bc.BroadcastToPoll(pollID, EventSubmittedAnswers, p.submittedAnswersLocked())
	e.bc.BroadcastToPoll(pollID, EventParticipantsScore, participantsWithScoresLocked(p))
	p.mu.Unlock()

	return AnswerResult{
		PollID:        pollID,
		QuestionIndex: cur,
		IsCorrect:     q.Correct != nil && label == *q.Correct,
		Correct:       q.Correct,
	}
}

// End force-terminates a poll from any state: the countdown is cancelled and
// termination announced. Idempotent, and the aggregate stays queryable for
// final scores.
func (e *Engine) End(pollID string) {
	e.timers.Cancel(pollID)
	e.bc.BroadcastToPoll(pollID, EventPollEnded, Ended{PollID: pollID})
	log.Info().Str("poll_id", pollID).Msg("poll end requested")
}

// HostState builds the unified join snapshot with the full current question.
func (e *Engine) HostState(pollID string) State {
	return e.state(pollID, true)
}

// ParticipantState builds the join snapshot with the correct answer stripped.
func (e *Engine) ParticipantState(pollID string) State {
	return e.state(pollID, false)
}

func (e *Engine) state(pollID string, host bool) State {
	p := e.store.Get(pollID)
	p.mu.RLock()
	defer p.mu.RUnlock()

	var q Question
	if p.CurrentQuestion >= 0 && p.CurrentQuestion < len(p.Questions) {
		q = p.Questions[p.CurrentQuestion]
		if !host {
			q = q.Sanitized()
		}
	}
	return State{
		Poll:             p.summaryLocked(),
		Question:         q,
		SubmittedAnswers: p.submittedAnswersLocked(),
		Participants:     copyParticipants(p.Participants),
	}
}

// Scores returns the current ranking for a poll, tolerating unknown ids.
func (e *Engine) Scores(pollID string) []ParticipantScore {
	return ParticipantsWithScores(e.store.Get(pollID))
}

// CountdownDeadline exposes the pending countdown for late joiners.
func (e *Engine) CountdownDeadline(pollID string) (int64, bool) {
	endsAt, ok := e.timers.Peek(pollID)
	if !ok {
		return 0, false
	}
	return endsAt.UnixMilli(), true
}
