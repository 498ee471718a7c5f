package gateway

import (
	"encoding/json"

	"github.com/easypoll/easypoll/internal/i18n"
	"github.com/easypoll/easypoll/internal/poll"
	"github.com/rs/zerolog/log"
)

// SessionGateway adapts inbound client frames to store/engine calls and
// renders the results back out: direct replies go to the originating
// connection, everything else reaches the room through the engine's own
// broadcasts. A malformed frame is logged and dropped; one bad message never
// takes down a room.
type SessionGateway struct {
	store  *poll.Store
	engine *poll.Engine
	cm     *ConnectionManager
}

func NewSessionGateway(store *poll.Store, engine *poll.Engine, cm *ConnectionManager) *SessionGateway {
	return &SessionGateway{store: store, engine: engine, cm: cm}
}

// Dispatch routes one inbound frame.
func (g *SessionGateway) Dispatch(conn *Connection, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("dropping malformed frame")
		return
	}

	log.Debug().Str("connection_id", conn.ID).Str("type", env.Type).Msg("inbound event")

	switch env.Type {
	case "createPoll":
		g.createPoll(conn, env.Data)
	case "addQuestion":
		g.addQuestion(conn, env.Data)
	case "setCorrectAnswer":
		g.setCorrectAnswer(conn, env.Data)
	case "joinPoll":
		g.joinPoll(conn, env.Data)
	case "hostJoin":
		g.hostJoin(conn, env.Data)
	case "participateInPoll":
		g.participateInPoll(conn, env.Data)
	case "hostStartPoll", "startPoll":
		// startPoll is the legacy alias older create views still send.
		g.hostStartPoll(conn, env.Data)
	case "nextQuestion":
		g.nextQuestion(conn, env.Data)
	case "submitAnswer":
		g.submitAnswer(conn, env.Data)
	case "getParticipantsScores":
		g.getParticipantsScores(conn, env.Data)
	case "endPoll":
		g.endPoll(conn, env.Data)
	case "getUILabels":
		g.getUILabels(conn, env.Data)
	default:
		log.Warn().Str("connection_id", conn.ID).Str("type", env.Type).Msg("unknown event type, ignoring")
	}
}

func decode[T any](conn *Connection, data json.RawMessage) (T, bool) {
	var req T
	if len(data) == 0 {
		return req, true
	}
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("dropping malformed event body")
		var zero T
		return zero, false
	}
	return req, true
}

func (g *SessionGateway) createPoll(conn *Connection, data json.RawMessage) {
	req, ok := decode[createPollRequest](conn, data)
	if !ok {
		return
	}
	g.store.Create(req.PollID, req.Lang, req.Title)
	g.replyPollData(conn, req.PollID)
}

func (g *SessionGateway) addQuestion(conn *Connection, data json.RawMessage) {
	req, ok := decode[addQuestionRequest](conn, data)
	if !ok {
		return
	}
	g.store.AddQuestion(req.PollID, req.QuestionSpec)
	g.replyPollData(conn, req.PollID)
}

func (g *SessionGateway) setCorrectAnswer(conn *Connection, data json.RawMessage) {
	req, ok := decode[setCorrectAnswerRequest](conn, data)
	if !ok {
		return
	}
	g.store.SetCorrectAnswer(req.PollID, req.QuestionIndex, req.Correct)
	g.replyPollData(conn, req.PollID)
}

func (g *SessionGateway) replyPollData(conn *Connection, pollID string) {
	g.cm.Reply(conn, pollID, poll.EventPollData, g.store.Get(pollID).Snapshot())
}

func (g *SessionGateway) joinPoll(conn *Connection, data json.RawMessage) {
	req, ok := decode[pollRequest](conn, data)
	if !ok {
		return
	}
	g.cm.Subscribe(conn, req.PollID, RoleParticipant)
	g.store.GetOrCreate(req.PollID)
	g.cm.Reply(conn, req.PollID, poll.EventParticipantsUpdate, g.store.ParticipantNames(req.PollID))
}

func (g *SessionGateway) hostJoin(conn *Connection, data json.RawMessage) {
	req, ok := decode[pollRequest](conn, data)
	if !ok {
		return
	}
	g.cm.Subscribe(conn, req.PollID, RoleHost)
	g.store.GetOrCreate(req.PollID)

	state := g.engine.HostState(req.PollID)
	g.cm.Reply(conn, req.PollID, poll.EventPollState, state)

	// A host reconnecting mid-run needs the live question, stats and
	// countdown without waiting for the next transition.
	if state.Poll.Started && state.Poll.CurrentQuestion >= 0 {
		g.cm.Reply(conn, req.PollID, poll.EventQuestionUpdateHost, state.Question)
		g.cm.Reply(conn, req.PollID, poll.EventSubmittedAnswers, state.SubmittedAnswers)
		g.cm.Reply(conn, req.PollID, poll.EventParticipantsScore, g.engine.Scores(req.PollID))

		update := poll.TimerUpdate{PollID: req.PollID}
		if endsAt, ok := g.engine.CountdownDeadline(req.PollID); ok {
			update.EndsAt = &endsAt
		}
		g.cm.Reply(conn, req.PollID, poll.EventTimerUpdate, update)
	}
}

func (g *SessionGateway) participateInPoll(conn *Connection, data json.RawMessage) {
	req, ok := decode[participateRequest](conn, data)
	if !ok {
		return
	}
	g.store.GetOrCreate(req.PollID)
	g.store.AddParticipant(req.PollID, req.Name)
	g.cm.BroadcastToPoll(req.PollID, poll.EventParticipantsUpdate, g.store.ParticipantNames(req.PollID))
}

func (g *SessionGateway) hostStartPoll(conn *Connection, data json.RawMessage) {
	req, ok := decode[pollRequest](conn, data)
	if !ok {
		return
	}
	g.engine.Start(req.PollID)
}

func (g *SessionGateway) nextQuestion(conn *Connection, data json.RawMessage) {
	req, ok := decode[pollRequest](conn, data)
	if !ok {
		return
	}
	g.engine.Advance(req.PollID, poll.ReasonHost)
}

func (g *SessionGateway) submitAnswer(conn *Connection, data json.RawMessage) {
	req, ok := decode[submitAnswerRequest](conn, data)
	if !ok {
		return
	}
	result := g.engine.SubmitAnswer(req.PollID, req.ParticipantName, req.Answer)
	g.cm.Reply(conn, req.PollID, poll.EventAnswerResult, result)
}

func (g *SessionGateway) getParticipantsScores(conn *Connection, data json.RawMessage) {
	req, ok := decode[pollRequest](conn, data)
	if !ok {
		return
	}
	g.cm.Reply(conn, req.PollID, poll.EventParticipantsScore, g.engine.Scores(req.PollID))
}

func (g *SessionGateway) endPoll(conn *Connection, data json.RawMessage) {
	req, ok := decode[pollRequest](conn, data)
	if !ok {
		return
	}
	g.engine.End(req.PollID)
}

func (g *SessionGateway) getUILabels(conn *Connection, data json.RawMessage) {
	req, ok := decode[uiLabelsRequest](conn, data)
	if !ok {
		return
	}
	labels, err := i18n.Labels(req.Lang)
	if err != nil {
		log.Error().Err(err).Str("lang", req.Lang).Msg("failed to load UI labels")
		return
	}
	g.cm.Reply(conn, "", poll.EventUILabels, labels)
}
