package poll_test

import (
	"testing"

	"github.com/easypoll/easypoll/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreFixture(t *testing.T) (*poll.Store, *poll.Poll) {
	t.Helper()
	store := poll.NewStore()
	p := store.Create("quiz", "", "")
	store.AddQuestion("quiz", poll.QuestionSpec{
		Text: "q1", Options: []string{"A", "B"}, Correct: strPtr("A"), Points: intPtr(100),
	})
	store.AddQuestion("quiz", poll.QuestionSpec{
		Text: "q2", Options: []string{"B", "C"}, Correct: strPtr("C"), Points: intPtr(50),
	})
	store.AddParticipant("quiz", "ada")
	p.Started = true
	p.CurrentQuestion = 0
	return store, p
}

func TestScore(t *testing.T) {
	t.Run("sums points for exact matches only", func(t *testing.T) {
		store, p := scoreFixture(t)
		store.RecordParticipantAnswer("quiz", "ada", "A")
		p.CurrentQuestion = 1
		store.RecordParticipantAnswer("quiz", "ada", "B")

		snap := p.Snapshot()
		assert.Equal(t, 100, poll.Score(p, snap.Participants[0]))
	})

	t.Run("unanswered questions contribute zero", func(t *testing.T) {
		_, p := scoreFixture(t)
		assert.Zero(t, poll.Score(p, p.Snapshot().Participants[0]))
	})

	t.Run("questions without a correct answer contribute zero", func(t *testing.T) {
		store := poll.NewStore()
		p := store.Create("quiz", "", "")
		store.AddQuestion("quiz", poll.QuestionSpec{Text: "q1", Options: []string{"A"}})
		store.AddParticipant("quiz", "ada")
		p.Started = true
		p.CurrentQuestion = 0
		store.RecordParticipantAnswer("quiz", "ada", "A")

		assert.Zero(t, poll.Score(p, p.Snapshot().Participants[0]))
	})

	t.Run("setting the correct answer late changes the score", func(t *testing.T) {
		store := poll.NewStore()
		p := store.Create("quiz", "", "")
		store.AddQuestion("quiz", poll.QuestionSpec{Text: "q1", Options: []string{"A", "B"}})
		store.AddParticipant("quiz", "ada")
		p.Started = true
		p.CurrentQuestion = 0
		store.RecordParticipantAnswer("quiz", "ada", "B")

		assert.Zero(t, poll.Score(p, p.Snapshot().Participants[0]))

		store.SetCorrectAnswer("quiz", 0, "B")
		assert.Equal(t, poll.DefaultPoints, poll.Score(p, p.Snapshot().Participants[0]))
	})
}

func TestParticipantsWithScores(t *testing.T) {
	store, p := scoreFixture(t)
	store.AddParticipant("quiz", "bob")
	store.RecordParticipantAnswer("quiz", "ada", "A")
	store.RecordParticipantAnswer("quiz", "bob", "B")

	scores := poll.ParticipantsWithScores(p)
	require.Len(t, scores, 2)

	assert.Equal(t, "ada", scores[0].Name)
	assert.Equal(t, 100, scores[0].Score)
	require.Len(t, scores[0].Answers, 1)
	assert.Equal(t, "A", *scores[0].Answers[0])

	assert.Equal(t, "bob", scores[1].Name)
	assert.Zero(t, scores[1].Score)
}
