package poll

// Score sums the points of every question the participant answered with the
// question's correct label. Questions without a recorded answer or without a
// defined correct answer contribute nothing. Pure and recomputed on demand,
// so setting a correct answer late retroactively changes subsequent scores.
func Score(p *Poll, participant Participant) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return scoreLocked(p, participant)
}

func scoreLocked(p *Poll, participant Participant) int {
	score := 0
	for i, answer := range participant.Answers {
		if answer == nil || i >= len(p.Questions) {
			continue
		}
		q := p.Questions[i]
		if q.Correct != nil && *q.Correct == *answer {
			score += q.Points
		}
	}
	return score
}

// ParticipantScore is one row of the participantsScoreUpdate payload.
type ParticipantScore struct {
	Name    string    `json:"name"`
	Score   int       `json:"score"`
	Answers []*string `json:"answers"`
}

// ParticipantsWithScores computes the current ranking snapshot.
func ParticipantsWithScores(p *Poll) []ParticipantScore {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return participantsWithScoresLocked(p)
}

func participantsWithScoresLocked(p *Poll) []ParticipantScore {
	out := make([]ParticipantScore, len(p.Participants))
	for i, part := range p.Participants {
		out[i] = ParticipantScore{
			Name:    part.Name,
			Score:   scoreLocked(p, part),
			Answers: append([]*string(nil), part.Answers...),
		}
	}
	return out
}
