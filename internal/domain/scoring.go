package domain

import "sort"

// PickIsCorrect reports whether a pick earns a point under the current grading.
// Tiebreaker picks, unanswered picks and picks on ungraded questions never do.
func PickIsCorrect(pick Pick, question Question) bool {
	if question.IsTiebreaker || !question.IsGraded() || pick.AnswerID == nil {
		return false
	}
	for _, a := range question.Answers {
		if a.ID == *pick.AnswerID {
			return a.IsCorrect != nil && *a.IsCorrect
		}
	}
	return false
}

// Score recomputes a participant's score from their picks and the current questions.
func Score(picks []Pick, questions map[int64]Question) int {
	score := 0
	for _, p := range picks {
		q, ok := questions[p.QuestionID]
		if !ok {
			continue
		}
		if PickIsCorrect(p, q) {
			score++
		}
	}
	return score
}

// IndexQuestions keys questions by id.
func IndexQuestions(questions []Question) map[int64]Question {
	out := make(map[int64]Question, len(questions))
	for _, q := range questions {
		out[q.ID] = q
	}
	return out
}

// LeaderboardRow is one participant's standing.
type LeaderboardRow struct {
	ParticipantID    int64   `json:"participant_id"`
	Name             string  `json:"name"`
	Score            int     `json:"score"`
	TiebreakerAnswer *string `json:"tiebreaker_answer"`
}

// Leaderboard is recomputed on every read.
type Leaderboard struct {
	Rows        []LeaderboardRow `json:"participants"`
	GradedCount int              `json:"gradedCount"`
	TotalCount  int              `json:"totalCount"`
	Tiebreaker  *QuestionSummary `json:"tiebreaker_question"`
}

// QuestionSummary is the id and text of a question.
type QuestionSummary struct {
	ID   int64  `json:"id"`
	Text string `json:"question_text"`
}

// BuildLeaderboard scores submitted participants and orders them by score, highest first.
// Equal scores keep first-name order; ties are left for humans to break.
func BuildLeaderboard(participants []Participant, picks map[int64][]Pick, questions []Question) Leaderboard {
	index := IndexQuestions(questions)
	tb, hasTB := Tiebreaker(questions)

	submitted := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.HasSubmitted() {
			submitted = append(submitted, p)
		}
	}
	sort.SliceStable(submitted, func(i, j int) bool {
		if submitted[i].FirstName != submitted[j].FirstName {
			return submitted[i].FirstName < submitted[j].FirstName
		}
		return submitted[i].ID < submitted[j].ID
	})

	rows := make([]LeaderboardRow, 0, len(submitted))
	for _, p := range submitted {
		row := LeaderboardRow{
			ParticipantID: p.ID,
			Name:          p.FullName(),
			Score:         Score(picks[p.ID], index),
		}
		if hasTB {
			for _, pk := range picks[p.ID] {
				if pk.QuestionID == tb.ID {
					row.TiebreakerAnswer = pk.TiebreakerAnswer
					break
				}
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})

	lb := Leaderboard{Rows: rows}
	lb.GradedCount, lb.TotalCount = GradedCounts(questions)
	if hasTB {
		lb.Tiebreaker = &QuestionSummary{ID: tb.ID, Text: tb.Text}
	}
	return lb
}

// GradedCounts returns graded and total scored questions.
func GradedCounts(questions []Question) (graded, total int) {
	for _, q := range questions {
		if q.IsTiebreaker {
			continue
		}
		total++
		if q.IsGraded() {
			graded++
		}
	}
	return graded, total
}
