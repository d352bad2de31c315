// Package scorer computes a completed session's outcome from its answer slots
// and the privileged answer key. Grading is pure and deterministic; it runs
// exactly once, at the completion transition.
package scorer

import (
	"github.com/google/uuid"
)

// Slot is the grading view of one session question: what was asked and what
// was recorded. Submitted is nil for unanswered slots.
type Slot struct {
	QuestionID uuid.UUID
	Submitted  *uuid.UUID
}

// AnswerKey maps a question ID to its correct option ID. Scorer-only.
type AnswerKey map[uuid.UUID]uuid.UUID

// Outcome is the graded result. MissedQuestionIDs preserves slot order so the
// review list reads in sequence order.
type Outcome struct {
	Total             int
	Correct           int
	Score             float64
	Passed            bool
	MissedQuestionIDs []uuid.UUID
}

// Grade compares each slot's recorded answer to the answer key. Unanswered
// slots (and slots whose question is missing from the key) count as incorrect
// - the denominator is always the fixed sequence length, never the answered
// count. The pass verdict uses the single configured threshold.
func Grade(slots []Slot, key AnswerKey, passThreshold float64) Outcome {
	out := Outcome{Total: len(slots)}

	for _, slot := range slots {
		correctID, ok := key[slot.QuestionID]
		if ok && slot.Submitted != nil && *slot.Submitted == correctID {
			out.Correct++
			continue
		}
		out.MissedQuestionIDs = append(out.MissedQuestionIDs, slot.QuestionID)
	}

	if out.Total > 0 {
		out.Score = float64(out.Correct) / float64(out.Total)
	}
	out.Passed = out.Score >= passThreshold

	return out
}
