package scorer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildExam returns n question IDs, an answer key over them, and a helper to
// build slots answered correctly/incorrectly/not at all.
func buildExam(n int) ([]uuid.UUID, AnswerKey) {
	ids := make([]uuid.UUID, n)
	key := make(AnswerKey, n)
	for i := range ids {
		ids[i] = uuid.New()
		key[ids[i]] = uuid.New()
	}
	return ids, key
}

func slotsFor(ids []uuid.UUID, key AnswerKey, correct int) []Slot {
	slots := make([]Slot, len(ids))
	for i, id := range ids {
		slots[i] = Slot{QuestionID: id}
		if i < correct {
			right := key[id]
			slots[i].Submitted = &right
		} else {
			wrong := uuid.New()
			slots[i].Submitted = &wrong
		}
	}
	return slots
}

func TestGrade_Deterministic(t *testing.T) {
	ids, key := buildExam(30)
	slots := slotsFor(ids, key, 18)

	out := Grade(slots, key, 0.5)

	assert.Equal(t, 30, out.Total)
	assert.Equal(t, 18, out.Correct)
	assert.InDelta(t, 0.6, out.Score, 1e-9)
	assert.True(t, out.Passed)
	assert.Len(t, out.MissedQuestionIDs, 12)

	// Same inputs, same outcome.
	again := Grade(slots, key, 0.5)
	assert.Equal(t, out, again)
}

func TestGrade_UnansweredCountsAsIncorrect(t *testing.T) {
	ids, key := buildExam(30)

	// 10 of 30 answered, all correct; the rest never answered (time expiry).
	slots := make([]Slot, len(ids))
	for i, id := range ids {
		slots[i] = Slot{QuestionID: id}
		if i < 10 {
			right := key[id]
			slots[i].Submitted = &right
		}
	}

	out := Grade(slots, key, 0.5)

	assert.Equal(t, 30, out.Total, "denominator stays the fixed sequence length")
	assert.Equal(t, 10, out.Correct)
	assert.InDelta(t, 1.0/3.0, out.Score, 1e-9)
	assert.False(t, out.Passed)
	assert.Len(t, out.MissedQuestionIDs, 20)
}

func TestGrade_AllCorrect(t *testing.T) {
	ids, key := buildExam(30)
	slots := slotsFor(ids, key, 30)

	out := Grade(slots, key, 0.5)

	assert.Equal(t, 30, out.Correct)
	assert.Equal(t, 1.0, out.Score)
	assert.True(t, out.Passed)
	assert.Empty(t, out.MissedQuestionIDs)
}

func TestGrade_ThresholdBoundary(t *testing.T) {
	ids, key := buildExam(10)

	exactly := Grade(slotsFor(ids, key, 5), key, 0.5)
	assert.True(t, exactly.Passed, "score equal to threshold passes")

	below := Grade(slotsFor(ids, key, 4), key, 0.5)
	assert.False(t, below.Passed)

	// The threshold is a configuration point, not a constant baked in.
	stricter := Grade(slotsFor(ids, key, 5), key, 0.7)
	assert.False(t, stricter.Passed)
}

func TestGrade_MissedPreservesSlotOrder(t *testing.T) {
	ids, key := buildExam(4)
	wrong := uuid.New()
	slots := []Slot{
		{QuestionID: ids[0], Submitted: &wrong},
		{QuestionID: ids[1], Submitted: ptr(key[ids[1]])},
		{QuestionID: ids[2]},
		{QuestionID: ids[3], Submitted: &wrong},
	}

	out := Grade(slots, key, 0.5)

	require.Equal(t, []uuid.UUID{ids[0], ids[2], ids[3]}, out.MissedQuestionIDs)
}

func TestGrade_EmptySlots(t *testing.T) {
	out := Grade(nil, AnswerKey{}, 0.5)

	assert.Equal(t, 0, out.Total)
	assert.Equal(t, 0.0, out.Score)
	assert.False(t, out.Passed)
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
