package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numerix/numerix-backend/internal/model"
)

func TestValidateAnswerSet(t *testing.T) {
	tests := []struct {
		name    string
		answers []model.AnswerInput
		wantErr bool
	}{
		{
			name: "valid pair",
			answers: []model.AnswerInput{
				{Text: "3", IsCorrect: true},
				{Text: "7"},
			},
		},
		{
			name:    "single answer",
			answers: []model.AnswerInput{{Text: "3", IsCorrect: true}},
			wantErr: true,
		},
		{
			name: "no correct answer",
			answers: []model.AnswerInput{
				{Text: "3"},
				{Text: "7"},
			},
			wantErr: true,
		},
		{
			name: "two correct answers",
			answers: []model.AnswerInput{
				{Text: "3", IsCorrect: true},
				{Text: "7", IsCorrect: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAnswerSet(tt.answers)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReconcileAnswers_DiffsAgainstStoredSet(t *testing.T) {
	keptID := uuid.New()
	droppedID := uuid.New()
	stored := []model.Answer{
		{ID: keptID, Text: "old text", IsCorrect: true},
		{ID: droppedID, Text: "obsolete"},
	}
	incoming := []model.AnswerInput{
		{ID: &keptID, Text: "new text", IsCorrect: true},
		{Text: "brand new"},
	}

	upserts, deleteIDs, err := reconcileAnswers(stored, incoming)
	require.NoError(t, err)

	require.Len(t, upserts, 2)
	assert.Equal(t, keptID, upserts[0].ID)
	assert.Equal(t, "new text", upserts[0].Text)
	assert.True(t, upserts[0].IsCorrect)
	assert.Equal(t, uuid.Nil, upserts[1].ID, "new answer has no ID yet")
	assert.Equal(t, "brand new", upserts[1].Text)

	assert.Equal(t, []uuid.UUID{droppedID}, deleteIDs)
}

func TestReconcileAnswers_RejectsForeignAnswerID(t *testing.T) {
	stored := []model.Answer{
		{ID: uuid.New(), Text: "a", IsCorrect: true},
		{ID: uuid.New(), Text: "b"},
	}
	foreign := uuid.New()
	incoming := []model.AnswerInput{
		{ID: &foreign, Text: "hijacked", IsCorrect: true},
		{Text: "x"},
	}

	_, _, err := reconcileAnswers(stored, incoming)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReconcileAnswers_UnchangedSetDeletesNothing(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	stored := []model.Answer{
		{ID: a, Text: "a", IsCorrect: true},
		{ID: b, Text: "b"},
	}
	incoming := []model.AnswerInput{
		{ID: &a, Text: "a", IsCorrect: true},
		{ID: &b, Text: "b"},
	}

	upserts, deleteIDs, err := reconcileAnswers(stored, incoming)
	require.NoError(t, err)
	assert.Len(t, upserts, 2)
	assert.Empty(t, deleteIDs)
}
