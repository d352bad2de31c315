package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/numerix/numerix-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListActiveRefs returns the identifiers of all active questions - the
// selection pool.
func (r *QuestionRepository) ListActiveRefs(ctx context.Context) ([]model.QuestionRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, slug FROM questions WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.QuestionRef
	for rows.Next() {
		var ref model.QuestionRef
		if err := rows.Scan(&ref.ID, &ref.Slug); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// GetBySlug retrieves one question with its answers, correctness included.
// Callers serving students must strip the flags first.
func (r *QuestionRepository) GetBySlug(ctx context.Context, slug string) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, slug, title, category, difficulty, explanation, active, created_at, updated_at
		 FROM questions WHERE slug = $1`, slug,
	).Scan(&q.ID, &q.Slug, &q.Title, &q.Category, &q.Difficulty, &q.Explanation, &q.Active, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := r.attachAnswers(ctx, []*model.Question{q}); err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID retrieves one question with its answers by primary key.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, slug, title, category, difficulty, explanation, active, created_at, updated_at
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Slug, &q.Title, &q.Category, &q.Difficulty, &q.Explanation, &q.Active, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := r.attachAnswers(ctx, []*model.Question{q}); err != nil {
		return nil, err
	}
	return q, nil
}

// ListByIDs retrieves the given questions with answers. Used when building a
// result's review list from a session's slots.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, slug, title, category, difficulty, explanation, active, created_at, updated_at
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	ptrs := make([]*model.Question, len(questions))
	for i := range questions {
		ptrs[i] = &questions[i]
	}
	if err := r.attachAnswers(ctx, ptrs); err != nil {
		return nil, err
	}
	return questions, nil
}

// List retrieves a page of the question bank with answers, newest first.
func (r *QuestionRepository) List(ctx context.Context, limit, offset int) ([]model.Question, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, slug, title, category, difficulty, explanation, active, created_at, updated_at
		 FROM questions
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, 0, err
	}

	ptrs := make([]*model.Question, len(questions))
	for i := range questions {
		ptrs[i] = &questions[i]
	}
	if err := r.attachAnswers(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// Create inserts a question and its answers in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO questions (slug, title, category, difficulty, explanation, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		q.Slug, q.Title, q.Category, q.Difficulty, q.Explanation, q.Active,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range q.Answers {
		q.Answers[i].QuestionID = q.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO answers (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
			q.ID, q.Answers[i].Text, q.Answers[i].IsCorrect,
		).Scan(&q.Answers[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpdateWithAnswers applies a reconciled question edit in one transaction:
// the question row itself, answer updates/inserts, and deletions of answers
// dropped from the payload. No delete-all window - existing answer IDs stay
// stable across edits.
func (r *QuestionRepository) UpdateWithAnswers(ctx context.Context, q *model.Question, upserts []model.Answer, deleteIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE questions
		 SET title = $1, category = $2, difficulty = $3, explanation = $4, active = $5, updated_at = NOW()
		 WHERE id = $6`,
		q.Title, q.Category, q.Difficulty, q.Explanation, q.Active, q.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if len(deleteIDs) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM answers WHERE question_id = $1 AND id = ANY($2)`,
			q.ID, deleteIDs); err != nil {
			return err
		}
	}

	for i := range upserts {
		a := &upserts[i]
		if a.ID == uuid.Nil {
			err = tx.QueryRow(ctx,
				`INSERT INTO answers (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
				q.ID, a.Text, a.IsCorrect,
			).Scan(&a.ID)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE answers SET text = $1, is_correct = $2 WHERE id = $3 AND question_id = $4`,
				a.Text, a.IsCorrect, a.ID, q.ID)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a question; answers cascade.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AnswerKey returns the privileged question → correct-option mapping for all
// active questions. Scorer-only.
func (r *QuestionRepository) AnswerKey(ctx context.Context) (map[uuid.UUID]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.question_id, a.id
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.is_correct`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(map[uuid.UUID]uuid.UUID)
	for rows.Next() {
		var questionID, answerID uuid.UUID
		if err := rows.Scan(&questionID, &answerID); err != nil {
			return nil, err
		}
		key[questionID] = answerID
	}
	return key, rows.Err()
}

// attachAnswers loads answer rows for the given questions in one query.
func (r *QuestionRepository) attachAnswers(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(questions))
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		byID[q.ID] = q
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct
		 FROM answers WHERE question_id = ANY($1)
		 ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return err
		}
		q, ok := byID[a.QuestionID]
		if !ok {
			return fmt.Errorf("answer %s references unknown question %s", a.ID, a.QuestionID)
		}
		q.Answers = append(q.Answers, a)
	}
	return rows.Err()
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Slug, &q.Title, &q.Category, &q.Difficulty, &q.Explanation, &q.Active, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
