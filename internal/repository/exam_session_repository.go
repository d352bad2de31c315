package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/numerix/numerix-backend/internal/model"
)

// ExamSessionRepository handles exam session data access. Session creation is
// atomic (session row plus all slots in one transaction) and completion is a
// conditional write so the transition fires at most once.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// CreateWithSlots inserts the session and one slot per selected question in a
// single transaction. Either the full session with all slots exists
// afterwards, or none of it does. Slot positions follow the selection order.
func (r *ExamSessionRepository) CreateWithSlots(ctx context.Context, s *model.ExamSession, selection []model.QuestionRef) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exam_sessions (student_name, student_email, started_at, expires_at, total_questions)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.StudentName, s.StudentEmail, s.StartedAt, s.ExpiresAt, len(selection),
	).Scan(&s.ID)
	if err != nil {
		return err
	}
	s.TotalQuestions = len(selection)

	questionIDs := make([]uuid.UUID, len(selection))
	positions := make([]int, len(selection))
	for i, ref := range selection {
		questionIDs[i] = ref.ID
		positions[i] = i
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO exam_questions (exam_session_id, question_id, order_num)
		 SELECT $1, u.question_id, u.order_num
		 FROM UNNEST($2::uuid[], $3::int[]) AS u (question_id, order_num)`,
		s.ID, questionIDs, positions)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.Questions = make([]model.SessionQuestion, len(selection))
	for i, ref := range selection {
		s.Questions[i] = model.SessionQuestion{
			QuestionID: ref.ID,
			Slug:       ref.Slug,
			Position:   i,
		}
	}
	return nil
}

// GetByID retrieves a session without its slots.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_name, student_email, started_at, expires_at, completed_at,
		        time_expired, total_questions, score, passed
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.StudentName, &s.StudentEmail, &s.StartedAt, &s.ExpiresAt, &s.CompletedAt,
		&s.TimeExpired, &s.TotalQuestions, &s.Score, &s.Passed)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetWithSlots retrieves a session together with its ordered question slots.
func (r *ExamSessionRepository) GetWithSlots(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT eq.question_id, q.slug, eq.order_num, eq.user_answer, eq.answered_at
		 FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_session_id = $1
		 ORDER BY eq.order_num`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var slot model.SessionQuestion
		if err := rows.Scan(&slot.QuestionID, &slot.Slug, &slot.Position, &slot.UserAnswer, &slot.AnsweredAt); err != nil {
			return nil, err
		}
		s.Questions = append(s.Questions, slot)
	}
	return s, rows.Err()
}

// RecordAnswer writes the chosen option into the (session, question) slot.
// A later write for the same slot overwrites the earlier one - answer changes
// via back navigation are allowed until completion - and replaying the same
// pair is a no-op at the storage level. Returns false when the question has
// no slot in this session.
func (r *ExamSessionRepository) RecordAnswer(ctx context.Context, sessionID, questionID, answerID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_questions
		 SET user_answer = $1, answered_at = $2
		 WHERE exam_session_id = $3 AND question_id = $4`,
		answerID, at, sessionID, questionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted performs the guarded completion transition. The WHERE clause
// on completed_at makes the write fire at most once: the first trigger wins,
// any later one sees zero rows affected and must read the stored result.
func (r *ExamSessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, reason model.CompletionReason, score float64, passed bool, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET completed_at = $1, time_expired = $2, score = $3, passed = $4
		 WHERE id = $5 AND completed_at IS NULL`,
		at, reason == model.CompletionReasonTimeExpired, score, passed, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListSummaries returns a page of session rows for the admin report, newest
// first.
func (r *ExamSessionRepository) ListSummaries(ctx context.Context, limit, offset int) ([]model.SessionSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, student_name, student_email, started_at, completed_at, time_expired, score, passed
		 FROM exam_sessions
		 ORDER BY started_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []model.SessionSummary
	for rows.Next() {
		var s model.SessionSummary
		if err := rows.Scan(&s.ID, &s.StudentName, &s.StudentEmail, &s.StartedAt, &s.CompletedAt, &s.TimeExpired, &s.Score, &s.Passed); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

// ListExpired returns in-progress sessions whose deadline has passed. The
// deadline sweeper uses this as its PostgreSQL fallback scan.
func (r *ExamSessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exam_sessions
		 WHERE completed_at IS NULL AND expires_at < $1
		 ORDER BY expires_at
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
