package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// ExamSessionRepository handles exam session and answer data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, exam_id, student_id, state, started_at, finished_at, score, is_approved, created_at, updated_at`

func scanSession(row pgx.Row, s *model.ExamSession) error {
	return row.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.State, &s.StartedAt, &s.FinishedAt,
		&s.Score, &s.IsApproved, &s.CreatedAt, &s.UpdatedAt)
}

// GetExamSession retrieves the session of a student for an exam.
func (r *ExamSessionRepository) GetExamSession(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID)
	if err := scanSession(row, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpsertExamSession creates or updates the (student, exam) row in one statement.
// started_at and finished_at are written once; a FINISHED row stays FINISHED.
func (r *ExamSessionRepository) UpsertExamSession(ctx context.Context, studentID int, examID uuid.UUID, f model.ExamSessionFields) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, state, started_at, finished_at, score)
		 VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()), $5::timestamptz, $6::double precision)
		 ON CONFLICT (exam_id, student_id) DO UPDATE SET
		     state = CASE WHEN exam_sessions.state = 'FINISHED' THEN exam_sessions.state ELSE EXCLUDED.state END,
		     finished_at = COALESCE(exam_sessions.finished_at, EXCLUDED.finished_at),
		     score = COALESCE(EXCLUDED.score, exam_sessions.score),
		     updated_at = NOW()
		 RETURNING `+sessionColumns,
		examID, studentID, f.State, f.StartedAt, f.FinishedAt, f.Score)
	if err := scanSession(row, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpsertStudentAnswer creates or replaces the answer of a student to a question.
// Nothing is written, and pgx.ErrNoRows is returned, unless the student's
// session for the question's exam is IN_PROGRESS.
func (r *ExamSessionRepository) UpsertStudentAnswer(ctx context.Context, studentID int, questionID uuid.UUID, f model.StudentAnswerFields) (*model.StudentAnswer, error) {
	a := &model.StudentAnswer{StudentID: studentID, QuestionID: questionID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO student_answers (student_id, question_id, choice_id, text_answer)
		 SELECT $1::int, $2::uuid, $3::uuid, $4::text
		 WHERE EXISTS (
		     SELECT 1 FROM exam_sessions es
		     JOIN questions q ON q.exam_id = es.exam_id
		     WHERE q.id = $2 AND es.student_id = $1 AND es.state = 'IN_PROGRESS'
		 )
		 ON CONFLICT (student_id, question_id) DO UPDATE SET
		     choice_id = EXCLUDED.choice_id,
		     text_answer = EXCLUDED.text_answer,
		     updated_at = NOW()
		 RETURNING id, choice_id, text_answer, submitted_at, updated_at`,
		studentID, questionID, f.ChoiceID, f.TextAnswer,
	).Scan(&a.ID, &a.ChoiceID, &a.TextAnswer, &a.SubmittedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListStudentAnswers retrieves every answer a student gave within an exam.
func (r *ExamSessionRepository) ListStudentAnswers(ctx context.Context, studentID int, examID uuid.UUID) ([]model.StudentAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.student_id, a.question_id, a.choice_id, a.text_answer, a.submitted_at, a.updated_at
		 FROM student_answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.student_id = $1 AND q.exam_id = $2`, studentID, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.StudentAnswer
	for rows.Next() {
		var a model.StudentAnswer
		if err := rows.Scan(&a.ID, &a.StudentID, &a.QuestionID, &a.ChoiceID, &a.TextAnswer, &a.SubmittedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListFinishedSessions retrieves all FINISHED sessions of an exam.
func (r *ExamSessionRepository) ListFinishedSessions(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1 AND state = $2
		 ORDER BY student_id`, examID, model.SessionStateFinished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByStudent retrieves all sessions of a student with their exam titles.
func (r *ExamSessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.StudentResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.exam_id, e.title, es.state, es.started_at, es.finished_at, es.score, es.is_approved
		 FROM exam_sessions es
		 JOIN exams e ON e.id = es.exam_id
		 WHERE es.student_id = $1
		 ORDER BY es.started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.StudentResult
	for rows.Next() {
		var res model.StudentResult
		if err := rows.Scan(&res.ExamID, &res.ExamTitle, &res.State, &res.StartedAt, &res.FinishedAt, &res.Score, &res.IsApproved); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByExam retrieves all student results for an exam with pagination.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ExamResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, TRIM(u.first_name || ' ' || u.last_name),
		        es.state, es.score, es.is_approved, es.started_at, es.finished_at
		 FROM exam_sessions es
		 JOIN users u ON u.id = es.student_id
		 WHERE es.exam_id = $1
		 ORDER BY u.last_name, u.first_name, u.id
		 LIMIT $2 OFFSET $3`, examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var res model.ExamResult
		if err := rows.Scan(&res.StudentID, &res.Email, &res.Name,
			&res.State, &res.Score, &res.IsApproved, &res.StartedAt, &res.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// Approve marks a session's result as visible to its student.
func (r *ExamSessionRepository) Approve(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	row := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions SET is_approved = TRUE, updated_at = NOW()
		 WHERE exam_id = $1 AND student_id = $2
		 RETURNING `+sessionColumns, examID, studentID)
	if err := scanSession(row, s); err != nil {
		return nil, err
	}
	return s, nil
}
