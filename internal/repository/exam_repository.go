package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// total_marks is derived so it never drifts from the question points.
const examColumns = `e.id, e.title, e.description, e.instructor_id, e.start_time, e.end_time,
	e.duration_minutes,
	COALESCE((SELECT SUM(q.points) FROM questions q WHERE q.exam_id = e.id), 0),
	e.created_at, e.updated_at`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.InstructorID, &e.StartTime, &e.EndTime,
		&e.DurationMinutes, &e.TotalMarks, &e.CreatedAt, &e.UpdatedAt)
}

// GetExam retrieves an exam by its UUID.
func (r *ExamRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	row := r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams e WHERE e.id = $1`, id)
	if err := scanExam(row, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListExams retrieves exams with pagination.
// Pass instructorID=0 to list every exam.
func (r *ExamRepository) ListExams(ctx context.Context, instructorID, limit, offset int) ([]model.Exam, int, error) {
	where := ""
	var args []any
	if instructorID > 0 {
		where = ` WHERE e.instructor_id = $1`
		args = append(args, instructorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM exams e%s ORDER BY e.start_time DESC, e.id LIMIT $%d OFFSET $%d`,
		examColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// CreateExam inserts a new exam.
func (r *ExamRepository) CreateExam(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, instructor_id, start_time, end_time, duration_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.InstructorID, e.StartTime, e.EndTime, e.DurationMinutes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateExam modifies an existing exam's editable fields.
func (r *ExamRepository) UpdateExam(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, start_time = $3, end_time = $4,
		     duration_minutes = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING updated_at`,
		e.Title, e.Description, e.StartTime, e.EndTime, e.DurationMinutes, e.ID,
	).Scan(&e.UpdatedAt)
}
