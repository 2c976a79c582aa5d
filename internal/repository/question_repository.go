package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, exam_id, text, question_type, points, order_num, audio_url, image_url, created_at, updated_at`

// GetQuestion retrieves a question by ID.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.Text, &q.Type, &q.Points, &q.OrderNum, &q.AudioURL, &q.ImageURL, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestionsForExam retrieves all questions of an exam in the requested order.
// uuid byte order matches the canonical string order used by model.Question.Before.
func (r *QuestionRepository) ListQuestionsForExam(ctx context.Context, examID uuid.UUID, orderBy model.QuestionOrder) ([]model.Question, error) {
	order := ` ORDER BY order_num, id`
	if orderBy == model.OrderByID {
		order = ` ORDER BY id`
	}

	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE exam_id = $1`+order, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Type, &q.Points, &q.OrderNum, &q.AudioURL, &q.ImageURL, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateQuestion inserts a new question.
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, text, question_type, points, order_num, audio_url, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		q.ExamID, q.Text, q.Type, q.Points, q.OrderNum, q.AudioURL, q.ImageURL,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// UpdateQuestion modifies a question.
func (r *QuestionRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET text = $1, question_type = $2, points = $3, order_num = $4,
		     audio_url = $5, image_url = $6, updated_at = NOW()
		 WHERE id = $7
		 RETURNING updated_at`,
		q.Text, q.Type, q.Points, q.OrderNum, q.AudioURL, q.ImageURL, q.ID,
	).Scan(&q.UpdatedAt)
}
