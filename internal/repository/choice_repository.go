package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// ChoiceRepository handles choice data access.
type ChoiceRepository struct {
	pool *pgxpool.Pool
}

// NewChoiceRepository creates a new ChoiceRepository.
func NewChoiceRepository(pool *pgxpool.Pool) *ChoiceRepository {
	return &ChoiceRepository{pool: pool}
}

// GetChoice retrieves a choice by ID.
func (r *ChoiceRepository) GetChoice(ctx context.Context, id uuid.UUID) (*model.Choice, error) {
	c := &model.Choice{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_id, text, is_correct FROM choices WHERE id = $1`, id,
	).Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListChoicesForQuestion retrieves a question's choices ordered by id.
func (r *ChoiceRepository) ListChoicesForQuestion(ctx context.Context, questionID uuid.UUID) ([]model.Choice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct FROM choices
		 WHERE question_id = $1
		 ORDER BY id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var choices []model.Choice
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// CreateChoice inserts a new choice.
func (r *ChoiceRepository) CreateChoice(ctx context.Context, c *model.Choice) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO choices (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
		c.QuestionID, c.Text, c.IsCorrect,
	).Scan(&c.ID)
}

// UpdateChoice modifies a choice.
func (r *ChoiceRepository) UpdateChoice(ctx context.Context, c *model.Choice) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE choices SET text = $1, is_correct = $2 WHERE id = $3`,
		c.Text, c.IsCorrect, c.ID)
	return err
}
