package repository

import "github.com/jackc/pgx/v5/pgxpool"

// CatalogRepository groups the exam, question and choice tables.
type CatalogRepository struct {
	*ExamRepository
	*QuestionRepository
	*ChoiceRepository
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{
		ExamRepository:     NewExamRepository(pool),
		QuestionRepository: NewQuestionRepository(pool),
		ChoiceRepository:   NewChoiceRepository(pool),
	}
}
