package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
)

// ErrSessionNotFinished is returned when approving an attempt still in progress.
var ErrSessionNotFinished = errors.New("exam session is not finished")

// ResultRepository reads and approves stored attempts.
type ResultRepository interface {
	ListByStudent(ctx context.Context, studentID int) ([]model.StudentResult, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ExamResult, int, error)
	Approve(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error)
}

// ResultService exposes finished attempts to students and staff.
type ResultService struct {
	results  ResultRepository
	sessions SessionStore
	log      zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultRepository, sessions SessionStore, log zerolog.Logger) *ResultService {
	return &ResultService{
		results:  results,
		sessions: sessions,
		log:      log.With().Str("component", "result_service").Logger(),
	}
}

// ListForStudent returns the student's attempts; scores stay hidden until approved.
func (s *ResultService) ListForStudent(ctx context.Context, studentID int) ([]model.StudentResult, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("list student results", err)
	}
	for i := range results {
		if !results[i].IsApproved {
			results[i].Score = nil
		}
	}
	if results == nil {
		results = []model.StudentResult{}
	}
	return results, nil
}

// ListForExam pages through every attempt of an exam.
func (s *ResultService) ListForExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.ExamResult, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	results, total, err := s.results.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, storeErr("list exam results", err)
	}
	if results == nil {
		results = []model.ExamResult{}
	}
	return results, newPagination(page, perPage, total), nil
}

// Approve publishes a finished attempt's score to its student.
func (s *ResultService) Approve(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.sessions.GetExamSession(ctx, studentID, examID)
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if sess.State != model.SessionStateFinished {
		return nil, ErrSessionNotFinished
	}

	approved, err := s.results.Approve(ctx, studentID, examID)
	if err != nil {
		return nil, storeErr("approve result", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Msg("Result approved")
	return approved, nil
}
