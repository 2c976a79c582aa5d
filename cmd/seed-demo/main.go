package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exam-session-engine/internal/config"
	"github.com/stemsi/exam-session-engine/internal/database"
	"github.com/stemsi/exam-session-engine/internal/logger"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/repository"
	"github.com/stemsi/exam-session-engine/internal/service"
	"github.com/stemsi/exam-session-engine/internal/worker"
)

const demoPassword = "password123"

type demoQuestion struct {
	text    string
	qt      model.QuestionType
	points  int
	choices []string
	correct int
}

var demoQuestions = []demoQuestion{
	{"What is 2 + 2?", model.QuestionTypeMCQ, 2, []string{"3", "4", "5"}, 1},
	{"Which planet is closest to the sun?", model.QuestionTypeMCQ, 2, []string{"Venus", "Earth", "Mercury"}, 2},
	{"Pick the prime number.", model.QuestionTypeMCQ, 1, []string{"9", "15", "7", "21"}, 2},
	{"Explain photosynthesis in two sentences.", model.QuestionTypeEssay, 5, nil, -1},
}

func main() {
	students := flag.Int("students", 50, "Number of demo students to create")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, userRepo, rdb, log)
	catalogService := service.NewCatalogService(repository.NewCatalogRepository(pool), worker.NewRescoreQueue(rdb), log)

	fmt.Println("=== Seeding demo exam ===")

	instructor := &model.User{
		Email:     "instructor@example.com",
		FirstName: "Demo",
		LastName:  "Instructor",
		Role:      model.RoleInstructor,
	}
	if err := ensureUser(ctx, authService, userRepo, instructor); err != nil {
		log.Fatal().Err(err).Msg("Failed to create instructor")
	}

	now := time.Now()
	exam := &model.Exam{
		Title:           "Demo Exam",
		Description:     "Seeded by seed-demo",
		InstructorID:    instructor.ID,
		StartTime:       now,
		EndTime:         now.Add(7 * 24 * time.Hour),
		DurationMinutes: 60,
	}
	if err := catalogService.CreateExam(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	for i, dq := range demoQuestions {
		q, err := catalogService.AddQuestion(ctx, exam.ID, &model.AddQuestionRequest{
			Text:     dq.text,
			Type:     string(dq.qt),
			Points:   dq.points,
			OrderNum: i + 1,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add question")
		}
		for j, text := range dq.choices {
			if _, err := catalogService.AddChoice(ctx, q, &model.AddChoiceRequest{Text: text, IsCorrect: j == dq.correct}); err != nil {
				log.Fatal().Err(err).Msg("Failed to add choice")
			}
		}
	}
	fmt.Printf("Created exam %s with %d questions\n", exam.ID, len(demoQuestions))

	successCount := 0
	for i := 1; i <= *students; i++ {
		u := &model.User{
			Email:     fmt.Sprintf("student%02d@example.com", i),
			FirstName: "Student",
			LastName:  fmt.Sprintf("%02d", i),
			Role:      model.RoleStudent,
		}
		if err := ensureUser(ctx, authService, userRepo, u); err != nil {
			log.Error().Err(err).Str("email", u.Email).Msg("Failed to create student")
			continue
		}
		successCount++
	}

	fmt.Printf("=== Finished: %d students ready, password %q ===\n", successCount, demoPassword)
}

// ensureUser creates u, or loads it when the email is already registered.
func ensureUser(ctx context.Context, auth *service.AuthService, users *repository.UserRepository, u *model.User) error {
	err := auth.CreateUser(ctx, u, demoPassword)
	if errors.Is(err, service.ErrEmailTaken) {
		existing, err := users.GetByEmail(ctx, u.Email)
		if err != nil {
			return err
		}
		*u = *existing
		return nil
	}
	return err
}
