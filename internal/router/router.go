package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exam-session-engine/internal/config"
	"github.com/stemsi/exam-session-engine/internal/handler"
	"github.com/stemsi/exam-session-engine/internal/middleware"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Exam          *handler.ExamHandler
	Result        *handler.ResultHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	requireJWT := middleware.RequireJWT(authService)
	activeLogin := middleware.CheckActiveLogin(authService)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.CacheControl("no-store"))
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/logout", requireJWT, activeLogin, handlers.Auth.Logout)
		auth.GET("/me", requireJWT, activeLogin, handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT + Active Login) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		requireJWT,
		activeLogin,
		middleware.RequirePermission(model.PermissionExamsTake),
		middleware.CacheControl("no-store"),
	)
	{
		studentAPI.POST("/exams/:exam_id/start", handlers.StudentPortal.StartExam)
		studentAPI.GET("/exams/:exam_id/remaining", handlers.StudentPortal.GetRemainingTime)
		studentAPI.GET("/exams/:exam_id/questions/:question_id", handlers.StudentPortal.GetQuestion)
		studentAPI.PUT("/exams/:exam_id/questions/:question_id/answer", handlers.StudentPortal.SubmitAnswer)
		studentAPI.POST("/exams/:exam_id/finish", handlers.StudentPortal.FinishExam)
		studentAPI.GET("/results", handlers.StudentPortal.ListResults)
	}

	// ─── 3. WebSocket Group (Query Token Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		activeLogin,
		middleware.RequirePermission(model.PermissionExamsTake),
	)
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 4. Staff Group (JWT + RBAC, ownership in handlers) ────────────
	staffAPI := router.Group("/api/v1/staff")
	staffAPI.Use(requireJWT, activeLogin)
	{
		readExams := middleware.RequireAnyPermission(
			model.PermissionExamsRead, model.PermissionExamsWriteOwn, model.PermissionExamsWriteAll)
		writeExams := middleware.RequireAnyPermission(
			model.PermissionExamsWriteOwn, model.PermissionExamsWriteAll)
		readResults := middleware.RequireAnyPermission(
			model.PermissionResultsReadOwn, model.PermissionResultsReadAll)
		approveResults := middleware.RequireAnyPermission(
			model.PermissionResultsApproveOwn, model.PermissionResultsApproveAll)

		// Exam management
		staffAPI.GET("/exams", readExams, handlers.Exam.ListExams)
		staffAPI.POST("/exams", writeExams, handlers.Exam.CreateExam)
		staffAPI.GET("/exams/:exam_id", readExams, handlers.Exam.GetExam)
		staffAPI.PUT("/exams/:exam_id", writeExams, handlers.Exam.UpdateExam)
		staffAPI.POST("/exams/:exam_id/rescore", writeExams, handlers.Exam.RescoreExam)

		// Question management
		staffAPI.GET("/exams/:exam_id/questions", readExams, handlers.Exam.ListQuestions)
		staffAPI.POST("/exams/:exam_id/questions", writeExams, handlers.Exam.AddQuestion)
		staffAPI.PUT("/questions/:question_id", writeExams, handlers.Exam.UpdateQuestion)
		staffAPI.POST("/questions/:question_id/choices", writeExams, handlers.Exam.AddChoice)
		staffAPI.PUT("/choices/:choice_id", writeExams, handlers.Exam.UpdateChoice)

		// Results
		staffAPI.GET("/exams/:exam_id/results", readResults, handlers.Result.ListExamResults)
		staffAPI.POST("/exams/:exam_id/results/:student_id/approve", approveResults, handlers.Result.ApproveResult)
	}

	return router
}
