package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/middleware"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
	ws "github.com/stemsi/exam-session-engine/internal/websocket"
)

// actionTimeout bounds each engine call made on behalf of a socket message.
const actionTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an exam attempt over a WebSocket. Every action runs the
// same engine operation as its HTTP counterpart.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket for answering, timer checks and finishing.
// The attempt must already be started over HTTP.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	studentID := claims.UserID
	state, err := h.sessionService.State(c.Request.Context(), studentID, examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if state == model.SessionStateNotStarted {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	ctx := c.Request.Context()
	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if err := h.dispatch(ctx, conn, wsLog, studentID, examID, &msg); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			return
		}
	}
}

// dispatch runs one client action. The returned error is a write failure;
// engine errors are reported to the client as error events.
func (h *WSHandler) dispatch(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, studentID int, examID uuid.UUID, msg *ws.Request) error {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	switch msg.Action {
	case ws.ActionAnswer:
		questionID, err := uuid.Parse(msg.QuestionID)
		if err != nil {
			return writeCode(conn, response.ErrInvalidID)
		}
		res, err := h.sessionService.SubmitAnswer(ctx, studentID, examID, questionID,
			service.AnswerPayload{ChoiceID: msg.ChoiceID, Text: msg.TextAnswer})
		if err != nil {
			return h.writeError(conn, log, err)
		}
		return ws.WriteTyped(conn, ws.AnsweredResponse{
			Event:     ws.EventAnswered,
			Answer:    res.Answer,
			Next:      res.Next,
			Exhausted: res.Exhausted,
		})

	case ws.ActionRemaining:
		remaining, err := h.sessionService.GetRemainingTime(ctx, studentID, examID)
		if err != nil {
			return h.writeError(conn, log, err)
		}
		return ws.WriteTyped(conn, ws.RemainingResponse{
			Event:            ws.EventRemaining,
			RemainingSeconds: remaining.Seconds(),
		})

	case ws.ActionFinish:
		sess, err := h.sessionService.FinishSession(ctx, studentID, examID)
		if err != nil {
			return h.writeError(conn, log, err)
		}
		log.Info().Msg("Exam finished over socket")
		return ws.WriteTyped(conn, ws.FinishedResponse{
			Event:   ws.EventFinished,
			Session: studentView(sess),
		})

	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return writeCode(conn, response.ErrInvalidPayload)
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, log zerolog.Logger, err error) error {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Socket action failed")
	}
	return writeCode(conn, code)
}

func writeCode(conn *websocket.Conn, code response.ErrCode) error {
	return ws.WriteError(conn, string(code), response.GetMessage(code))
}
