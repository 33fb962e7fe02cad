package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/mavericks-edu/mavericks-backend/internal/middleware"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
	"github.com/mavericks-edu/mavericks-backend/internal/session"
	ws "github.com/mavericks-edu/mavericks-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// wsConn serializes writes to one WebSocket connection. Controller callbacks
// fire from timer goroutines while the read loop answers actions, and gorilla
// connections allow only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = ws.WriteTyped(w.conn, v)
}

func (w *wsConn) sendError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = ws.WriteError(w.conn, msg)
}

// WSHandler handles the WebSocket session stream.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/portal/challenges/:challenge_id/stream
// Attaches the participant's browser to its server-side session. The stream
// carries autosaves and proctoring signals upward and ticks, warnings, phase
// changes and grades downward. The session keeps running if the socket drops.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	participantID := claims.UserID

	ctrl, sess, err := h.sessionService.Controller(c.Request.Context(), challengeID, participantID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventOver), errors.Is(err, session.ErrEventEnded):
			ws.WriteError(conn, "event has ended")
		default:
			ws.WriteError(conn, "no active session for this challenge")
		}
		return
	}

	wc := &wsConn{conn: conn}
	wsLog := h.log.With().
		Int("participant_id", participantID).
		Str("challenge_id", challengeID.String()).
		Str("session_id", sess.ID.String()).
		Logger()

	wsLog.Info().Str("phase", string(ctrl.Phase())).Msg("Participant connected")

	// Phase transitions can finish the session from a timer goroutine, so the
	// terminal notification has to reach the read loop through the connection.
	ctrl.SetEvents(session.Events{
		OnTick: func(phase model.Phase, remaining int) {
			wc.send(ws.TickResponse{Event: ws.EventTick, Phase: string(phase), RemainingSeconds: remaining})
		},
		OnWarning: func(count, max int) {
			wc.send(ws.WarningResponse{Event: ws.EventWarning, Count: count, MaxWarnings: max})
		},
		OnDeterrent: func(sig session.Signal) {
			wc.send(ws.DeterrentResponse{Event: ws.EventDeterrent, Signal: string(sig)})
		},
		OnPhaseChange: func(phase model.Phase) {
			wc.send(ws.PhaseResponse{Event: ws.EventPhase, Phase: string(phase)})
			if phase.Terminal() {
				h.sessionService.Release(sess.ID)
				wc.mu.Lock()
				_ = conn.Close()
				wc.mu.Unlock()
			}
		},
		OnQuizGraded: func(score float64) {
			wc.send(ws.GradedResponse{Event: ws.EventGraded, Phase: string(model.PhaseQuiz), Score: score})
		},
		OnCodingGraded: func(score float64) {
			wc.send(ws.GradedResponse{Event: ws.EventGraded, Phase: string(model.PhaseCoding), Score: score})
		},
		OnEventEnded: func() {
			wc.send(ws.EventEndedResponse{Event: ws.EventEventEnded})
		},
		OnPersistError: func(err error) {
			wsLog.Error().Err(err).Msg("Deferred persistence failure")
		},
	})
	defer ctrl.SetEvents(session.Events{})

	// Late joiners and reconnects need the current clock immediately.
	wc.send(ws.TickResponse{Event: ws.EventTick, Phase: string(ctrl.Phase()), RemainingSeconds: ctrl.RemainingSeconds()})

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			wc.sendError("malformed message")
			continue
		}

		switch env.Action {
		case ws.ActionAnswer:
			h.handleAnswer(wc, ctrl, sess, raw)
		case ws.ActionCode:
			h.handleCode(wc, ctrl, sess, raw)
		case ws.ActionSignal:
			h.handleSignal(wc, ctrl, sess, raw)
		case ws.ActionSubmit:
			h.handleSubmit(wc, wsLog, ctrl)
		case ws.ActionPing:
			wc.send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			wc.sendError("unknown action: " + string(env.Action))
		}
	}
}

// handleAnswer records a quiz answer in the controller and autosaves it.
func (h *WSHandler) handleAnswer(wc *wsConn, ctrl *session.Controller, sess *model.Session, raw json.RawMessage) {
	var msg ws.AnswerRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.QID == "" || msg.Answer == "" {
		wc.sendError("q_id and ans are required")
		return
	}

	// SECURITY: Validate QID is a well-formed UUID to prevent Redis key injection.
	if _, err := uuid.Parse(msg.QID); err != nil {
		wc.sendError("invalid q_id format")
		return
	}

	if err := ctrl.SelectAnswer(msg.QID, msg.Answer); err != nil {
		wc.sendError("phase is not accepting answers")
		return
	}

	h.sessionService.AutosaveAnswer(context.Background(), sess, msg.QID, msg.Answer)
	wc.send(ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

// handleCode autosaves the coding draft.
func (h *WSHandler) handleCode(wc *wsConn, ctrl *session.Controller, sess *model.Session, raw json.RawMessage) {
	var msg ws.CodeRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Language == "" {
		wc.sendError("language and code are required")
		return
	}

	if err := ctrl.UpdateCode(msg.Language, msg.Code); err != nil {
		wc.sendError("phase is not accepting code")
		return
	}

	h.sessionService.AutosaveCode(context.Background(), sess, msg.Language, msg.Code)
	wc.send(ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

// handleSignal forwards a proctoring signal to the monitor and the audit queue.
func (h *WSHandler) handleSignal(wc *wsConn, ctrl *session.Controller, sess *model.Session, raw json.RawMessage) {
	var msg ws.SignalRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Signal == "" {
		wc.sendError("signal is required")
		return
	}

	sig := session.Signal(msg.Signal)
	switch sig {
	case session.SignalTabHidden, session.SignalWindowBlur,
		session.SignalContextMenu, session.SignalClipboard,
		session.SignalDevtools, session.SignalDragDrop:
	default:
		wc.sendError("unknown signal: " + msg.Signal)
		return
	}

	h.sessionService.EnqueueViolation(context.Background(), sess, sig)
	ctrl.ReportSignal(sig)
}

// handleSubmit closes whichever phase the session is currently in.
func (h *WSHandler) handleSubmit(wc *wsConn, wsLog zerolog.Logger, ctrl *session.Controller) {
	ctx := context.Background()

	var err error
	switch phase := ctrl.Phase(); phase {
	case model.PhaseQuiz:
		err = ctrl.SubmitQuiz(ctx, session.TriggerManual)
	case model.PhaseCoding:
		err = ctrl.SubmitCoding(ctx, session.TriggerManual)
	default:
		wc.sendError("nothing to submit in phase " + string(phase))
		return
	}

	if err != nil {
		wsLog.Warn().Err(err).Msg("Submit rejected")
		wc.sendError("submit rejected")
	}
}
