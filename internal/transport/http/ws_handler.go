package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"talent-assessment-service/internal/app"
	"talent-assessment-service/internal/domain"
)

// ExamOptions configures candidate exam sockets. Tick is how often the
// countdown is pushed to the candidate.
type ExamOptions struct {
	Config app.ExamConfig
	Tick   time.Duration
}

type WSHandler struct {
	manager  *app.SessionManager
	opts     ExamOptions
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(manager *app.SessionManager, opts ExamOptions, log zerolog.Logger) *WSHandler {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	return &WSHandler{
		manager: manager,
		opts:    opts,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

// ServeExam resolves a handoff locator and runs the candidate exam over a websocket.
func (h *WSHandler) ServeExam(w http.ResponseWriter, r *http.Request) {
	locator := r.URL.Query().Get("locator")
	if locator == "" {
		http.Error(w, "missing locator", http.StatusBadRequest)
		return
	}
	session, err := h.manager.ResolveHandoffLink(locator)
	if err != nil {
		writeError(w, http.StatusNotFound, reasonFor(err), domain.ErrNoActiveAssessment)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().Str("session_id", session.ID).Logger()
	exam := app.NewExam(h.manager, session, h.opts.Config)
	ctx := r.Context()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.opts.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if exam.Phase() != app.PhaseInProgress {
					continue
				}
				view, submitted, err := exam.Tick(ctx)
				msg := outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: view.RemainingSeconds}}
				switch {
				case err != nil:
					log.Error().Err(err).Msg("auto-submit failed")
					msg = errorMessage(err)
				case submitted:
					log.Info().Msg("exam auto-submitted on expiry")
					msg = outboundMessage[any]{Type: "finished", Payload: view}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "exam", Payload: exam.View()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		var (
			view app.ExamView
			err  error
			kind = "exam"
		)
		switch inbound.Type {
		case "consent":
			view, err = exam.Accept(ctx)
		case "answer":
			var payload answerPayload
			if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Code: "bad_payload"}}
				continue
			}
			view, err = exam.Answer(payload.QuestionID, payload.Text)
		case "goto":
			var payload gotoPayload
			if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid goto payload", Code: "bad_payload"}}
				continue
			}
			view, err = exam.Goto(payload.Index)
		case "next":
			view, err = exam.Next()
		case "prev":
			view, err = exam.Prev()
		case "submit":
			view, err = exam.Submit(ctx)
			kind = "finished"
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Code: "unsupported"}}
			continue
		}
		if err != nil {
			log.Debug().Err(err).Str("type", inbound.Type).Msg("exam action rejected")
			send <- errorMessage(err)
			continue
		}
		if kind == "finished" {
			log.Info().Msg("exam submitted")
		}
		send <- outboundMessage[any]{Type: kind, Payload: view}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Code: reasonFor(err)}}
}
