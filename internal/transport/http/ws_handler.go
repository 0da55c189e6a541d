package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quizhub-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message    string   `json:"message"`
	Unanswered []string `json:"unanswered,omitempty"`
}

// ServeWS streams session events of one attempt and accepts select, navigate and
// submit commands. The subscription ends when the attempt is discarded.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	who := IdentityFrom(r.Context())

	updates, cancel, err := h.service.Subscribe(r.Context(), who, attemptID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.String("attempt_id", attemptID), zap.Error(err))
		return
	}
	defer conn.Close()
	// Server read/write timeouts must not apply to the long-lived connection.
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("attempt_id", attemptID), zap.Error(err))
				return
			}
			if msg.Type == "closed" {
				_ = conn.Close()
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					select {
					case send <- outboundMessage[any]{Type: "closed", Payload: nil}:
					case <-closeSignals:
					case <-writerDone:
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: ev}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, who, attemptID, inbound); err != nil {
			if !push(outboundMessage[any]{Type: "error", Payload: wsError(err)}) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound command. Successful commands are answered by the
// event they cause.
func (h *Handler) dispatch(r *http.Request, who domain.Identity, attemptID string, in inboundMessage) error {
	ctx := r.Context()
	switch in.Type {
	case "select":
		var req selectRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.Select(ctx, who, attemptID, req.QuestionID, req.OptionID)
		return err
	case "navigate":
		var req navigateRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return errInvalidPayload
		}
		_, err := h.move(r, attemptID, req)
		return err
	case "submit":
		_, err := h.service.Submit(ctx, who, attemptID)
		return err
	default:
		return errUnsupportedMessage
	}
}

func wsError(err error) errorPayload {
	payload := errorPayload{Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		payload.Unanswered = verr.Unanswered
	}
	return payload
}
