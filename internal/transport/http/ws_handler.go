package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Maf1ck/kahoot-beck/internal/app"
	"github.com/Maf1ck/kahoot-beck/internal/domain"
)

type WSHandler struct {
	engine   *app.Engine
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, hub *Hub) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
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

type createGamePayload struct {
	SetID     string            `json:"setId,omitempty"`
	Questions []domain.Question `json:"questions,omitempty"`
}

type codePayload struct {
	Code string `json:"code"`
}

type joinGamePayload struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

type submitAnswerPayload struct {
	Code        string `json:"code"`
	AnswerIndex int    `json:"answerIndex"`
	TimeLeft    int    `json:"timeLeft"`
}

// ServeWS upgrades the request and pumps inbound events into the engine.
// Each connection gets a fresh ID for its lifetime; closing the socket is the
// disconnect signal.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connectionID := uuid.NewString()
	cl := h.hub.register(connectionID)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for data := range cl.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, connectionID, inbound)
	}

	h.engine.HandleDisconnect(connectionID)
	h.hub.unregister(connectionID)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, connectionID string, inbound inboundMessage) {
	switch inbound.Type {
	case "create_game":
		var payload createGamePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connectionID, "invalid create_game payload")
			return
		}
		if payload.SetID != "" {
			_, _ = h.engine.CreateGameFromSet(r.Context(), connectionID, payload.SetID)
			return
		}
		_, _ = h.engine.CreateGame(connectionID, payload.Questions)
	case "join_game":
		var payload joinGamePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connectionID, "invalid join_game payload")
			return
		}
		_ = h.engine.JoinGame(payload.Code, connectionID, payload.Nickname)
	case "start_game":
		var payload codePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connectionID, "invalid start_game payload")
			return
		}
		h.engine.StartGame(payload.Code, connectionID)
	case "next_question":
		var payload codePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connectionID, "invalid next_question payload")
			return
		}
		h.engine.NextQuestion(payload.Code, connectionID)
	case "show_results":
		var payload codePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connectionID, "invalid show_results payload")
			return
		}
		h.engine.ShowResults(payload.Code, connectionID)
	case "submit_answer":
		var payload submitAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connectionID, "invalid submit_answer payload")
			return
		}
		h.engine.SubmitAnswer(payload.Code, connectionID, payload.AnswerIndex, payload.TimeLeft)
	default:
		h.sendError(connectionID, "unsupported message type")
	}
}

func (h *WSHandler) sendError(connectionID, message string) {
	h.hub.ToConnection(connectionID, domain.EventError, domain.ErrorPayload{Message: message})
}
