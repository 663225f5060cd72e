package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tero-session/errors"
	"tero-session/services"
)

// inbound is the envelope clients send over the socket. Which fields
// matter depends on the action.
type inbound struct {
	Action   string `json:"action"`
	GameKey  string `json:"game_key"`
	Token    string `json:"token"`
	Round    string `json:"round"`
	Question string `json:"question"`
	Count    int    `json:"count"`
}

type initiateRequest struct {
	GameType string          `json:"game_type"`
	GameKey  string          `json:"game_key"`
	Payload  json.RawMessage `json:"payload"`
}

// Handler is the HTTP surface: session creation plus the two websocket
// endpoints. It owns no game logic; every action is handed straight to a
// service and every failure is mapped to a user message for the caller.
type Handler struct {
	log      *slog.Logger
	hub      *Hub
	sessions *services.SessionService
	spin     *services.SpinService
	quiz     *services.QuizService
	upgrader websocket.Upgrader
}

func NewHandler(
	log *slog.Logger,
	h *Hub,
	sessions *services.SessionService,
	spin *services.SpinService,
	quiz *services.QuizService,
) *Handler {
	return &Handler{
		log:      log,
		hub:      h,
		sessions: sessions,
		spin:     spin,
		quiz:     quiz,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Game keys gate access, not origins: the frontend is served
			// from a different domain than this service.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/initiate", h.initiate)
	mux.HandleFunc("/spin", h.spinSocket)
	mux.HandleFunc("/quiz", h.quizSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	var req initiateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.sessions.Initiate(req.GameType, req.GameKey, req.Payload); err != nil {
		switch errors.Code(err) {
		case errors.KeyExists:
			http.Error(w, "Game key in use", http.StatusConflict)
		case errors.Json, errors.NullReference:
			http.Error(w, "Invalid payload", http.StatusBadRequest)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("Game initialized"))
}

func (h *Handler) spinSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade spin connection", "error", err)
		return
	}

	connID := uuid.NewString()
	h.hub.Register(connID, conn)
	defer func() {
		h.spin.Unbind(connID)
		h.hub.Unregister(connID)
	}()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		var actionErr error
		switch msg.Action {
		case "add_user":
			actionErr = h.spin.Bind(connID, msg.GameKey, msg.Token)
		case "add_round":
			actionErr = h.spin.AddRound(msg.GameKey, msg.Round)
		case "start_game":
			actionErr = h.spin.StartGame(connID, msg.GameKey)
		case "next_round":
			actionErr = h.spin.NextRound(connID, msg.GameKey)
		case "spin":
			actionErr = h.spin.Spin(connID, msg.GameKey, msg.Count)
		default:
			h.log.Warn("Unknown spin action", "action", msg.Action)
			continue
		}

		if actionErr != nil {
			h.hub.Send(connID, "error", errors.UserMessage(actionErr))
		}
	}
}

func (h *Handler) quizSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade quiz connection", "error", err)
		return
	}

	connID := uuid.NewString()
	h.hub.Register(connID, conn)
	defer func() {
		h.quiz.Unbind(connID)
		h.hub.Unregister(connID)
	}()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		var actionErr error
		switch msg.Action {
		case "add_user":
			actionErr = h.quiz.Bind(connID, msg.GameKey, msg.Token)
		case "add_question":
			actionErr = h.quiz.AddQuestion(msg.GameKey, msg.Question)
		case "start_game":
			actionErr = h.quiz.StartGame(r.Context(), msg.GameKey)
		default:
			h.log.Warn("Unknown quiz action", "action", msg.Action)
			continue
		}

		if actionErr != nil {
			h.hub.Send(connID, "error", errors.UserMessage(actionErr))
		}
	}
}
