package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"stageflow/internal/session"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// scenePayload tells the host which scene to display.
type scenePayload struct {
	Stage string `json:"stage"`
	From  string `json:"from,omitempty"`
	Game  string `json:"game,omitempty"`
	Lobby bool   `json:"lobby"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.manager.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	send := make(chan []byte, 16)

	// Writer goroutine: send messages from the channel to the websocket
	go func() {
		for {
			select {
			case msg := <-send:
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Bridge stage transitions into the send channel
	transitions := sess.Subscribe()
	defer sess.Unsubscribe(transitions)
	go func() {
		for tr := range transitions {
			sendWSMsg(send, "scene", scenePayload{
				Stage: tr.To,
				From:  tr.From,
				Game:  tr.Game,
				Lobby: tr.Lobby,
			})
		}
	}()

	// Current position first, so the host can sync its scene
	cur, state := sess.Current()
	initial := scenePayload{Stage: cur, Lobby: state == session.StateAtLobby}
	if game, ok := s.resolver.ResolveGame(cur); ok {
		initial.Game = game
	}
	sendWSMsg(send, "scene", initial)

	// Reader loop: handle triggers from the host
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: "invalid message"})
			continue
		}
		s.handleWSMessage(sess, send, msg)
	}

	log.Printf("watcher disconnected from session %s", id)
}

func (s *Server) handleWSMessage(sess *session.Session, send chan []byte, msg WSMessage) {
	switch msg.Type {
	case "complete":
		action, err := s.manager.Complete(sess.ID)
		if err != nil {
			sendWSMsg(send, "error", errorPayload{Message: err.Error()})
			return
		}
		// The transition itself arrives as a scene message via the
		// subscription; acknowledge the trigger with its outcome.
		sendWSMsg(send, "result", completeView(action))

	case "progress":
		var req progressRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: "invalid progress payload"})
			return
		}
		if req.ElapsedMs < 0 {
			sendWSMsg(send, "error", errorPayload{Message: "elapsedMs must not be negative"})
			return
		}
		elapsed := time.Duration(req.ElapsedMs) * time.Millisecond
		if err := s.manager.RecordProgress(sess.ID, elapsed, req.Score); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: err.Error()})
			return
		}
		sendWSMsg(send, "result", map[string]string{"status": "recorded"})

	default:
		sendWSMsg(send, "error", errorPayload{Message: "unknown message type: " + msg.Type})
	}
}

func sendWSMsg(send chan []byte, msgType string, payload any) {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	select {
	case send <- msg:
	default:
	}
}
