package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type    string `json:"type"` // "ask"
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type        string   `json:"type"` // "answer" or "error"
	Content     string   `json:"content"`
	ContentHTML string   `json:"content_html,omitempty"`
	Model       string   `json:"model,omitempty"`
	Sources     []string `json:"sources,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}
		if req.Type != "ask" {
			s.sendWSError(conn, "unknown message type: "+req.Type)
			continue
		}
		if req.Content == "" {
			s.sendWSError(conn, "content is required")
			continue
		}

		answer, err := s.service.Ask(r.Context(), req.Content, req.Model)
		if err != nil {
			status, msg := publicError(err)
			if status == http.StatusInternalServerError {
				log.Printf("server: ws ask: %v", err)
			}
			s.sendWSError(conn, msg)
			continue
		}
		s.sendWS(conn, wsResponse{
			Type:        "answer",
			Content:     answer.Answer,
			ContentHTML: renderMarkdown(answer.Answer),
			Model:       answer.Model,
			Sources:     answer.Sources,
		})
	}
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, message string) {
	s.sendWS(conn, wsResponse{Type: "error", Content: message})
}
