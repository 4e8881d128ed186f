package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/recode/internal/recognizer"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// WebSocket message types.
const (
	wsTypeDecode = "decode"
	wsTypeInfo   = "info"
)

// WebSocketDecodeRequest is one client message. Decode requests carry a
// matrix in the same shape as LineRequest.
type WebSocketDecodeRequest struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Classes int         `json:"classes,omitempty"`
	Outputs [][]float32 `json:"outputs,omitempty"`
}

// WebSocketDecodeResponse is one server message. A decode request is
// answered by a "processing" message followed by "completed" or "error".
type WebSocketDecodeResponse struct {
	Type      string                 `json:"type"`
	Status    string                 `json:"status"` // processing, completed, error
	RequestID string                 `json:"request_id,omitempty"`
	Result    *recognizer.LineResult `json:"result,omitempty"`
	Model     *recognizer.ModelInfo  `json:"model,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorType string                 `json:"error_type,omitempty"`
}

// WebSocketConnWriter is the write side of a connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

var wsRequestSeq atomic.Uint64

// decodeWebSocketHandler upgrades the connection and serves decode requests
// until the client goes away.
func (s *Server) decodeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.serveWebSocket(r.Context(), conn)
	slog.Debug("WebSocket connection closed", "remote_addr", r.RemoteAddr)
}

func (s *Server) serveWebSocket(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage answers one text message on conn.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketDecodeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	id := req.ID
	if id == "" {
		id = strconv.FormatUint(wsRequestSeq.Add(1), 10)
	}

	switch req.Type {
	case wsTypeDecode:
		s.processWebSocketDecode(ctx, conn, req, id)
	case wsTypeInfo:
		if s.recognizer == nil {
			s.sendWebSocketError(conn, id, "unavailable", "Recognizer not initialized")
			return
		}
		info := s.recognizer.Model().Info()
		s.sendWebSocketResponse(conn, WebSocketDecodeResponse{
			Type: "info_response", Status: "completed", RequestID: id, Model: &info,
		})
	default:
		s.sendWebSocketError(conn, id, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

func (s *Server) processWebSocketDecode(ctx context.Context, conn WebSocketConnWriter, req WebSocketDecodeRequest, id string) {
	if s.recognizer == nil {
		s.sendWebSocketError(conn, id, "unavailable", "Recognizer not initialized")
		return
	}
	m, err := matrixFromLine(LineRequest{Classes: req.Classes, Outputs: req.Outputs})
	if err != nil {
		s.sendWebSocketError(conn, id, "invalid_request", fmt.Sprintf("Invalid matrix: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketDecodeResponse{Type: "decode_response", Status: "processing", RequestID: id})

	res, err := s.decodeLine(ctx, m, transportWebSocket)
	if err != nil {
		s.sendWebSocketError(conn, id, "processing_error", fmt.Sprintf("Decode failed: %v", err))
		return
	}
	if res.Error != "" {
		s.sendWebSocketError(conn, id, "processing_error", res.Error)
		return
	}
	s.sendWebSocketResponse(conn, WebSocketDecodeResponse{
		Type: "decode_response", Status: "completed", RequestID: id, Result: res,
	})
}

// sendWebSocketResponse writes response as a text message.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketDecodeResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, id, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketDecodeResponse{
		Type:      "error",
		Status:    "error",
		RequestID: id,
		Error:     message,
		ErrorType: errorType,
	})
}
