package websocket

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"lvdt_go/pkg/logger"

	"github.com/gorilla/websocket"
)

// Upgrader específico para WebSocket com configurações de segurança
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Handler gerencia conexões WebSocket
type Handler struct {
	hub *Hub
}

// NewHandler cria um novo gerenciador de WebSocket
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
	}
}

// ServeHTTP implementa a interface http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWebSocket(w, r)
}

// HandleWebSocket gerencia requisições WebSocket
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("Erro ao fazer upgrade para WebSocket: %v", err)
		return
	}

	userAgent := r.UserAgent()
	ipAddress := getIPAddress(r)

	logger.Infof("Nova conexão WebSocket de %s (%s)", ipAddress, userAgent)

	client := newClient(h.hub, conn, userAgent, ipAddress)

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// checkOrigin verifica a origem da requisição WebSocket
func checkOrigin(r *http.Request) bool {
	// Aceita todas as origens (rede local da planta)
	return true
}

// getIPAddress extrai o endereço IP do cliente (primeiro salto de
// X-Forwarded-For)
func getIPAddress(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetHealthHandler retorna o estado do hub e da aquisição. Responde 503
// depois do Shutdown do hub.
func (h *Handler) GetHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{
			Status:    "ok",
			Clients:   h.hub.ClientCount(),
			Timestamp: time.Now(),
		}

		if p := h.hub.currentProvider(); p != nil {
			status.Acquisition = p.GetStatus().Status
		}
		if last := h.hub.LastSummary(); last != nil {
			status.LastSummary = &last.EndTime
		}

		code := http.StatusOK
		if h.hub.ctx.Err() != nil {
			status.Status = "closed"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}
}

type healthStatus struct {
	Status      string     `json:"status"`
	Clients     int        `json:"clients"`
	Acquisition string     `json:"acquisition,omitempty"`
	LastSummary *time.Time `json:"lastSummary,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}
