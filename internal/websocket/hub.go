package websocket

import (
	"context"
	"sync"
	"time"

	"lvdt_go/internal/models"
	"lvdt_go/pkg/logger"
)

// StateProvider fornece o estado da aquisição para clientes que o solicitam
type StateProvider interface {
	GetStatus() models.LaserStatus
	GetProgramInfo() models.ProgramInfo
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comando recebido dos clientes
	commands chan models.ClientCommand

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	provider    StateProvider
	lastSummary *models.DatasetSummary
	stateLock   sync.RWMutex

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub cria uma nova instância do Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		commands:   make(chan models.ClientCommand, 100),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// SetProvider define a fonte de status e programa
func (h *Hub) SetProvider(p StateProvider) {
	h.stateLock.Lock()
	defer h.stateLock.Unlock()
	h.provider = p
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")
	defer close(h.done)

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			go h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.deliver(message)

		case cmd := <-h.commands:
			go h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()
			mps := h.stats.messagesPerSecond
			total := h.stats.totalMessages
			h.statsLock.Unlock()

			logger.Debugf("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens",
				h.ClientCount(), mps, total)

		case <-pingTicker.C:
			h.sendPingToAllClients()
		}
	}
}

// deliver envia a mensagem a todos os clientes; clientes com a fila cheia
// são desconectados
func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	deadClients := make([]*Client, 0, 4)
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			deadClients = append(deadClients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range deadClients {
		h.removeClient(client)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
	}
}

// sendTo envia uma mensagem a um único cliente, se ele ainda estiver registrado
func (h *Hub) sendTo(client *Client, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- message:
	default:
		logger.Warnf("Fila do cliente %s cheia, mensagem descartada", client.id)
	}
}

func (h *Hub) enqueue(message interface{}, kind string) {
	jsonMessage, err := SerializeMessage(message)
	if err != nil {
		logger.Error("Erro ao serializar mensagem de "+kind, err)
		return
	}
	select {
	case h.broadcast <- jsonMessage:
	case <-h.ctx.Done():
	}
}

// BroadcastSummary envia o resumo de um dataset para todos os clientes
func (h *Hub) BroadcastSummary(summary models.DatasetSummary) {
	h.stateLock.Lock()
	s := summary
	h.lastSummary = &s
	h.stateLock.Unlock()

	h.enqueue(NewSummaryMessage(summary), "resumo")
}

// BroadcastStatus envia atualização de status para todos os clientes
func (h *Hub) BroadcastStatus(status models.LaserStatus) {
	h.enqueue(NewStatusMessage(status), "status")
}

// BroadcastProgram envia o programa ativo para todos os clientes
func (h *Hub) BroadcastProgram(info models.ProgramInfo) {
	h.enqueue(NewProgramMessage(info), "programa")
}

// handleClientCommand processa comandos recebidos dos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Debugf("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	switch cmd.Command {
	case "get_status":
		h.sendCurrentStatus(client)
	case "get_program":
		h.sendCurrentProgram(client)
	case "get_current":
		h.sendLastSummary(client)
	case TypePing:
		h.sendPong(client, cmd.Params)
	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
		if jsonMsg, err := SerializeMessage(NewErrorMessage("Comando desconhecido: "+cmd.Command, "unknown_command")); err == nil {
			h.sendTo(client, jsonMsg)
		}
	}
}

func (h *Hub) currentProvider() StateProvider {
	h.stateLock.RLock()
	defer h.stateLock.RUnlock()
	return h.provider
}

// sendCurrentStatus envia status atual para um cliente específico
func (h *Hub) sendCurrentStatus(client *Client) {
	p := h.currentProvider()
	if p == nil {
		return
	}
	if jsonMsg, err := SerializeMessage(NewStatusMessage(p.GetStatus())); err == nil {
		h.sendTo(client, jsonMsg)
	}
}

// sendCurrentProgram envia o programa ativo para um cliente específico
func (h *Hub) sendCurrentProgram(client *Client) {
	p := h.currentProvider()
	if p == nil {
		return
	}
	if jsonMsg, err := SerializeMessage(NewProgramMessage(p.GetProgramInfo())); err == nil {
		h.sendTo(client, jsonMsg)
	}
}

// LastSummary retorna o último resumo difundido, ou nil
func (h *Hub) LastSummary() *models.DatasetSummary {
	h.stateLock.RLock()
	defer h.stateLock.RUnlock()
	return h.lastSummary
}

// sendLastSummary envia o último resumo recebido, se houver
func (h *Hub) sendLastSummary(client *Client) {
	last := h.LastSummary()
	if last == nil {
		return
	}
	if jsonMsg, err := SerializeMessage(NewSummaryMessage(*last)); err == nil {
		h.sendTo(client, jsonMsg)
	}
}

// sendPong envia resposta de pong para um cliente específico
func (h *Hub) sendPong(client *Client, params interface{}) {
	if jsonMsg, err := SerializeMessage(CreatePongResponse(pingTime(params))); err == nil {
		h.sendTo(client, jsonMsg)
	}
}

// sendInitialDataToClient envia boas-vindas e o status atual a um novo cliente
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := models.WebSocketMessage{
		Type:      TypeWelcome,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":  "Conectado ao servidor LVDT Laser",
			"clientId": client.id,
		},
	}

	if jsonMsg, err := SerializeMessage(welcome); err == nil {
		h.sendTo(client, jsonMsg)
	}
	h.sendCurrentStatus(client)
}

// Shutdown encerra o hub e aguarda o loop principal terminar
func (h *Hub) Shutdown() {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
	}
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}

// sendPingToAllClients envia ping para todos os clientes
func (h *Hub) sendPingToAllClients() {
	if h.ClientCount() == 0 {
		return
	}

	ping := models.PingMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypePing,
			Timestamp: time.Now(),
		},
		Time: time.Now().UnixNano() / int64(time.Millisecond),
	}

	if jsonMsg, err := SerializeMessage(ping); err == nil {
		h.deliver(jsonMsg)
	}
}
