package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "summary", "status", "program", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// SummaryMessage é enviada a cada dataset adquirido
type SummaryMessage struct {
	WebSocketMessage
	Summary DatasetSummary `json:"summary"`
}

// StatusMessage é uma mensagem específica para atualizações de status
type StatusMessage struct {
	WebSocketMessage
	Status     string `json:"status"`
	LastError  string `json:"lastError,omitempty"`
	ErrorCount int    `json:"errorCount,omitempty"`
	Program    int    `json:"program"`
}

// ProgramMessage carrega a configuração resolvida do programa ativo
type ProgramMessage struct {
	WebSocketMessage
	Program ProgramInfo `json:"program"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string      `json:"type"`             // Tipo de comando: "get_status", "get_program", "ping"
	Params interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string      `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command  string      `json:"command"`
	Params   interface{} `json:"params,omitempty"`
	ClientID string      `json:"-"`
}

// PingMessage representa um ping enviado pelo servidor
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"` // Timestamp em milissegundos
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
