package websocket

import (
	"encoding/json"
	"time"

	"lvdt_go/internal/models"
)

// Tipos de mensagem trocados com os clientes
const (
	TypeWelcome = "welcome"
	TypeSummary = "summary"
	TypeStatus  = "status"
	TypeProgram = "program"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

// NewSummaryMessage cria uma nova mensagem de resumo de dataset
func NewSummaryMessage(summary models.DatasetSummary) *models.SummaryMessage {
	return &models.SummaryMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeSummary,
			Timestamp: time.Now(),
		},
		Summary: summary,
	}
}

// NewStatusMessage cria uma nova mensagem de status
func NewStatusMessage(status models.LaserStatus) *models.StatusMessage {
	return &models.StatusMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeStatus,
			Timestamp: time.Now(),
		},
		Status:     status.Status,
		LastError:  status.LastError,
		ErrorCount: status.ErrorCount,
		Program:    status.Program,
	}
}

// NewProgramMessage cria uma nova mensagem com o programa ativo
func NewProgramMessage(info models.ProgramInfo) *models.ProgramMessage {
	return &models.ProgramMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeProgram,
			Timestamp: time.Now(),
		},
		Program: info,
	}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      TypeError,
		Timestamp: time.Now(),
		Error:     message,
		Data: map[string]string{
			"code": errorCode,
		},
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// ParseClientCommand analisa um comando recebido do cliente
func ParseClientCommand(data []byte) (models.CommandMessage, error) {
	var command models.CommandMessage
	err := json.Unmarshal(data, &command)
	return command, err
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypePong,
			Timestamp: time.Now(),
		},
		Time:       pingTime,
		ServerTime: time.Now().UnixNano() / int64(time.Millisecond),
	}
}

// pingTime extrai o campo "time" dos parâmetros de um ping
func pingTime(params interface{}) int64 {
	if paramsMap, ok := params.(map[string]interface{}); ok {
		if timeVal, ok := paramsMap["time"].(float64); ok {
			return int64(timeVal)
		}
	}
	return 0
}
