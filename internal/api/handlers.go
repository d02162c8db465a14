package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"lvdt_go/internal/laser"
	"lvdt_go/internal/models"
	"lvdt_go/pkg/logger"
	"lvdt_go/pkg/utils"
)

const defaultHistoryLimit = 50

// LaserProvider é a parte do serviço de aquisição usada pela API
type LaserProvider interface {
	GetStatus() models.LaserStatus
	GetProgramInfo() models.ProgramInfo
	GetLastSummary() *models.DatasetSummary
	SelectProgram(index int) error
	PendingProgram() int
	ListFiles(tag string, day time.Time) ([]models.FileEntry, error)
}

// SummaryStore fornece resumos publicados no Redis
type SummaryStore interface {
	IsConnected() bool
	GetCurrentSummary() (*models.DatasetSummary, error)
	GetSummaryHistory(limit int) ([]models.DatasetSummary, error)
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	laser LaserProvider
	store SummaryStore
}

// NewHandler cria um novo handler de API. store pode ser nil.
func NewHandler(laserService LaserProvider, store SummaryStore) *Handler {
	return &Handler{
		laser: laserService,
		store: store,
	}
}

type selectProgramRequest struct {
	Index *int `json:"index"`
}

// GetStatus retorna o status atual da aquisição
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	status := h.laser.GetStatus()

	response := map[string]interface{}{
		"status":        status.Status,
		"timestamp":     status.Timestamp.UnixNano() / int64(time.Millisecond),
		"program":       status.Program,
		"cycles":        status.Cycles,
		"parseWarnings": status.ParseWarnings,
	}

	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// Program consulta (GET) ou troca (POST) o programa do sensor
func (h *Handler) Program(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.respondWithJSON(w, http.StatusOK, h.laser.GetProgramInfo())
	case http.MethodPost:
		h.selectProgram(w, r)
	default:
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
	}
}

func (h *Handler) selectProgram(w http.ResponseWriter, r *http.Request) {
	var req selectProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		h.respondWithError(w, http.StatusBadRequest, "Corpo inválido, esperado {\"index\": n}")
		return
	}

	if err := h.laser.SelectProgram(*req.Index); err != nil {
		var cfgErr *laser.ConfigurationError
		if errors.As(err, &cfgErr) {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Errorf("Erro ao selecionar programa %d: %v", *req.Index, err)
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pending := h.laser.PendingProgram()
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"index":   *req.Index,
		"pending": pending == *req.Index,
		"program": h.laser.GetProgramInfo(),
	})
}

// GetCurrent retorna o resumo do último dataset adquirido
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	summary := h.laser.GetLastSummary()

	// Sem ciclo local, tentar o último resumo publicado no Redis
	if summary == nil && h.store != nil && h.store.IsConnected() {
		if stored, err := h.store.GetCurrentSummary(); err == nil {
			summary = stored
		}
	}

	if summary == nil {
		h.respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
		return
	}

	h.respondWithJSON(w, http.StatusOK, summary)
}

// GetHistory retorna os resumos mais recentes, do mais novo ao mais antigo
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "Parâmetro limit inválido")
			return
		}
		limit = n
	}

	var history []models.DatasetSummary
	if h.store != nil && h.store.IsConnected() {
		stored, err := h.store.GetSummaryHistory(limit)
		if err != nil {
			logger.Warnf("Erro ao obter histórico do Redis: %v", err)
		} else {
			history = stored
		}
	}

	if history == nil {
		history = []models.DatasetSummary{}
	}

	h.respondWithJSON(w, http.StatusOK, history)
}

// GetFiles lista os datasets gravados para uma tag e data (YYYY-MM-DD)
func (h *Handler) GetFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	query := r.URL.Query()
	day := utils.NowUTC()
	if raw := query.Get("date"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		day = parsed
	}

	files, err := h.laser.ListFiles(query.Get("tag"), day)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Errorf("Erro ao listar arquivos: %v", err)
		h.respondWithError(w, http.StatusInternalServerError, "Erro ao listar arquivos")
		return
	}

	if files == nil {
		files = []models.FileEntry{}
	}

	h.respondWithJSON(w, http.StatusOK, files)
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
