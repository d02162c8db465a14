package plc

import (
	"context"
	"math"
	"sync"
	"time"

	"lvdt_go/internal/config"
	"lvdt_go/internal/models"
	"lvdt_go/pkg/logger"
	"lvdt_go/pkg/utils"
)

// Layout do bloco de resumo no DB
const (
	OffsetCount   = 0  // DINT
	OffsetMean    = 4  // REAL
	OffsetMin     = 8  // REAL
	OffsetMax     = 12 // REAL
	OffsetMissing = 16 // DINT
	OffsetStatus  = 20 // INT
)

// SummaryBlockSize é o tamanho do bloco de resumo em bytes
const SummaryBlockSize = 22

// Códigos de status escritos no PLC
const (
	StatusCodeUnknown      int16 = 0
	StatusCodeOK           int16 = 1
	StatusCodeParseWarning int16 = 2
	StatusCodeCommFailure  int16 = 3
	StatusCodeStoreFailure int16 = 4
)

// BlockWriter escreve bytes em um DB do PLC
type BlockWriter interface {
	WriteDataBlock(dbNumber int, startOffset int, data []byte) error
	Disconnect()
}

type update struct {
	summary models.DatasetSummary
	status  string
}

// PLCService publica o último resumo de dataset em um DB do PLC
type PLCService struct {
	client     BlockWriter
	config     config.PLCConfig
	ctx        context.Context
	cancel     context.CancelFunc
	updates    chan update
	last       *update
	dirty      bool
	mutex      sync.RWMutex
	running    bool
	done       chan struct{}
	writeCount int64
}

// NewPLCService cria um novo serviço de PLC
func NewPLCService(cfg config.PLCConfig) *PLCService {
	return newPLCService(cfg, NewS7Client(cfg))
}

func newPLCService(cfg config.PLCConfig, client BlockWriter) *PLCService {
	if cfg.UpdateRate <= 0 {
		cfg.UpdateRate = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &PLCService{
		client:  client,
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan update, 10),
		done:    make(chan struct{}),
	}
}

// Start inicia o serviço de comunicação com o PLC
func (s *PLCService) Start() error {
	if !s.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	go s.runUpdateLoop()

	s.running = true
	logger.Infof("Serviço PLC iniciado (DB%d)", s.config.DBNumber)
	return nil
}

// Stop para o serviço de comunicação com o PLC
func (s *PLCService) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mutex.Unlock()

	<-s.done
	s.client.Disconnect()
	logger.Info("Serviço PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *PLCService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// UpdateSummary agenda a escrita de um resumo no PLC
func (s *PLCService) UpdateSummary(summary models.DatasetSummary, status string) {
	if !s.IsRunning() {
		return
	}

	select {
	case s.updates <- update{summary: summary, status: status}:
	default:
		logger.Warn("Canal de resumos para PLC está cheio, descartando atualização")
	}
}

// runUpdateLoop escreve no PLC o resumo mais recente a cada UpdateRate
func (s *PLCService) runUpdateLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.UpdateRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case u := <-s.updates:
			s.mutex.Lock()
			s.last = &u
			s.dirty = true
			s.mutex.Unlock()

		case <-ticker.C:
			s.flush()
		}
	}
}

// flush escreve o último resumo, se ainda não escrito
func (s *PLCService) flush() {
	s.mutex.RLock()
	last := s.last
	dirty := s.dirty
	s.mutex.RUnlock()

	if last == nil || !dirty {
		return
	}

	block := EncodeSummary(last.summary, last.status)
	if err := s.client.WriteDataBlock(s.config.DBNumber, 0, block); err != nil {
		logger.Error("Falha ao escrever resumo no PLC", err)
		return
	}

	s.mutex.Lock()
	s.dirty = false
	s.writeCount++
	s.mutex.Unlock()
	logger.Debugf("Resumo escrito no PLC DB%d", s.config.DBNumber)
}

// EncodeSummary monta o bloco de bytes do resumo (big endian, tipos S7)
func EncodeSummary(summary models.DatasetSummary, status string) []byte {
	block := make([]byte, SummaryBlockSize)
	copy(block[OffsetCount:], utils.Int32ToBytes(utils.ClampInt32(summary.Count)))
	copy(block[OffsetMean:], utils.Float32ToBytes(toReal(summary.Mean)))
	copy(block[OffsetMin:], utils.Float32ToBytes(toReal(summary.Min)))
	copy(block[OffsetMax:], utils.Float32ToBytes(toReal(summary.Max)))
	copy(block[OffsetMissing:], utils.Int32ToBytes(utils.ClampInt32(summary.Missing)))
	copy(block[OffsetStatus:], utils.Int16ToBytes(StatusCode(status)))
	return block
}

// StatusCode converte o status da aquisição no código INT do PLC
func StatusCode(status string) int16 {
	switch status {
	case "ok":
		return StatusCodeOK
	case "parse_warning":
		return StatusCodeParseWarning
	case "comm_failure":
		return StatusCodeCommFailure
	case "storage_failure":
		return StatusCodeStoreFailure
	default:
		return StatusCodeUnknown
	}
}

// toReal converte para REAL; valores não finitos viram 0
func toReal(v float64) float32 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxFloat32 {
		return 0
	}
	return float32(v)
}

// Shutdown encerra graciosamente o serviço
func (s *PLCService) Shutdown() error {
	s.Stop()
	return nil
}
