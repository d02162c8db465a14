package laser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"lvdt_go/internal/config"
	"lvdt_go/internal/models"
	"lvdt_go/internal/redis"
	"lvdt_go/internal/storage"
	"lvdt_go/internal/websocket"
	"lvdt_go/pkg/logger"
)

// DatasetKey é a chave sob a qual cada ciclo grava sua série no store
const DatasetKey = "laser"

// Status da aquisição
const (
	StatusInitializing = "initializing"
	StatusOK           = "ok"
	StatusCommFailure  = "comm_failure"
	StatusParseWarning = "parse_warning"
	StatusStoreFailure = "storage_failure"
	StatusStopped      = "stopped"
)

// errorPause é a espera fixa após um ciclo com falha
const errorPause = time.Second

// SummaryHandler recebe o resumo de cada dataset adquirido
type SummaryHandler func(summary models.DatasetSummary)

// Mirror replica arquivos gravados localmente
type Mirror interface {
	Upload(ctx context.Context, localPath string) error
}

// ServiceOption configura o Service
type ServiceOption func(*Service)

// WithTransport substitui o cliente TCP do sensor
func WithTransport(t Transport) ServiceOption {
	return func(s *Service) { s.client = t }
}

// WithRedis publica resumos e status no Redis
func WithRedis(r *redis.Service) ServiceOption {
	return func(s *Service) { s.redisService = r }
}

// WithHub publica resumos e status no hub WebSocket
func WithHub(h *websocket.Hub) ServiceOption {
	return func(s *Service) { s.wsHub = h }
}

// WithMirror replica cada parte gravada
func WithMirror(m Mirror) ServiceOption {
	return func(s *Service) { s.mirror = m }
}

// WithServiceClock define o relógio do serviço e dos datasets
func WithServiceClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// Service executa o ciclo de aquisição do sensor laser
type Service struct {
	client       Transport
	config       config.LaserConfig
	programs     *ProgramConfig
	files        *storage.DatasetFile
	backend      storage.Backend
	mirror       Mirror
	redisService *redis.Service
	wsHub        *websocket.Hub
	clock        clock.Clock

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	mutex   sync.RWMutex

	status            models.LaserStatus
	lastSummary       *models.DatasetSummary
	consecutiveErrors int
	programmed        bool
	pendingProgram    int
	cycleActive       bool
	cycles            int64
	parseWarnings     int64

	handlers     []SummaryHandler
	handlersLock sync.RWMutex

	// Acesso ao particionador e ao backend
	storeMu sync.Mutex
}

// NewService cria o serviço de aquisição
func NewService(cfg config.LaserConfig, programs *ProgramConfig, files *storage.DatasetFile, backend storage.Backend, opts ...ServiceOption) (*Service, error) {
	if programs == nil || files == nil || backend == nil {
		return nil, fmt.Errorf("serviço do laser requer programa, particionador e backend")
	}

	s := &Service{
		config:         cfg,
		programs:       programs,
		files:          files,
		backend:        backend,
		clock:          clock.New(),
		pendingProgram: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = NewLaserClient(cfg.Host, cfg.Port, cfg.ReadTimeout, cfg.WriteTimeout)
	}

	s.status = models.LaserStatus{
		Status:         StatusInitializing,
		Timestamp:      s.clock.Now(),
		Program:        programs.Index(),
		ConnectionInfo: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	return s, nil
}

// Start inicia o loop de aquisição
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	logger.Infof("Iniciando serviço do laser (host: %s, porta: %d, programa: %d)",
		s.config.Host, s.config.Port, s.programs.Index())

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.running = true

	go s.collectData(s.ctx, s.done)
	go s.monitorStats(s.ctx)
	return nil
}

// Stop para o loop de aquisição e aguarda o ciclo corrente terminar
func (s *Service) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	logger.Info("Parando serviço do laser")
	s.cancel()
	done := s.done
	s.running = false
	s.mutex.Unlock()

	<-done
	s.client.Close()
	s.updateStatus(StatusStopped, "")
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// RegisterSummaryHandler registra uma função para receber cada resumo
func (s *Service) RegisterSummaryHandler(handler SummaryHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.handlers = append(s.handlers, handler)
}

// GetStatus retorna o status atual da aquisição
func (s *Service) GetStatus() models.LaserStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	status := s.status
	status.Cycles = s.cycles
	status.ParseWarnings = s.parseWarnings
	return status
}

// GetLastSummary retorna o resumo do último dataset adquirido
func (s *Service) GetLastSummary() *models.DatasetSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastSummary == nil {
		return nil
	}
	summary := *s.lastSummary
	return &summary
}

// GetProgramInfo descreve o programa ativo e seus valores derivados
func (s *Service) GetProgramInfo() models.ProgramInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return programInfo(s.programs)
}

func programInfo(pc *ProgramConfig) models.ProgramInfo {
	info := models.ProgramInfo{
		Index:    pc.Index(),
		Name:     pc.Program().Name,
		Programs: pc.Len(),
		Config:   pc.ResolvedConfig().Map(),
	}

	var err error
	if info.Dt, err = pc.Dt(); err == nil {
		info.Frequency, _ = pc.Frequency()
		info.WaitingTime, _ = pc.WaitingTime()
	}
	if size, serr := pc.StorageSize(); serr == nil {
		info.StorageSize = size
	} else if err == nil {
		err = serr
	}
	if err != nil {
		info.DerivedError = err.Error()
	}
	return info
}

// SelectProgram troca o programa do sensor. Com um ciclo em andamento a
// troca vale a partir do próximo ciclo.
func (s *Service) SelectProgram(index int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if index < 0 || index >= s.programs.Len() {
		return &ConfigurationError{Reason: ReasonProgramOutOfRange, Requested: index, Max: s.programs.Len() - 1}
	}

	if s.cycleActive {
		s.pendingProgram = index
		logger.Infof("Programa %d agendado para o próximo ciclo", index)
		return nil
	}
	return s.applyProgramLocked(index)
}

// PendingProgram retorna o programa agendado, ou -1
func (s *Service) PendingProgram() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.pendingProgram
}

func (s *Service) applyProgramLocked(index int) error {
	if err := s.programs.SelectProgram(index); err != nil {
		return err
	}
	s.pendingProgram = -1
	s.programmed = false
	s.status.Program = index
	logger.Infof("Programa do laser alterado para %d (%s)", index, s.programs.Program().Name)

	if s.wsHub != nil {
		s.wsHub.BroadcastProgram(programInfo(s.programs))
	}
	return nil
}

// ListFiles lista os datasets gravados para a tag na data informada
func (s *Service) ListFiles(tag string, day time.Time) ([]models.FileEntry, error) {
	lister, ok := s.backend.(storage.Lister)
	if !ok {
		return nil, fmt.Errorf("backend não permite listagem")
	}

	s.storeMu.Lock()
	dir := s.files.Partitioner().Path(tag, day)
	s.storeMu.Unlock()

	return lister.ListStores(dir)
}

// collectData executa o loop principal de aquisição
func (s *Service) collectData(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		_, err := s.RunCycle(ctx)
		pause := s.config.CyclePause
		if err != nil && !IsWarning(err) {
			if ctx.Err() != nil {
				return
			}
			if pause < errorPause {
				pause = errorPause
			}
		}

		if pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(pause):
			}
		}
	}
}

// RunCycle executa um ciclo completo: programação (se necessária),
// armazenamento no sensor, espera, leitura, gravação e publicação.
// Avisos de parse são retornados mas não interrompem o loop.
func (s *Service) RunCycle(ctx context.Context) (*models.DatasetSummary, error) {
	s.mutex.Lock()
	if s.pendingProgram >= 0 {
		if err := s.applyProgramLocked(s.pendingProgram); err != nil {
			s.mutex.Unlock()
			return nil, err
		}
	}
	s.cycleActive = true
	pc := s.programs
	programmed := s.programmed
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		s.cycleActive = false
		s.cycles++
		s.mutex.Unlock()
	}()

	wait, err := pc.WaitingTime()
	if err != nil {
		s.updateStatus(StatusCommFailure, err.Error())
		return nil, err
	}

	if !programmed {
		for _, cmd := range pc.Commands() {
			if _, err := s.client.SendCommand(cmd); err != nil {
				return nil, s.handleConnectionError(err)
			}
		}
		s.mutex.Lock()
		s.programmed = true
		s.mutex.Unlock()
		logger.Infof("Sensor programado com o programa %d", pc.Index())
	}

	for _, cmd := range []string{CmdStorageInit, CmdStorageStart} {
		if _, err := s.client.SendCommand(cmd); err != nil {
			return nil, s.handleConnectionError(err)
		}
	}

	if wait > 0 {
		select {
		case <-ctx.Done():
			if _, err := s.client.SendCommand(CmdStorageStop); err != nil {
				logger.Warnf("Erro ao parar armazenamento no cancelamento: %v", err)
			}
			return nil, ctx.Err()
		case <-s.clock.After(time.Duration(wait) * time.Second):
		}
	}

	if _, err := s.client.SendCommand(CmdStorageStop); err != nil {
		return nil, s.handleConnectionError(err)
	}
	frame, err := s.client.SendCommand(CmdStorageFetch)
	if err != nil {
		return nil, s.handleConnectionError(err)
	}
	s.resetErrors()

	ds := NewDataset(pc, WithClock(s.clock))
	if err := ds.Ingest(frame); err != nil {
		var pw *ParseWarning
		if errors.As(err, &pw) {
			s.mutex.Lock()
			s.parseWarnings++
			s.mutex.Unlock()
			logger.Warnf("Frame do sensor descartado: %v", err)
			s.updateStatus(StatusParseWarning, err.Error())
		}
		return nil, err
	}

	summary, err := s.persist(ctx, ds)
	if err != nil {
		logger.Error("Erro ao gravar dataset", err)
		s.updateStatus(StatusStoreFailure, err.Error())
		return nil, err
	}

	s.publish(summary)
	return &summary, nil
}

// persist grava a série do dataset e replica a parte, se houver espelho
func (s *Service) persist(ctx context.Context, ds *Dataset) (models.DatasetSummary, error) {
	summary := ds.Summary()
	summary.Key = DatasetKey

	series, err := ds.ToTimeSeries()
	if err != nil {
		if !IsWarning(err) {
			return summary, err
		}
		logger.Warnf("Dataset com leituras ausentes: %v", err)
	}

	s.storeMu.Lock()
	summary.Tag = s.files.Partitioner().KnownTag(s.config.Tag)
	fd, err := s.files.ForTag(s.config.Tag, s.config.BaseName, ds.EndTime())
	s.storeMu.Unlock()
	if err != nil {
		return summary, fmt.Errorf("erro ao resolver diretório do dataset: %w", err)
	}
	summary.File = fd.Path()

	store, err := s.backend.Open(fd, storage.ModeAppend)
	if err != nil {
		return summary, fmt.Errorf("erro ao abrir store %s: %w", fd.Path(), err)
	}
	defer store.Close()

	part, err := store.Put(ctx, DatasetKey, series)
	if err != nil {
		return summary, fmt.Errorf("erro ao gravar série em %s: %w", fd.Path(), err)
	}

	if s.mirror != nil && part != "" {
		if err := s.mirror.Upload(ctx, part); err != nil {
			logger.Error("Erro ao replicar parte no object storage", err)
		}
	}

	logger.Infof("Dataset gravado: %d amostras (%d ausentes) em %s", summary.Count, summary.Missing, part)
	return summary, nil
}

// publish distribui o resumo para hub, handlers e Redis
func (s *Service) publish(summary models.DatasetSummary) {
	s.mutex.Lock()
	saved := summary
	s.lastSummary = &saved
	s.mutex.Unlock()

	s.updateStatus(StatusOK, "")

	if s.wsHub != nil {
		s.wsHub.BroadcastSummary(summary)
	}

	s.handlersLock.RLock()
	handlers := s.handlers
	s.handlersLock.RUnlock()
	for _, handler := range handlers {
		handler(summary)
	}

	if s.redisService != nil && s.redisService.IsConnected() {
		go func(sm models.DatasetSummary) {
			if err := s.redisService.WriteSummary(sm); err != nil {
				logger.Errorf("Erro ao escrever resumo no Redis: %v", err)
			}
		}(summary)
	}
}

func (s *Service) resetErrors() {
	s.mutex.Lock()
	restored := s.consecutiveErrors
	s.consecutiveErrors = 0
	s.mutex.Unlock()

	if restored > 0 {
		logger.Infof("Comunicação com o sensor restaurada após %d tentativas", restored)
	}
}

// handleConnectionError trata erros de comunicação com o sensor
func (s *Service) handleConnectionError(err error) error {
	s.mutex.Lock()
	s.consecutiveErrors++
	count := s.consecutiveErrors
	// Após uma falha o sensor é reprogramado na reconexão
	s.programmed = false
	s.mutex.Unlock()

	logger.Errorf("Erro ao comunicar com o sensor: %v. Tentativa %d", err, count)

	if count >= s.config.MaxConsecutiveErrors {
		s.updateStatus(StatusCommFailure, err.Error())
	}
	return err
}

// updateStatus atualiza o status da aquisição
func (s *Service) updateStatus(status string, errorMsg string) {
	s.mutex.Lock()
	changed := s.status.Status != status
	s.status.Status = status
	s.status.Timestamp = s.clock.Now()
	s.status.LastError = errorMsg
	s.status.ErrorCount = s.consecutiveErrors
	s.status.Program = s.programs.Index()
	current := s.status
	current.Cycles = s.cycles
	current.ParseWarnings = s.parseWarnings
	s.mutex.Unlock()

	if s.redisService != nil && s.redisService.IsConnected() {
		if err := s.redisService.WriteStatus(current); err != nil {
			logger.Errorf("Erro ao escrever status no Redis: %v", err)
		}
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastStatus(current)
	}

	if changed {
		if status != StatusOK {
			logger.Warnf("Status do laser alterado para %s: %s", status, errorMsg)
		} else {
			logger.Info("Status do laser: ok")
		}
	}
}

// monitorStats registra estatísticas periodicamente
func (s *Service) monitorStats(ctx context.Context) {
	ticker := s.clock.Ticker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.GetStatus()
			logger.Infof("Estatísticas do laser: %d ciclos, %d frames descartados, status %s",
				status.Cycles, status.ParseWarnings, status.Status)
		}
	}
}
