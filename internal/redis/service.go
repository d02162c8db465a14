package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"lvdt_go/internal/config"
	"lvdt_go/internal/models"
	"lvdt_go/pkg/logger"
)

const defaultHistorySize = 500

// Service gerencia a conexão e operações com o Redis
type Service struct {
	client      *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
	prefix      string
	config      config.RedisConfig
	connected   bool
	mutex       sync.RWMutex
	historySize int
}

// NewService cria um novo serviço Redis
func NewService(cfg config.RedisConfig) (*Service, error) {
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = defaultHistorySize
	}

	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return &Service{
			config:      cfg,
			prefix:      cfg.Prefix,
			connected:   false,
			historySize: historySize,
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	service := &Service{
		client:      client,
		ctx:         ctx,
		cancel:      cancel,
		prefix:      cfg.Prefix,
		config:      cfg,
		historySize: historySize,
	}

	if err := service.TestConnection(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
		return service, nil
	}

	return service, nil
}

// TestConnection testa a conexão com o Redis
func (s *Service) TestConnection() error {
	if !s.config.Enabled {
		return fmt.Errorf("serviço Redis desabilitado")
	}

	result, err := s.client.Ping(s.ctx).Result()
	if err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão com o Redis estabelecida. Resposta: %s", result)
	s.setConnected(true)
	return nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected && s.config.Enabled
}

func (s *Service) setConnected(connected bool) {
	s.mutex.Lock()
	s.connected = connected
	s.mutex.Unlock()
}

func (s *Service) key(name string) string {
	return fmt.Sprintf("%s:%s", s.prefix, name)
}

// WriteSummary grava o resumo do último dataset e o acrescenta ao histórico
func (s *Service) WriteSummary(summary models.DatasetSummary) error {
	if !s.IsConnected() {
		return nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("erro ao serializar resumo: %w", err)
	}
	score := float64(summary.EndTime.UnixNano() / int64(time.Millisecond))

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.key("summary"), string(data), 0)
	pipe.Set(s.ctx, s.key("timestamp"), int64(score), 0)
	pipe.ZAdd(s.ctx, s.key("history"), &redis.Z{
		Score:  score,
		Member: string(data),
	})
	pipe.ZRemRangeByRank(s.ctx, s.key("history"), 0, int64(-1*(s.historySize+1)))
	pipe.Incr(s.ctx, s.key("datasets"))
	pipe.IncrBy(s.ctx, s.key("missing_total"), int64(summary.Missing))

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever resumo no Redis: %w", err)
	}
	return nil
}

// WriteStatus escreve o status da aquisição no Redis
func (s *Service) WriteStatus(status models.LaserStatus) error {
	if !s.IsConnected() {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.key("status"), status.Status, 0)
	pipe.Set(s.ctx, s.key("status_timestamp"), status.Timestamp.UnixNano()/int64(time.Millisecond), 0)
	pipe.Set(s.ctx, s.key("program"), status.Program, 0)

	if status.LastError != "" {
		pipe.Set(s.ctx, s.key("ultimo_erro"), status.LastError, 0)
	}
	pipe.Set(s.ctx, s.key("erros_consecutivos"), status.ErrorCount, 0)

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}
	return nil
}

// GetStatus obtém o status atual do Redis
func (s *Service) GetStatus() (*models.LaserStatus, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	statusCmd := s.client.Get(s.ctx, s.key("status"))
	if statusCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter status: %w", statusCmd.Err())
	}

	status := &models.LaserStatus{
		Status:    statusCmd.Val(),
		Timestamp: time.Now(),
	}

	if ts, err := s.client.Get(s.ctx, s.key("status_timestamp")).Int64(); err == nil {
		status.Timestamp = time.Unix(0, ts*int64(time.Millisecond))
	}
	if program, err := s.client.Get(s.ctx, s.key("program")).Int(); err == nil {
		status.Program = program
	}
	if lastErr, err := s.client.Get(s.ctx, s.key("ultimo_erro")).Result(); err == nil {
		status.LastError = lastErr
	}
	if count, err := s.client.Get(s.ctx, s.key("erros_consecutivos")).Int(); err == nil {
		status.ErrorCount = count
	}

	return status, nil
}

// GetCurrentSummary obtém o resumo do último dataset
func (s *Service) GetCurrentSummary() (*models.DatasetSummary, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	data, err := s.client.Get(s.ctx, s.key("summary")).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao obter resumo: %w", err)
	}

	var summary models.DatasetSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("erro ao decodificar resumo: %w", err)
	}
	return &summary, nil
}

// GetSummaryHistory obtém os últimos resumos, do mais recente ao mais antigo
func (s *Service) GetSummaryHistory(limit int) ([]models.DatasetSummary, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	if limit <= 0 || limit > s.historySize {
		limit = s.historySize
	}

	members, err := s.client.ZRevRange(s.ctx, s.key("history"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter histórico: %w", err)
	}
	return decodeHistory(members), nil
}

// decodeHistory ignora membros que não são resumos válidos
func decodeHistory(members []string) []models.DatasetSummary {
	history := make([]models.DatasetSummary, 0, len(members))
	for _, m := range members {
		var summary models.DatasetSummary
		if err := json.Unmarshal([]byte(m), &summary); err != nil {
			continue
		}
		history = append(history, summary)
	}
	return history
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.connected = false

	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("erro ao fechar conexão com Redis: %w", err)
	}
	logger.Info("Conexão com o Redis fechada")
	return nil
}
