package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"lvdt_go/internal/config"
	"lvdt_go/internal/discovery"
	"lvdt_go/internal/laser"
	"lvdt_go/internal/models"
	"lvdt_go/internal/plc"
	"lvdt_go/internal/redis"
	"lvdt_go/internal/storage"
	"lvdt_go/internal/websocket"
	"lvdt_go/pkg/logger"

	"go.uber.org/multierr"
)

// Version é a versão anunciada em /info e no banner
const Version = "1.0.0"

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	handler          http.Handler
	laserService     *laser.Service
	redisService     *redis.Service
	plcService       *plc.PLCService
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
		},
	}

	ip := localIP()
	server.serverInfo.IP = ip
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	if err := server.initComponents(); err != nil {
		return nil, err
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	catalog, err := laser.LoadCatalog(s.config.Laser.CatalogPath)
	if err != nil {
		return fmt.Errorf("erro ao carregar catálogo de programas: %w", err)
	}
	programs, err := laser.NewProgramConfig(catalog, s.config.Laser.Program)
	if err != nil {
		return fmt.Errorf("erro ao selecionar programa inicial: %w", err)
	}

	partitioner, err := storage.NewPathPartitioner(s.config.Storage.Root, storage.WithTags(s.config.Storage.Tags...))
	if err != nil {
		return fmt.Errorf("erro ao preparar diretório de dados: %w", err)
	}

	s.wsHub = websocket.NewHub()
	go s.wsHub.Run()

	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	opts := []laser.ServiceOption{
		laser.WithRedis(s.redisService),
		laser.WithHub(s.wsHub),
	}
	if s.config.Storage.S3.Enabled {
		mirror, err := storage.NewS3Mirror(s.config.Storage.S3, partitioner.Root())
		if err != nil {
			return fmt.Errorf("erro ao inicializar espelhamento S3: %w", err)
		}
		opts = append(opts, laser.WithMirror(mirror))
	}

	laserService, err := laser.NewService(s.config.Laser, programs,
		storage.NewDatasetFile(partitioner), storage.NewParquetBackend(), opts...)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço do laser: %w", err)
	}
	s.laserService = laserService
	s.wsHub.SetProvider(laserService)

	if s.config.PLC.Enabled {
		s.plcService = plc.NewPLCService(s.config.PLC)

		s.laserService.RegisterSummaryHandler(func(summary models.DatasetSummary) {
			s.plcService.UpdateSummary(summary, s.laserService.GetStatus().Status)
		})
	}

	if s.config.Discovery.Enabled {
		s.discoveryService = discovery.NewDiscoveryService(s.config.Server.Port, s.config.Laser.Tag)
	}

	return nil
}

// Start inicia o servidor e todos os serviços
func (s *Server) Start() error {
	if s.discoveryService != nil {
		if err := s.discoveryService.Start(); err != nil {
			logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		}
	}

	if err := s.laserService.Start(); err != nil {
		return fmt.Errorf("erro ao iniciar serviço do laser: %w", err)
	}

	if s.plcService != nil {
		if err := s.plcService.Start(); err != nil {
			logger.Errorf("Erro ao iniciar serviço PLC: %v", err)
		}
	}

	s.logServerInfo()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// Shutdown encerra o servidor e todos os serviços, agregando os erros
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	var errs error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("servidor HTTP: %w", err))
	}

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	// O laser para antes dos consumidores dos seus resumos
	if s.laserService != nil {
		s.laserService.Stop()
	}

	if s.plcService != nil {
		errs = multierr.Append(errs, s.plcService.Shutdown())
	}

	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}

	if s.redisService != nil {
		errs = multierr.Append(errs, s.redisService.Shutdown())
	}

	if errs != nil {
		logger.Errorf("Shutdown concluído com erros: %v", errs)
		return errs
	}
	logger.Info("Shutdown completo")
	return nil
}

// Handler retorna o handler HTTP raiz com middlewares
func (s *Server) Handler() http.Handler {
	return s.handler
}

// localIP obtém o endereço IP local, ou localhost se nenhum for encontrado
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "localhost"
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("            LVDT Laser Monitor Server          ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	logger.Infof("Dados em: %s", s.config.Storage.Root)
	if s.discoveryService != nil {
		logger.Infof("mDNS: %s.%s.%s",
			s.discoveryService.GetInstanceName(),
			discovery.ServiceType,
			discovery.ServiceDomain)
	}
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
