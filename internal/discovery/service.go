package discovery

import (
	"fmt"
	"net"
	"os"
	"sync"

	"lvdt_go/pkg/logger"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceDomain é o domínio para descoberta na rede
	ServiceDomain = "local."

	// ServiceType define o tipo de serviço
	ServiceType = "_lvdtlaser._tcp"

	// Version é anunciada nos metadados mDNS
	Version = "1.0"
)

// DiscoveryService anuncia o servidor na rede local via mDNS
type DiscoveryService struct {
	server       *zeroconf.Server
	mutex        sync.Mutex
	instanceName string
	port         int
	running      bool
	serverIP     string
	tag          string
}

// NewDiscoveryService cria um novo serviço de descoberta
func NewDiscoveryService(port int, tag string) *DiscoveryService {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "lvdt"
	}

	return &DiscoveryService{
		port:         port,
		instanceName: fmt.Sprintf("%s-laser", hostname),
		tag:          tag,
	}
}

// Start registra o serviço mDNS
func (s *DiscoveryService) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	ip, err := firstIPv4(addrs)
	if err != nil {
		return err
	}
	s.serverIP = ip

	server, err := zeroconf.Register(
		s.instanceName,
		ServiceType,
		ServiceDomain,
		s.port,
		TXTRecords(ip, s.tag),
		nil, // todas as interfaces
	)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	logger.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s.%s)",
		ip, s.port, s.instanceName, ServiceType)

	return nil
}

// Stop para o serviço de descoberta
func (s *DiscoveryService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false

	logger.Info("Serviço de descoberta parado")
}

// TXTRecords monta os metadados anunciados
func TXTRecords(ip, tag string) []string {
	return []string{
		"version=" + Version,
		"ip=" + ip,
		"name=LVDT Laser",
		"tag=" + tag,
	}
}

// GetServerIP retorna o IP do servidor
func (s *DiscoveryService) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetPort retorna a porta do servidor
func (s *DiscoveryService) GetPort() int {
	return s.port
}

// GetInstanceName retorna o nome da instância do serviço
func (s *DiscoveryService) GetInstanceName() string {
	return s.instanceName
}

// IsRunning verifica se o serviço está em execução
func (s *DiscoveryService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// firstIPv4 retorna o primeiro endereço IPv4 que não é loopback
func firstIPv4(addrs []net.Addr) (string, error) {
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
