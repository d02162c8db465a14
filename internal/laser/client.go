package laser

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"lvdt_go/pkg/logger"
)

// Terminator encerra comandos e respostas do sensor
const Terminator = '\r'

// Transport envia um comando ao sensor e devolve a resposta
type Transport interface {
	SendCommand(cmd string) (string, error)
	IsConnected() bool
	Close()
}

// InstrumentError indica uma resposta de erro ("ER,...") do sensor
type InstrumentError struct {
	Command string
	Reply   string
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("sensor recusou o comando %s: %s", e.Command, e.Reply)
}

// LaserClient gerencia a comunicação TCP com o sensor laser
type LaserClient struct {
	conn         net.Conn
	reader       *bufio.Reader
	host         string
	port         int
	readTimeout  time.Duration
	writeTimeout time.Duration
	connected    bool
	mutex        sync.Mutex
}

// NewLaserClient cria uma nova instância do cliente do sensor
func NewLaserClient(host string, port int, readTimeout, writeTimeout time.Duration) *LaserClient {
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &LaserClient{
		host:         host,
		port:         port,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Addr retorna o endereço host:porta do sensor
func (c *LaserClient) Addr() string {
	return net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
}

// Connect estabelece conexão com o sensor
func (c *LaserClient) Connect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connectLocked()
}

func (c *LaserClient) connectLocked() error {
	if c.connected {
		return nil
	}

	addr := c.Addr()
	logger.Infof("Tentando conectar ao sensor laser em %s...", addr)

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("erro ao conectar ao sensor: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, 64*1024)
	c.connected = true
	logger.Infof("Conectado ao sensor laser em %s", addr)
	return nil
}

// SendCommand envia um comando terminado em CR e lê uma resposta completa.
// Falhas de transporte marcam o cliente como desconectado.
func (c *LaserClient) SendCommand(cmd string) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return "", err
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if _, err := c.conn.Write([]byte(cmd + string(Terminator))); err != nil {
		c.dropLocked()
		return "", fmt.Errorf("erro ao enviar comando %s: %w", cmd, err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	reply, err := c.reader.ReadString(Terminator)
	if err != nil {
		c.dropLocked()
		return "", fmt.Errorf("erro ao ler resposta de %s: %w", cmd, err)
	}

	reply = strings.TrimRight(reply, "\r\n")
	reply = strings.TrimLeft(reply, "\n")
	if strings.HasPrefix(reply, "ER") {
		return reply, &InstrumentError{Command: cmd, Reply: reply}
	}
	return reply, nil
}

func (c *LaserClient) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
	c.connected = false
}

// IsConnected verifica se o cliente está conectado
func (c *LaserClient) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}

// Close fecha a conexão com o sensor
func (c *LaserClient) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn != nil {
		c.dropLocked()
		logger.Info("Conexão com o sensor laser fechada")
	}
}
