package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix é o prefixo das variáveis de ambiente (LVDT_LASER_HOST, ...)
const EnvPrefix = "LVDT"

// Config representa a configuração completa da aplicação
type Config struct {
	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Laser     LaserConfig     `json:"laser" mapstructure:"laser"`
	Storage   StorageConfig   `json:"storage" mapstructure:"storage"`
	Redis     RedisConfig     `json:"redis" mapstructure:"redis"`
	PLC       PLCConfig       `json:"plc" mapstructure:"plc"`
	Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery"`
	Log       LogConfig       `json:"log" mapstructure:"log"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" mapstructure:"shutdown_timeout"`
}

// LaserConfig contém configurações do sensor laser e do ciclo de aquisição
type LaserConfig struct {
	Host                 string        `json:"host" mapstructure:"host"`
	Port                 int           `json:"port" mapstructure:"port"`
	ReadTimeout          time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	CatalogPath          string        `json:"catalogPath" mapstructure:"catalog_path"`
	Program              int           `json:"program" mapstructure:"program"`
	Tag                  string        `json:"tag" mapstructure:"tag"`
	BaseName             string        `json:"baseName" mapstructure:"base_name"`
	CyclePause           time.Duration `json:"cyclePause" mapstructure:"cycle_pause"`
	MaxConsecutiveErrors int           `json:"maxConsecutiveErrors" mapstructure:"max_consecutive_errors"`
	Debug                bool          `json:"debug" mapstructure:"debug"`
}

// StorageConfig contém configurações da hierarquia de arquivos
type StorageConfig struct {
	Root string   `json:"root" mapstructure:"root"`
	Tags []string `json:"tags" mapstructure:"tags"`
	S3   S3Config `json:"s3" mapstructure:"s3"`
}

// S3Config contém configurações do espelhamento em object storage
type S3Config struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Key      string `json:"key" mapstructure:"key"`
	Secret   string `json:"secret" mapstructure:"secret"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
	Region   string `json:"region" mapstructure:"region"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
	Secure   bool   `json:"secure" mapstructure:"secure"`
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host        string `json:"host" mapstructure:"host"`
	Port        int    `json:"port" mapstructure:"port"`
	Password    string `json:"password" mapstructure:"password"`
	DB          int    `json:"db" mapstructure:"db"`
	Prefix      string `json:"prefix" mapstructure:"prefix"`
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	HistorySize int    `json:"historySize" mapstructure:"history_size"`
}

// PLCConfig contém configurações para comunicação com o PLC S7
type PLCConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Host         string        `json:"host" mapstructure:"host"`
	Rack         int           `json:"rack" mapstructure:"rack"`
	Slot         int           `json:"slot" mapstructure:"slot"`
	DBNumber     int           `json:"dbNumber" mapstructure:"db_number"`
	UpdateRate   time.Duration `json:"updateRate" mapstructure:"update_rate"`
	ReadTimeout  time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
}

// DiscoveryConfig controla o anúncio mDNS
type DiscoveryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LogConfig controla nível e arquivos de log
type LogConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Dir        string `json:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"maxBackups" mapstructure:"max_backups"`
}

// Load carrega a configuração: valores padrão, depois o arquivo (JSON ou
// YAML, se existir) e por fim as variáveis de ambiente LVDT_*
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, getDefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("erro ao ler arquivo de configuração %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("erro ao acessar arquivo de configuração %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("erro ao decodificar configuração: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate verifica valores que impediriam a inicialização
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("porta HTTP inválida: %d", c.Server.Port)
	}
	if c.Laser.Port <= 0 || c.Laser.Port > 65535 {
		return fmt.Errorf("porta do laser inválida: %d", c.Laser.Port)
	}
	if c.Laser.Program < 0 {
		return fmt.Errorf("programa do laser inválido: %d", c.Laser.Program)
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("diretório raiz de armazenamento não configurado")
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("espelhamento S3 habilitado sem bucket")
	}
	return nil
}
