package config

import (
	"time"

	"github.com/spf13/viper"
)

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Laser: LaserConfig{
			Host:                 "192.168.1.90",
			Port:                 24685,
			ReadTimeout:          10 * time.Second,
			WriteTimeout:         5 * time.Second,
			CatalogPath:          "",
			Program:              0,
			Tag:                  "test",
			BaseName:             "data",
			CyclePause:           0,
			MaxConsecutiveErrors: 5,
			Debug:                false,
		},
		Storage: StorageConfig{
			Root: "/data/data",
			Tags: []string{},
			S3: S3Config{
				Enabled: false,
				Region:  "us-east-1",
				Secure:  true,
			},
		},
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			Password:    "",
			DB:          0,
			Prefix:      "lvdt_laser",
			Enabled:     true,
			HistorySize: 500,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     20,
			UpdateRate:   500 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        "logs",
			MaxSizeMB:  50,
			MaxBackups: 10,
		},
	}
}

// setDefaults registra cada chave no viper. As variáveis de ambiente só são
// consultadas para chaves conhecidas.
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.read_timeout", c.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", c.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)

	v.SetDefault("laser.host", c.Laser.Host)
	v.SetDefault("laser.port", c.Laser.Port)
	v.SetDefault("laser.read_timeout", c.Laser.ReadTimeout)
	v.SetDefault("laser.write_timeout", c.Laser.WriteTimeout)
	v.SetDefault("laser.catalog_path", c.Laser.CatalogPath)
	v.SetDefault("laser.program", c.Laser.Program)
	v.SetDefault("laser.tag", c.Laser.Tag)
	v.SetDefault("laser.base_name", c.Laser.BaseName)
	v.SetDefault("laser.cycle_pause", c.Laser.CyclePause)
	v.SetDefault("laser.max_consecutive_errors", c.Laser.MaxConsecutiveErrors)
	v.SetDefault("laser.debug", c.Laser.Debug)

	v.SetDefault("storage.root", c.Storage.Root)
	v.SetDefault("storage.tags", c.Storage.Tags)
	v.SetDefault("storage.s3.enabled", c.Storage.S3.Enabled)
	v.SetDefault("storage.s3.endpoint", c.Storage.S3.Endpoint)
	v.SetDefault("storage.s3.key", c.Storage.S3.Key)
	v.SetDefault("storage.s3.secret", c.Storage.S3.Secret)
	v.SetDefault("storage.s3.bucket", c.Storage.S3.Bucket)
	v.SetDefault("storage.s3.region", c.Storage.S3.Region)
	v.SetDefault("storage.s3.prefix", c.Storage.S3.Prefix)
	v.SetDefault("storage.s3.secure", c.Storage.S3.Secure)

	v.SetDefault("redis.host", c.Redis.Host)
	v.SetDefault("redis.port", c.Redis.Port)
	v.SetDefault("redis.password", c.Redis.Password)
	v.SetDefault("redis.db", c.Redis.DB)
	v.SetDefault("redis.prefix", c.Redis.Prefix)
	v.SetDefault("redis.enabled", c.Redis.Enabled)
	v.SetDefault("redis.history_size", c.Redis.HistorySize)

	v.SetDefault("plc.enabled", c.PLC.Enabled)
	v.SetDefault("plc.host", c.PLC.Host)
	v.SetDefault("plc.rack", c.PLC.Rack)
	v.SetDefault("plc.slot", c.PLC.Slot)
	v.SetDefault("plc.db_number", c.PLC.DBNumber)
	v.SetDefault("plc.update_rate", c.PLC.UpdateRate)
	v.SetDefault("plc.read_timeout", c.PLC.ReadTimeout)
	v.SetDefault("plc.write_timeout", c.PLC.WriteTimeout)

	v.SetDefault("discovery.enabled", c.Discovery.Enabled)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.dir", c.Log.Dir)
	v.SetDefault("log.max_size_mb", c.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
}
