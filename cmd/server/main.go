package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lvdt_go/internal/config"
	"lvdt_go/internal/server"
	"lvdt_go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "arquivo de configuração (JSON ou YAML)")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	displayBanner()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("%v, usando INFO", err)
	}
	logger.SetLevel(level)

	if cfg.Log.Dir != "" {
		opts := logger.FileOptions{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		if err := logger.EnableFileLogging(cfg.Log.Dir, "lvdt", opts); err != nil {
			logger.Warnf("Log em arquivo desabilitado: %v", err)
		}
	}

	logger.Info("Iniciando LVDT Laser Monitor")
	logger.Infof("Configuração carregada: laser em %s:%d, programa %d, dados em %s",
		cfg.Laser.Host, cfg.Laser.Port, cfg.Laser.Program, cfg.Storage.Root)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			logger.Error("Servidor encerrado com erro", err)
		}
	}

	logger.Info("Desligando servidor...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
		os.Exit(1)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
  _ __   ______ _____   _                       
 | |\ \ / /  _ \_   _| | |    __ _ ___  ___ _ __ 
 | | \ V /| | | || |   | |   / _' / __|/ _ \ '__|
 | |__\_/ | |_| || |   | |__| (_| \__ \  __/ |   
 |_____|  |____/ |_|   |_____\__,_|___/\___|_|   v` + server.Version + `
`
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
