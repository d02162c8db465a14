package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lvdt_go/internal/config"
	"lvdt_go/internal/storage"
	"lvdt_go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "arquivo de configuração (JSON ou YAML)")
	framesPath := flag.String("frames", "", "arquivo com um frame bruto por linha")
	program := flag.Int("program", -1, "programa do catálogo (padrão: o da configuração)")
	tag := flag.String("tag", "", "tag do dataset (padrão: a da configuração)")
	overwrite := flag.Bool("overwrite", false, "substitui o store existente em vez de acrescentar")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	if *framesPath == "" {
		fmt.Fprintln(os.Stderr, "uso: replay -frames <arquivo> [-config arquivo] [-program n] [-tag t] [-overwrite]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	if *program >= 0 {
		cfg.Laser.Program = *program
	}
	if *tag != "" {
		cfg.Laser.Tag = *tag
	}

	mode := storage.ModeAppend
	if *overwrite {
		mode = storage.ModeWrite
	}

	result, err := run(context.Background(), cfg, *framesPath, mode)
	if err != nil {
		logger.Fatal("Erro no replay", err)
	}

	logger.Infof("Replay concluído: %d frames aceitos, %d descartados, %d amostras em %s",
		result.Accepted, result.Rejected, result.Samples, result.Part)
}
