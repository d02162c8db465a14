package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"lvdt_go/internal/config"
	"lvdt_go/internal/laser"
	"lvdt_go/internal/storage"
	"lvdt_go/pkg/logger"
)

// maxFrameSize comporta um frame AO,01 de 60000 amostras
const maxFrameSize = 4 * 1024 * 1024

type replayResult struct {
	Accepted int
	Rejected int
	Samples  int
	Part     string
}

// ingestFrames lê um frame por linha. Frames inválidos são registrados e
// descartados; só erros de leitura ou de configuração interrompem.
func ingestFrames(r io.Reader, ds *laser.Dataset) (replayResult, error) {
	var result replayResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	line := 0
	for scanner.Scan() {
		line++
		frame := strings.TrimSpace(scanner.Text())
		if frame == "" {
			continue
		}

		if err := ds.Ingest(frame); err != nil {
			var pw *laser.ParseWarning
			if !errors.As(err, &pw) {
				return result, fmt.Errorf("linha %d: %w", line, err)
			}
			logger.Warnf("Linha %d: %v", line, err)
			result.Rejected++
			continue
		}
		result.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("erro ao ler frames: %w", err)
	}

	result.Samples = ds.Len()
	return result, nil
}

// run reproduz o arquivo de frames em um único dataset gravado no store particionado
func run(ctx context.Context, cfg *config.Config, framesPath string, mode storage.Mode) (replayResult, error) {
	catalog, err := laser.LoadCatalog(cfg.Laser.CatalogPath)
	if err != nil {
		return replayResult{}, err
	}
	programs, err := laser.NewProgramConfig(catalog, cfg.Laser.Program)
	if err != nil {
		return replayResult{}, err
	}

	partitioner, err := storage.NewPathPartitioner(cfg.Storage.Root, storage.WithTags(cfg.Storage.Tags...))
	if err != nil {
		return replayResult{}, err
	}
	files := storage.NewDatasetFile(partitioner)

	f, err := os.Open(framesPath)
	if err != nil {
		return replayResult{}, err
	}
	defer f.Close()

	ds := laser.NewDataset(programs)
	result, err := ingestFrames(f, ds)
	if err != nil {
		return result, err
	}
	if ds.Len() == 0 {
		return result, fmt.Errorf("nenhum frame válido em %s", framesPath)
	}

	series, err := ds.ToTimeSeries()
	if err != nil {
		if !laser.IsWarning(err) {
			return result, err
		}
		logger.Warnf("Dataset com leituras ausentes: %v", err)
	}

	fd, err := files.ForTag(cfg.Laser.Tag, cfg.Laser.BaseName, ds.EndTime())
	if err != nil {
		return result, err
	}

	store, err := storage.NewParquetBackend().Open(fd, mode)
	if err != nil {
		return result, err
	}
	defer store.Close()

	part, err := store.Put(ctx, laser.DatasetKey, series)
	if err != nil {
		return result, err
	}
	result.Part = part
	return result, nil
}
