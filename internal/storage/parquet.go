package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/google/uuid"

	"lvdt_go/internal/models"
)

// Mode é o modo de abertura de um store
type Mode string

const (
	// ModeAppend mantém as partes existentes
	ModeAppend Mode = "a"
	// ModeWrite remove o conteúdo anterior do store
	ModeWrite Mode = "w"
	// ModeRead abre somente para leitura
	ModeRead Mode = "r"
)

const partExt = ".parquet"

// Chaves de metadados gravadas no schema de cada parte
const (
	metaName = "name"
	metaUnit = "unit"
	metaDt   = "dt_ns"
	metaT0   = "t0"
)

// ErrReadOnly é retornado por Put em um store aberto com ModeRead
var ErrReadOnly = errors.New("store aberto somente para leitura")

// Backend abre stores de séries temporais a partir de um FileDescriptor
type Backend interface {
	Open(fd FileDescriptor, mode Mode) (Store, error)
}

// Store guarda séries temporais por chave
type Store interface {
	// Put grava a série como uma nova parte e retorna o caminho dela
	Put(ctx context.Context, key string, series models.TimeSeries) (string, error)
	// Get lê todas as partes da chave em ordem de T0
	Get(ctx context.Context, key string) ([]models.TimeSeries, error)
	Keys() ([]string, error)
	Path() string
	Close() error
}

// Lister lista os stores existentes em um diretório de partição
type Lister interface {
	ListStores(dir string) ([]models.FileEntry, error)
}

// ParquetBackend grava cada série como arquivo parquet em store/key/<uuid>.parquet
type ParquetBackend struct {
	alloc        memory.Allocator
	rowGroupSize int64
}

// NewParquetBackend cria o backend parquet
func NewParquetBackend() *ParquetBackend {
	return &ParquetBackend{
		alloc:        memory.NewGoAllocator(),
		rowGroupSize: 8124,
	}
}

// Open abre o store no caminho do descritor
func (b *ParquetBackend) Open(fd FileDescriptor, mode Mode) (Store, error) {
	dir := fd.Path()

	switch mode {
	case ModeWrite:
		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	case ModeAppend:
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	case ModeRead:
		info, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("store inválido, não é diretório: %s", dir)
		}
	default:
		return nil, fmt.Errorf("modo de abertura desconhecido: %q", mode)
	}

	return &parquetStore{backend: b, dir: dir, mode: mode}, nil
}

// ListStores lista os stores de um diretório de partição
func (b *ParquetBackend) ListStores(dir string) ([]models.FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []models.FileEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		keys, err := listKeys(path)
		if err != nil {
			return nil, err
		}
		out = append(out, models.FileEntry{
			Name:    e.Name(),
			Path:    path,
			Keys:    keys,
			ModTime: info.ModTime().UTC(),
		})
	}
	return out, nil
}

type parquetStore struct {
	backend *ParquetBackend
	dir     string
	mode    Mode
	closed  bool
}

func (s *parquetStore) Path() string {
	return s.dir
}

func (s *parquetStore) Close() error {
	s.closed = true
	return nil
}

func (s *parquetStore) Keys() ([]string, error) {
	return listKeys(s.dir)
}

func (s *parquetStore) Put(ctx context.Context, key string, series models.TimeSeries) (string, error) {
	if s.closed {
		return "", fmt.Errorf("store fechado: %s", s.dir)
	}
	if s.mode == ModeRead {
		return "", ErrReadOnly
	}
	if err := validKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	keyDir := filepath.Join(s.dir, key)
	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return "", err
	}

	uid, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	final := filepath.Join(keyDir, uid.String()+partExt)
	tmp := final + ".tmp"

	if err := s.backend.writePart(tmp, series); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return final, nil
}

func (s *parquetStore) Get(ctx context.Context, key string) ([]models.TimeSeries, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	parts, err := filepath.Glob(filepath.Join(s.dir, key, "*"+partExt))
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("chave %q não encontrada em %s: %w", key, s.dir, os.ErrNotExist)
	}

	out := make([]models.TimeSeries, 0, len(parts))
	for _, p := range parts {
		series, err := s.backend.readPart(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler parte %s: %w", p, err)
		}
		out = append(out, series)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].T0.Before(out[j].T0)
	})
	return out, nil
}

func partSchema(series models.TimeSeries) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{metaName, metaUnit, metaDt, metaT0},
		[]string{series.Name, series.Unit, strconv.FormatInt(int64(series.Dt), 10), series.T0.UTC().Format(time.RFC3339Nano)},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "time", Type: arrow.PrimitiveTypes.Int64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, &md)
}

func (b *ParquetBackend) writePart(filename string, series models.TimeSeries) error {
	schema := partSchema(series)

	builder := array.NewRecordBuilder(b.alloc, schema)
	defer builder.Release()

	times := builder.Field(0).(*array.Int64Builder)
	values := builder.Field(1).(*array.Float64Builder)
	times.Reserve(len(series.Values))
	values.Reserve(len(series.Values))
	for i, v := range series.Values {
		times.Append(series.TimeAt(i).UnixNano())
		values.Append(v)
	}

	record := builder.NewRecord()
	defer record.Release()

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writerProps := parquet.NewWriterProperties(
		parquet.WithMaxRowGroupLength(b.rowGroupSize),
	)
	arrprops := pqarrow.NewArrowWriterProperties()

	writer, err := pqarrow.NewFileWriter(schema, file, writerProps, arrprops)
	if err != nil {
		return err
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (b *ParquetBackend) readPart(ctx context.Context, filename string) (models.TimeSeries, error) {
	file, err := os.Open(filename)
	if err != nil {
		return models.TimeSeries{}, err
	}
	defer file.Close()

	table, err := pqarrow.ReadTable(ctx, file, parquet.NewReaderProperties(b.alloc), pqarrow.ArrowReadProperties{}, b.alloc)
	if err != nil {
		return models.TimeSeries{}, err
	}
	defer table.Release()

	timeIdx := table.Schema().FieldIndices("time")
	valueIdx := table.Schema().FieldIndices("value")
	if len(timeIdx) != 1 || len(valueIdx) != 1 {
		return models.TimeSeries{}, fmt.Errorf("colunas time/value ausentes")
	}

	var times []int64
	for _, chunk := range table.Column(timeIdx[0]).Data().Chunks() {
		arr, ok := chunk.(*array.Int64)
		if !ok {
			return models.TimeSeries{}, fmt.Errorf("coluna time com tipo inesperado %s", chunk.DataType())
		}
		times = append(times, arr.Int64Values()...)
	}

	series := models.TimeSeries{}
	for _, chunk := range table.Column(valueIdx[0]).Data().Chunks() {
		arr, ok := chunk.(*array.Float64)
		if !ok {
			return models.TimeSeries{}, fmt.Errorf("coluna value com tipo inesperado %s", chunk.DataType())
		}
		series.Values = append(series.Values, arr.Float64Values()...)
	}

	md := table.Schema().Metadata()
	series.Name = metadataValue(md, metaName)
	series.Unit = metadataValue(md, metaUnit)
	if v := metadataValue(md, metaDt); v != "" {
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			series.Dt = time.Duration(ns)
		}
	}
	if v := metadataValue(md, metaT0); v != "" {
		if t0, err := time.Parse(time.RFC3339Nano, v); err == nil {
			series.T0 = t0.UTC()
		}
	}

	// Sem metadados, reconstrói T0 e dt pela coluna de tempo
	if len(times) > 0 && series.T0.IsZero() {
		series.T0 = time.Unix(0, times[0]).UTC()
	}
	if len(times) > 1 && series.Dt == 0 {
		series.Dt = time.Duration(times[1] - times[0])
	}
	return series, nil
}

func metadataValue(md arrow.Metadata, key string) string {
	if i := md.FindKey(key); i >= 0 {
		return md.Values()[i]
	}
	return ""
}

func listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("chave inválida: %q", key)
	}
	return nil
}
