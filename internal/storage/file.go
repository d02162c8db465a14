package storage

import (
	"path/filepath"
	"strings"
	"time"

	"lvdt_go/pkg/utils"
)

// DefaultBaseName é o nome base usado quando nenhum é informado
const DefaultBaseName = "data"

// FileDescriptor identifica o arquivo de um dataset dentro da hierarquia
type FileDescriptor struct {
	Directory string `json:"directory"`
	Filename  string `json:"filename"`
}

// Path retorna o caminho completo do arquivo
func (fd FileDescriptor) Path() string {
	return filepath.Join(fd.Directory, fd.Filename)
}

// DatasetFile gera descritores YYYYMMDD_base nos diretórios do particionador
type DatasetFile struct {
	partitioner *PathPartitioner
}

// NewDatasetFile cria um gerador de descritores
func NewDatasetFile(p *PathPartitioner) *DatasetFile {
	return &DatasetFile{partitioner: p}
}

// Partitioner retorna o particionador usado
func (f *DatasetFile) Partitioner() *PathPartitioner {
	return f.partitioner
}

// ForTag resolve o diretório da tag e monta o nome do arquivo na data de instant
func (f *DatasetFile) ForTag(tag, baseName string, instant time.Time) (FileDescriptor, error) {
	dir, err := f.partitioner.Resolve(tag, instant)
	if err != nil {
		return FileDescriptor{}, err
	}
	return FileDescriptor{
		Directory: dir,
		Filename:  Filename(baseName, instant),
	}, nil
}

// Filename monta o nome YYYYMMDD_base com a data UTC de instant
func Filename(baseName string, instant time.Time) string {
	base := strings.ToLower(strings.TrimSpace(baseName))
	if base == "" {
		base = DefaultBaseName
	}
	return utils.DateStamp(instant) + "_" + base
}
