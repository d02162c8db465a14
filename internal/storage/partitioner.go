package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lvdt_go/pkg/logger"
	"lvdt_go/pkg/utils"
)

// DefaultTag é usada quando a tag informada não é conhecida
const DefaultTag = "test"

// KnownTags são as tags reconhecidas por padrão
var KnownTags = []string{"test", "experiment", "calibration", "temp"}

// PartitionerOption configura um PathPartitioner
type PartitionerOption func(*PathPartitioner)

// WithTags acrescenta tags reconhecidas além das padrão
func WithTags(tags ...string) PartitionerOption {
	return func(p *PathPartitioner) {
		for _, t := range tags {
			if t = normalizeTag(t); t != "" {
				p.tags[t] = struct{}{}
			}
		}
	}
}

// PathPartitioner resolve diretórios root/tag/YYYY/MM/DD. Guarda em cache
// apenas a parte da data e os diretórios já criados nessa data. Não é
// seguro para uso concorrente.
type PathPartitioner struct {
	root        string
	tags        map[string]struct{}
	currentDate string
	datePart    string
	ensured     map[string]struct{}
}

// NewPathPartitioner cria o particionador e o diretório raiz, se necessário
func NewPathPartitioner(root string, opts ...PartitionerOption) (*PathPartitioner, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("diretório raiz não informado")
	}

	p := &PathPartitioner{
		root:    filepath.Clean(root),
		tags:    make(map[string]struct{}, len(KnownTags)),
		ensured: make(map[string]struct{}),
	}
	for _, t := range KnownTags {
		p.tags[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := os.MkdirAll(p.root, 0755); err != nil {
		return nil, err
	}
	return p, nil
}

// Root retorna o diretório raiz
func (p *PathPartitioner) Root() string {
	return p.root
}

// KnownTag retorna a tag normalizada, ou DefaultTag se ela não é reconhecida
func (p *PathPartitioner) KnownTag(tag string) string {
	t := normalizeTag(tag)
	if _, ok := p.tags[t]; ok {
		return t
	}
	if logger.IsDebugEnabled() {
		logger.Debugf("Tag desconhecida %q, usando %q", tag, DefaultTag)
	}
	return DefaultTag
}

// Tags retorna as tags reconhecidas
func (p *PathPartitioner) Tags() []string {
	out := make([]string, 0, len(p.tags))
	for t := range p.tags {
		out = append(out, t)
	}
	return out
}

// Path calcula o diretório sem tocar no cache nem no disco
func (p *PathPartitioner) Path(tag string, instant time.Time) string {
	return filepath.Join(p.root, p.KnownTag(tag), utils.DatePath(instant))
}

// Resolve calcula o diretório da tag na data de instant e garante que ele
// exista. Erros do sistema de arquivos são retornados sem alteração.
func (p *PathPartitioner) Resolve(tag string, instant time.Time) (string, error) {
	stamp := utils.DateStamp(instant)
	if stamp != p.currentDate {
		p.currentDate = stamp
		p.datePart = utils.DatePath(instant)
		p.ensured = make(map[string]struct{})
	}

	dir := filepath.Join(p.root, p.KnownTag(tag), p.datePart)
	if _, ok := p.ensured[dir]; ok {
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	p.ensured[dir] = struct{}{}
	return dir, nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
