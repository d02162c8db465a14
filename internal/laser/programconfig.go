package laser

import (
	"strconv"
	"strings"
	"time"
)

// ResolvedField é o comando completo (prefixo + valor) de um campo
type ResolvedField struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// ResolvedConfig é a configuração resolvida do programa ativo, na ordem do template
type ResolvedConfig []ResolvedField

// Map retorna a configuração resolvida como mapa nome -> comando
func (r ResolvedConfig) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, f := range r {
		m[f.Name] = f.Command
	}
	return m
}

// Get retorna o comando de um campo
func (r ResolvedConfig) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Command, true
		}
	}
	return "", false
}

// ProgramConfig mantém o catálogo de programas e a configuração derivada do
// programa ativo. Não é seguro para uso concorrente.
type ProgramConfig struct {
	catalog  Catalog
	template RawConfigTemplate
	rates    map[int]time.Duration
	index    int
	resolved ResolvedConfig
}

// NewProgramConfig valida o catálogo e seleciona o programa inicial
func NewProgramConfig(catalog Catalog, index int) (*ProgramConfig, error) {
	return newProgramConfig(catalog, DefaultTemplate, SamplingRateTable, index)
}

func newProgramConfig(catalog Catalog, template RawConfigTemplate, rates map[int]time.Duration, index int) (*ProgramConfig, error) {
	if err := catalog.Validate(template); err != nil {
		return nil, err
	}
	pc := &ProgramConfig{
		catalog:  catalog,
		template: template,
		rates:    rates,
		index:    -1,
	}
	if err := pc.SelectProgram(index); err != nil {
		return nil, err
	}
	return pc, nil
}

// SelectProgram troca o programa ativo e recalcula a configuração resolvida.
// Em caso de erro o estado anterior é mantido.
func (pc *ProgramConfig) SelectProgram(index int) error {
	if index < 0 || index >= len(pc.catalog) {
		return &ConfigurationError{
			Reason:    ReasonProgramOutOfRange,
			Requested: index,
			Max:       len(pc.catalog) - 1,
		}
	}

	program := pc.catalog[index]
	resolved := make(ResolvedConfig, len(pc.template))
	for i, f := range pc.template {
		resolved[i] = ResolvedField{Name: f.Name, Command: f.Prefix + program.Values[f.Name]}
	}

	pc.index = index
	pc.resolved = resolved
	return nil
}

// Index retorna o índice do programa ativo
func (pc *ProgramConfig) Index() int {
	return pc.index
}

// Program retorna uma cópia do programa ativo
func (pc *ProgramConfig) Program() Program {
	p := pc.catalog[pc.index]
	values := make(map[string]string, len(p.Values))
	for k, v := range p.Values {
		values[k] = v
	}
	return Program{Name: p.Name, Values: values}
}

// Len retorna o número de programas do catálogo
func (pc *ProgramConfig) Len() int {
	return len(pc.catalog)
}

// FieldIndex retorna a posição do campo no template
func (pc *ProgramConfig) FieldIndex(name string) (int, error) {
	if i := pc.template.Index(name); i >= 0 {
		return i, nil
	}
	return -1, &NotFoundError{Name: name}
}

// ResolvedConfig retorna uma cópia da configuração resolvida
func (pc *ProgramConfig) ResolvedConfig() ResolvedConfig {
	out := make(ResolvedConfig, len(pc.resolved))
	copy(out, pc.resolved)
	return out
}

// Commands retorna os comandos de programação do sensor na ordem do template
func (pc *ProgramConfig) Commands() []string {
	cmds := make([]string, len(pc.resolved))
	for i, f := range pc.resolved {
		cmds[i] = f.Command
	}
	return cmds
}

// Dt retorna o intervalo de amostragem do programa ativo
func (pc *ProgramConfig) Dt() (time.Duration, error) {
	token, err := pc.token(FieldSamplingCycle, 1)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(token)
	if err != nil {
		return 0, &ConfigurationError{Reason: ReasonMalformedField, Requested: pc.index, Field: FieldSamplingCycle, Value: token}
	}
	dt, ok := pc.rates[code]
	if !ok || dt <= 0 {
		return 0, &ConfigurationError{Reason: ReasonUnknownSamplingCode, Requested: code, Max: len(pc.rates) - 1}
	}
	return dt, nil
}

// Frequency retorna a frequência de amostragem em Hz (truncada)
func (pc *ProgramConfig) Frequency() (int, error) {
	dt, err := pc.Dt()
	if err != nil {
		return 0, err
	}
	return int(time.Second / dt), nil
}

// StorageSize retorna o número de amostras armazenadas pelo sensor
func (pc *ProgramConfig) StorageSize() (int, error) {
	token, err := pc.token(FieldDataStorage, 2)
	if err != nil {
		return 0, err
	}
	size, err := strconv.Atoi(token)
	if err != nil || size < 0 {
		return 0, &ConfigurationError{Reason: ReasonMalformedField, Requested: pc.index, Field: FieldDataStorage, Value: token}
	}
	return size, nil
}

// WaitingTime retorna o tempo de aquisição em segundos inteiros (dt * storageSize)
func (pc *ProgramConfig) WaitingTime() (int, error) {
	dt, err := pc.Dt()
	if err != nil {
		return 0, err
	}
	size, err := pc.StorageSize()
	if err != nil {
		return 0, err
	}
	return int(time.Duration(size) * dt / time.Second), nil
}

// token retorna o n-ésimo token, contado do fim, do comando resolvido
func (pc *ProgramConfig) token(field string, fromEnd int) (string, error) {
	cmd, ok := pc.resolved.Get(field)
	if !ok {
		return "", &NotFoundError{Name: field}
	}
	parts := strings.Split(cmd, ",")
	if len(parts) < fromEnd {
		return "", &ConfigurationError{Reason: ReasonMalformedField, Requested: pc.index, Field: field, Value: cmd}
	}
	return strings.TrimSpace(parts[len(parts)-fromEnd]), nil
}
