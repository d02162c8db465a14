package laser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Program é um preset nomeado de valores, indexado pelo nome do campo
type Program struct {
	Name   string            `yaml:"name" json:"name"`
	Values map[string]string `yaml:"values" json:"values"`
}

// Catalog é a sequência ordenada de programas
type Catalog []Program

// defaultProgramTuple é o programa padrão do sensor, na ordem do template
var defaultProgramTuple = []string{
	"+500.000, -500.000, 0000.000",
	"1",
	"0",
	"+000.000, +000.000, +999.999, +999.999",
	"0",
	"0",
	"0",
	"4",
	"+000.000",
	"0",
	"8",
	"0060000,1",
}

// ProgramFromTuple monta um Program a partir de valores posicionais
func ProgramFromTuple(name string, template RawConfigTemplate, values []string) (Program, error) {
	if len(values) != len(template) {
		return Program{}, &ConfigurationError{
			Reason:    ReasonCatalogMismatch,
			Requested: -1,
			Field:     fmt.Sprintf("%s: %d valores para %d campos", name, len(values), len(template)),
		}
	}
	p := Program{Name: name, Values: make(map[string]string, len(values))}
	for i, f := range template {
		p.Values[f.Name] = values[i]
	}
	return p, nil
}

// DefaultCatalog retorna o catálogo embutido com o programa padrão
func DefaultCatalog() Catalog {
	p, err := ProgramFromTuple("default", DefaultTemplate, defaultProgramTuple)
	if err != nil {
		panic(err)
	}
	return Catalog{p}
}

// Validate verifica que cada programa tem exatamente os campos do template
func (c Catalog) Validate(template RawConfigTemplate) error {
	if len(c) == 0 {
		return &ConfigurationError{Reason: ReasonCatalogMismatch, Requested: -1, Field: "catálogo vazio"}
	}
	for i, p := range c {
		if len(p.Values) != len(template) {
			return &ConfigurationError{
				Reason:    ReasonCatalogMismatch,
				Requested: i,
				Max:       len(c) - 1,
				Field:     fmt.Sprintf("%d valores para %d campos", len(p.Values), len(template)),
			}
		}
		for _, f := range template {
			if _, ok := p.Values[f.Name]; !ok {
				return &ConfigurationError{
					Reason:    ReasonCatalogMismatch,
					Requested: i,
					Max:       len(c) - 1,
					Field:     "falta " + f.Name,
				}
			}
		}
	}
	return nil
}

type catalogFile struct {
	Programs Catalog `yaml:"programs"`
}

// LoadCatalog lê um catálogo YAML. Caminho vazio retorna o catálogo padrão.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler catálogo %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("erro ao decodificar catálogo %s: %w", path, err)
	}

	for i := range file.Programs {
		if file.Programs[i].Name == "" {
			file.Programs[i].Name = fmt.Sprintf("program_%d", i)
		}
	}

	if err := file.Programs.Validate(DefaultTemplate); err != nil {
		return nil, err
	}
	return file.Programs, nil
}
