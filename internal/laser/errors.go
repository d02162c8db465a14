package laser

import (
	"errors"
	"fmt"
)

// Motivos de ConfigurationError
const (
	ReasonProgramOutOfRange   = "program out of range"
	ReasonUnknownSamplingCode = "unknown sampling code"
	ReasonCatalogMismatch     = "catalog does not match template"
	ReasonMalformedField      = "malformed field"
)

// ConfigurationError indica uma configuração de programa inválida. É fatal
// para a operação que a retornou.
// Requested é -1 quando o erro não se refere a um índice de programa.
type ConfigurationError struct {
	Reason    string
	Requested int
	Max       int
	Field     string
	Value     string
}

func (e *ConfigurationError) Error() string {
	switch e.Reason {
	case ReasonProgramOutOfRange:
		return fmt.Sprintf("programa fora do intervalo: solicitado %d, máximo %d", e.Requested, e.Max)
	case ReasonUnknownSamplingCode:
		return fmt.Sprintf("código de amostragem desconhecido: %d", e.Requested)
	case ReasonCatalogMismatch:
		if e.Requested < 0 {
			return fmt.Sprintf("catálogo incompatível com o template: %s", e.Field)
		}
		return fmt.Sprintf("catálogo incompatível com o template: programa %d (%s)", e.Requested, e.Field)
	default:
		return fmt.Sprintf("configuração inválida (%s): campo %s = %q", e.Reason, e.Field, e.Value)
	}
}

// NotFoundError indica que um campo não existe no template
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("campo não encontrado no template: %s", e.Name)
}

// ParseWarning indica um frame rejeitado por conter um token inválido.
// Head e Tail guardam os 10 primeiros e os 10 últimos tokens brutos.
type ParseWarning struct {
	Head  []string
	Tail  []string
	Token string
	Err   error
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("frame descartado, token inválido %q (início %v, fim %v)", w.Token, w.Head, w.Tail)
}

func (w *ParseWarning) Unwrap() error {
	return w.Err
}

// DataQualityWarning indica leituras ausentes substituídas por zero
type DataQualityWarning struct {
	Missing int
}

func (w *DataQualityWarning) Error() string {
	return fmt.Sprintf("%d leituras ausentes substituídas por zero", w.Missing)
}

// IsWarning informa se o erro é um aviso recuperável
func IsWarning(err error) bool {
	var pw *ParseWarning
	var dq *DataQualityWarning
	return errors.As(err, &pw) || errors.As(err, &dq)
}
