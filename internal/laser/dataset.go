package laser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"lvdt_go/internal/models"
)

// MissingToken é o valor reportado pelo sensor para uma leitura inválida
const MissingToken = "FFFFFFF"

// Metadados da série física
const (
	SeriesName = "LVDT Laser"
	SeriesUnit = "um"
)

// diagTokens é o número de tokens guardados no início e no fim de um ParseWarning
const diagTokens = 10

// Option configura um Dataset
type Option func(*Dataset)

// WithClock define o relógio usado para carimbar as inserções
func WithClock(c clock.Clock) Option {
	return func(d *Dataset) {
		d.clock = c
	}
}

// Dataset acumula amostras do laser. StartTime é sempre EndTime - len(data)*dt.
// Não é seguro para uso concorrente.
type Dataset struct {
	config *ProgramConfig
	clock  clock.Clock
	data   []float64
	start  time.Time
	end    time.Time
}

// NewDataset cria um dataset vazio para o programa configurado
func NewDataset(cfg *ProgramConfig, opts ...Option) *Dataset {
	d := &Dataset{
		config: cfg,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	now := d.clock.Now().UTC()
	d.start = now
	d.end = now
	return d
}

// Insert adiciona amostras e avança a janela de tempo
func (d *Dataset) Insert(samples []float64) error {
	dt, err := d.config.Dt()
	if err != nil {
		return err
	}

	d.data = append(d.data, samples...)
	d.end = d.clock.Now().UTC()
	d.start = d.end.Add(-time.Duration(len(d.data)) * dt)
	return nil
}

// Ingest decodifica um frame bruto "meta,v1,v2,..." e insere as amostras.
// Um token inválido descarta o frame inteiro com um *ParseWarning.
func (d *Dataset) Ingest(frame string) error {
	parts := strings.Split(frame, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts[1:] {
		tokens = append(tokens, strings.TrimSpace(p))
	}

	samples := make([]float64, len(tokens))
	for i, tok := range tokens {
		if isMissing(tok) {
			samples[i] = math.NaN()
			continue
		}
		v, err := parseReading(tok)
		if err != nil {
			return &ParseWarning{
				Head:  head(tokens, diagTokens),
				Tail:  tail(tokens, diagTokens),
				Token: tok,
				Err:   err,
			}
		}
		samples[i] = v
	}

	return d.Insert(samples)
}

// HasMissingReadings informa se alguma amostra é NaN
func (d *Dataset) HasMissingReadings() bool {
	for _, v := range d.data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// ToTimeSeries converte o buffer em série física. Leituras ausentes viram
// zero e a série vem acompanhada de um *DataQualityWarning.
func (d *Dataset) ToTimeSeries() (models.TimeSeries, error) {
	dt, err := d.config.Dt()
	if err != nil {
		return models.TimeSeries{}, err
	}

	values := make([]float64, len(d.data))
	missing := 0
	for i, v := range d.data {
		if math.IsNaN(v) {
			missing++
			v = 0
		}
		values[i] = v
	}

	series := models.TimeSeries{
		Name:   SeriesName,
		Unit:   SeriesUnit,
		T0:     d.start,
		Dt:     dt,
		Values: values,
	}
	if missing > 0 {
		return series, &DataQualityWarning{Missing: missing}
	}
	return series, nil
}

// Summary calcula as estatísticas das leituras válidas
func (d *Dataset) Summary() models.DatasetSummary {
	valid := make([]float64, 0, len(d.data))
	for _, v := range d.data {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}

	summary := models.DatasetSummary{
		Program:   d.config.Index(),
		Count:     len(d.data),
		Missing:   len(d.data) - len(valid),
		StartTime: d.start,
		EndTime:   d.end,
	}
	if dt, err := d.config.Dt(); err == nil {
		summary.Dt = dt
	}

	if len(valid) > 0 {
		summary.Min = floats.Min(valid)
		summary.Max = floats.Max(valid)
		summary.Mean = stat.Mean(valid, nil)
	}
	if len(valid) > 1 {
		summary.StdDev = stat.StdDev(valid, nil)
	}
	return summary
}

// Len retorna o número de amostras
func (d *Dataset) Len() int {
	return len(d.data)
}

// Data retorna uma cópia das amostras
func (d *Dataset) Data() []float64 {
	out := make([]float64, len(d.data))
	copy(out, d.data)
	return out
}

// StartTime retorna o instante da primeira amostra
func (d *Dataset) StartTime() time.Time {
	return d.start
}

// EndTime retorna o instante da última inserção
func (d *Dataset) EndTime() time.Time {
	return d.end
}

// Config retorna a configuração de programa do dataset
func (d *Dataset) Config() *ProgramConfig {
	return d.config
}

// parseReading aceita apenas literais decimais. Estouro de faixa vira ±Inf.
func parseReading(tok string) (float64, error) {
	digits := strings.TrimLeft(tok, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, fmt.Errorf("literal hexadecimal não aceito: %q", tok)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	return v, err
}

func isMissing(tok string) bool {
	return strings.TrimLeft(tok, "+-") == MissingToken && len(tok) <= len(MissingToken)+1
}

func head(tokens []string, n int) []string {
	if len(tokens) < n {
		n = len(tokens)
	}
	return append([]string(nil), tokens[:n]...)
}

func tail(tokens []string, n int) []string {
	if len(tokens) < n {
		n = len(tokens)
	}
	return append([]string(nil), tokens[len(tokens)-n:]...)
}
