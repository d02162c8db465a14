package laser

import "time"

// OutputChannel é o canal de saída usado nos comandos do sensor
const OutputChannel = "01"

// Comandos de armazenamento do sensor
const (
	CmdStorageInit   = "AQ"
	CmdStorageStart  = "AS"
	CmdStorageStatus = "AN"
	CmdStorageStop   = "AP"
	CmdStorageFetch  = "AO," + OutputChannel
)

// Nomes dos campos do template
const (
	FieldTolerance             = "Tolerance"
	FieldSetStorage            = "SetStorage"
	FieldSurfaceToBeMeasured   = "SurfaceToBeMeasured"
	FieldScaling               = "Scaling"
	FieldFilter                = "Filter"
	FieldMeasurementModeSensor = "MeasurementModeSensor"
	FieldMeasurementModeTarget = "MeasurementModeTarget"
	FieldTriggerMode           = "TriggerMode"
	FieldOffset                = "Offset"
	FieldMeasurementType       = "MeasurementType"
	FieldSamplingCycle         = "SamplingCycle"
	FieldDataStorage           = "DataStorage"
)

// ConfigField associa um campo ao prefixo fixo do comando
type ConfigField struct {
	Name   string
	Prefix string
}

// RawConfigTemplate é a lista ordenada de campos de configuração
type RawConfigTemplate []ConfigField

// DefaultTemplate é o template de comandos do sensor
var DefaultTemplate = RawConfigTemplate{
	{FieldTolerance, "SW,LM," + OutputChannel + ","},
	{FieldSetStorage, "SW,OK," + OutputChannel + ","},
	{FieldSurfaceToBeMeasured, "SW,OA,T," + OutputChannel + ","},
	{FieldScaling, "SW,OB," + OutputChannel + ","},
	{FieldFilter, "SW,OC," + OutputChannel + ",0,"},
	{FieldMeasurementModeSensor, "SW,OD," + OutputChannel + ","},
	{FieldMeasurementModeTarget, "SW,HB," + OutputChannel + ","},
	{FieldTriggerMode, "SW,OE,M," + OutputChannel + ","},
	{FieldOffset, "SW,OF," + OutputChannel + ","},
	{FieldMeasurementType, "SW,OI," + OutputChannel + ","},
	{FieldSamplingCycle, "SW,CA,"},
	{FieldDataStorage, "SW,CF,"},
}

// Index retorna a posição do campo ou -1
func (t RawConfigTemplate) Index(name string) int {
	for i, f := range t {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Names retorna os nomes dos campos na ordem do template
func (t RawConfigTemplate) Names() []string {
	names := make([]string, len(t))
	for i, f := range t {
		names[i] = f.Name
	}
	return names
}

// SamplingRateTable mapeia o código do ciclo de amostragem para o intervalo
var SamplingRateTable = map[int]time.Duration{
	0: 2550 * time.Nanosecond,
	1: 5 * time.Microsecond,
	2: 10 * time.Microsecond,
	3: 20 * time.Microsecond,
	4: 50 * time.Microsecond,
	5: 100 * time.Microsecond,
	6: 200 * time.Microsecond,
	7: 500 * time.Microsecond,
	8: 1000 * time.Microsecond,
}
