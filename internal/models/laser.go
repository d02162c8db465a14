package models

import "time"

// TimeSeries é uma série temporal física de taxa fixa entregue ao backend
// de persistência
type TimeSeries struct {
	Name   string        `json:"name"`
	Unit   string        `json:"unit"`
	T0     time.Time     `json:"t0"`
	Dt     time.Duration `json:"dt"`
	Values []float64     `json:"values"`
}

// Len retorna o número de amostras da série
func (s TimeSeries) Len() int {
	return len(s.Values)
}

// TimeAt retorna o instante da i-ésima amostra
func (s TimeSeries) TimeAt(i int) time.Time {
	return s.T0.Add(time.Duration(i) * s.Dt)
}

// End retorna o instante seguinte à última amostra
func (s TimeSeries) End() time.Time {
	return s.TimeAt(len(s.Values))
}

// DatasetSummary resume um dataset adquirido
type DatasetSummary struct {
	Key       string        `json:"key"`
	Tag       string        `json:"tag"`
	File      string        `json:"file,omitempty"`
	Program   int           `json:"program"`
	Count     int           `json:"count"`
	Missing   int           `json:"missing"`
	Mean      float64       `json:"mean"`
	StdDev    float64       `json:"stdDev"`
	Min       float64       `json:"min"`
	Max       float64       `json:"max"`
	Dt        time.Duration `json:"dt"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
}

// LaserStatus representa o status atual da aquisição
type LaserStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastError      string    `json:"lastError,omitempty"`
	ErrorCount     int       `json:"errorCount,omitempty"`
	Program        int       `json:"program"`
	Cycles         int64     `json:"cycles"`
	ParseWarnings  int64     `json:"parseWarnings"`
	ConnectionInfo string    `json:"connectionInfo,omitempty"`
}

// ProgramInfo descreve o programa ativo do sensor
type ProgramInfo struct {
	Index        int               `json:"index"`
	Name         string            `json:"name"`
	Programs     int               `json:"programs"`
	Config       map[string]string `json:"config"`
	Dt           time.Duration     `json:"dt"`
	Frequency    int               `json:"frequency"`
	StorageSize  int               `json:"storageSize"`
	WaitingTime  int               `json:"waitingTime"`
	DerivedError string            `json:"derivedError,omitempty"`
}

// FileEntry representa um arquivo de dataset dentro de uma partição
type FileEntry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Keys    []string  `json:"keys,omitempty"`
	ModTime time.Time `json:"modTime"`
}
