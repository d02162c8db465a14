package utils

import (
	"fmt"
	"time"
)

const (
	// DatePathLayout separa ano, mês e dia em diretórios (YYYY/MM/DD)
	DatePathLayout = "2006/01/02"
	// DateStampLayout é o prefixo de data dos nomes de arquivo (YYYYMMDD)
	DateStampLayout = "20060102"
)

// NowUTC retorna o instante atual em UTC
func NowUTC() time.Time {
	return time.Now().UTC()
}

// DatePath formata a data UTC de t como YYYY/MM/DD
func DatePath(t time.Time) string {
	return t.UTC().Format(DatePathLayout)
}

// DateStamp formata a data UTC de t como YYYYMMDD
func DateStamp(t time.Time) string {
	return t.UTC().Format(DateStampLayout)
}

// FormatDuration formata uma duração para exibição amigável
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour

	m := d / time.Minute
	d -= m * time.Minute

	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// ParseDate interpreta uma data de consulta (YYYY-MM-DD ou YYYYMMDD) em UTC
func ParseDate(value string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		DateStampLayout,
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("formato de data não reconhecido: %s", value)
}
