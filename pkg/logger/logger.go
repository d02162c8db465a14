package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level representa o nível de log
type Level int

const (
	// DEBUG nível para mensagens detalhadas de depuração
	DEBUG Level = iota
	// INFO nível para informações gerais
	INFO
	// WARN nível para avisos
	WARN
	// ERROR nível para erros
	ERROR
	// FATAL nível para erros fatais (encerra o programa)
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// String retorna o nome do nível
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return strings.TrimSpace(name)
	}
	return "UNKNOWN"
}

// ParseLevel converte o nome de um nível ("debug", "info", ...) em Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("nível de log desconhecido: %q", name)
}

// FileOptions controla a rotação dos arquivos de log
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	// Nível mínimo de log
	logLevel = INFO

	// Saídas de log
	logOutput     io.Writer = os.Stdout
	errorOutput   io.Writer = os.Stderr
	fileOutput    io.WriteCloser
	fileOutputErr io.WriteCloser

	// Formato de timestamp
	timeFormat = "2006-01-02 15:04:05.000"

	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger

	// Flag para incluir o nome do arquivo nos logs
	includeFile = true

	mu sync.Mutex

	initialized = false
)

// Init inicializa o logger
func Init() {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return
	}

	infoLogger = log.New(logOutput, "", 0)
	warnLogger = log.New(logOutput, "", 0)
	errorLogger = log.New(errorOutput, "", 0)
	debugLogger = log.New(logOutput, "", 0)

	initialized = true
}

// SetLevel define o nível mínimo de log
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = level
}

// GetLevel retorna o nível atual de log
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return logLevel
}

// IsDebugEnabled verifica se o nível de debug está habilitado
func IsDebugEnabled() bool {
	return GetLevel() <= DEBUG
}

// SetOutput define a saída para todos os logs
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	logOutput = w
	errorOutput = w

	infoLogger = log.New(w, "", 0)
	warnLogger = log.New(w, "", 0)
	errorLogger = log.New(w, "", 0)
	debugLogger = log.New(w, "", 0)
	initialized = true
}

// EnableFileLogging habilita o log para arquivo com rotação por tamanho.
// Erros vão também para um arquivo <prefix>_error.log separado.
func EnableFileLogging(logDir, prefix string, opts FileOptions) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	if prefix == "" {
		prefix = "app"
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 50
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, prefix+".log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	errFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, prefix+"_error.log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	// Fechar arquivos anteriores, se existirem
	if fileOutput != nil {
		fileOutput.Close()
	}
	if fileOutputErr != nil {
		fileOutputErr.Close()
	}

	fileOutput = logFile
	fileOutputErr = errFile

	// Saídas mistas (terminal + arquivo)
	multiOut := io.MultiWriter(logOutput, logFile)
	multiErr := io.MultiWriter(errorOutput, errFile)

	infoLogger = log.New(multiOut, "", 0)
	warnLogger = log.New(multiOut, "", 0)
	debugLogger = log.New(multiOut, "", 0)
	errorLogger = log.New(multiErr, "", 0)
	initialized = true

	return nil
}

// Sync fecha os arquivos de log abertos
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	if fileOutput != nil {
		fileOutput.Close()
		fileOutput = nil
	}
	if fileOutputErr != nil {
		fileOutputErr.Close()
		fileOutputErr = nil
	}
}

// GetLogger retorna um *log.Logger que pode ser usado por outros pacotes
func GetLogger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return infoLogger
}

// logMessage escreve uma mensagem de log com o nível especificado
func logMessage(level Level, format string, args ...interface{}) {
	mu.Lock()
	minLevel := logLevel
	mu.Unlock()

	if level < minLevel {
		return
	}

	timestamp := time.Now().Format(timeFormat)

	var loggerToUse *log.Logger
	mu.Lock()
	switch level {
	case DEBUG:
		loggerToUse = debugLogger
	case INFO:
		loggerToUse = infoLogger
	case WARN:
		loggerToUse = warnLogger
	case ERROR, FATAL:
		loggerToUse = errorLogger
	}
	mu.Unlock()
	prefix := levelNames[level]

	// Fonte do log (arquivo e linha)
	var source string
	if includeFile {
		_, file, line, ok := runtime.Caller(2)
		if ok {
			file = filepath.Base(file)
			source = fmt.Sprintf(" [%s:%d]", file, line)
		}
	}

	var msg string
	if len(args) == 0 {
		msg = format
	} else {
		msg = fmt.Sprintf(format, args...)
	}

	if loggerToUse == nil {
		// Fallback para stderr
		fmt.Fprintf(os.Stderr, "[%s] %s%s: %s\n", timestamp, prefix, source, msg)
	} else {
		loggerToUse.Printf("[%s] %s%s: %s", timestamp, prefix, source, msg)
	}

	if level == FATAL {
		panic(msg)
	}
}

// Debug escreve mensagem de log com nível DEBUG
func Debug(msg string) {
	logMessage(DEBUG, "%s", msg)
}

// Debugf escreve mensagem de log formatada com nível DEBUG
func Debugf(format string, args ...interface{}) {
	logMessage(DEBUG, format, args...)
}

// Info escreve mensagem de log com nível INFO
func Info(msg string) {
	logMessage(INFO, "%s", msg)
}

// Infof escreve mensagem de log formatada com nível INFO
func Infof(format string, args ...interface{}) {
	logMessage(INFO, format, args...)
}

// Warn escreve mensagem de log com nível WARN
func Warn(msg string) {
	logMessage(WARN, "%s", msg)
}

// Warnf escreve mensagem de log formatada com nível WARN
func Warnf(format string, args ...interface{}) {
	logMessage(WARN, format, args...)
}

// Error escreve mensagem de log com nível ERROR
func Error(msg string, err error) {
	if err != nil {
		logMessage(ERROR, "%s: %v", msg, err)
	} else {
		logMessage(ERROR, "%s", msg)
	}
}

// Errorf escreve mensagem de log formatada com nível ERROR
func Errorf(format string, args ...interface{}) {
	logMessage(ERROR, format, args...)
}

// Fatal escreve mensagem de log com nível FATAL e encerra o programa
func Fatal(msg string, err error) {
	if err != nil {
		logMessage(FATAL, "%s: %v", msg, err)
	} else {
		logMessage(FATAL, "%s", msg)
	}
}

// Fatalf escreve mensagem de log formatada com nível FATAL e encerra o programa
func Fatalf(format string, args ...interface{}) {
	logMessage(FATAL, format, args...)
}
