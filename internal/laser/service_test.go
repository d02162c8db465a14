package laser

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lvdt_go/internal/config"
	"lvdt_go/internal/models"
	"lvdt_go/internal/storage"
)

// scriptedTransport responde AO,01 com frame e registra os comandos
type scriptedTransport struct {
	mu       sync.Mutex
	frame    string
	failOn   string
	commands []string
}

func (f *scriptedTransport) SendCommand(cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	if cmd == f.failOn {
		return "", errors.New("conexão perdida")
	}
	if cmd == CmdStorageFetch {
		return f.frame, nil
	}
	return cmd, nil
}

func (f *scriptedTransport) IsConnected() bool { return true }
func (f *scriptedTransport) Close()            {}

func (f *scriptedTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type recordingMirror struct {
	mu    sync.Mutex
	paths []string
}

func (m *recordingMirror) Upload(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, p)
	return nil
}

func shortCatalog(t *testing.T) Catalog {
	// 100 amostras a 1ms: espera truncada para 0s
	return Catalog{
		programWithCode(t, "short", "8", "0000100,1"),
		programWithCode(t, "other", "5", "0000100,1"),
	}
}

func newTestService(t *testing.T, catalog Catalog, transport *scriptedTransport, opts ...ServiceOption) (*Service, *clock.Mock, string) {
	t.Helper()
	pc, err := NewProgramConfig(catalog, 0)
	require.NoError(t, err)

	root := t.TempDir()
	p, err := storage.NewPathPartitioner(root)
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	cfg := config.LaserConfig{Host: "sensor", Port: 24685, Tag: "Experiment", BaseName: "Run", MaxConsecutiveErrors: 2}
	opts = append([]ServiceOption{WithTransport(transport), WithServiceClock(mock)}, opts...)
	svc, err := NewService(cfg, pc, storage.NewDatasetFile(p), storage.NewParquetBackend(), opts...)
	require.NoError(t, err)
	return svc, mock, root
}

func TestRunCycleProgramsStoresAndPersists(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0,FFFFFFF,3.0"}
	mirror := &recordingMirror{}
	svc, _, root := newTestService(t, shortCatalog(t), transport, WithMirror(mirror))

	var handled []models.DatasetSummary
	svc.RegisterSummaryHandler(func(s models.DatasetSummary) { handled = append(handled, s) })

	summary, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)

	sent := transport.sent()
	require.Len(t, sent, len(DefaultTemplate)+4)
	assert.Equal(t, "SW,LM,01,+500.000, -500.000, 0000.000", sent[0])
	assert.Equal(t, []string{CmdStorageInit, CmdStorageStart, CmdStorageStop, CmdStorageFetch}, sent[len(DefaultTemplate):])

	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, "experiment", summary.Tag)
	assert.Equal(t, root+"/experiment/2024/03/15/20240315_run", summary.File)
	require.Len(t, handled, 1)
	assert.Equal(t, StatusOK, svc.GetStatus().Status)
	assert.Equal(t, int64(1), svc.GetStatus().Cycles)
	require.NotNil(t, svc.GetLastSummary())

	require.Len(t, mirror.paths, 1)
	_, err = os.Stat(mirror.paths[0])
	assert.NoError(t, err)

	// Segundo ciclo não reprograma o sensor
	_, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, transport.sent(), len(DefaultTemplate)+8)

	entries, err := svc.ListFiles("experiment", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{DatasetKey}, entries[0].Keys)
}

func TestRunCycleParseWarningSkipsFrame(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0,garbage"}
	svc, _, _ := newTestService(t, shortCatalog(t), transport)

	summary, err := svc.RunCycle(context.Background())
	assert.Nil(t, summary)
	var pw *ParseWarning
	require.True(t, errors.As(err, &pw))

	status := svc.GetStatus()
	assert.Equal(t, StatusParseWarning, status.Status)
	assert.Equal(t, int64(1), status.ParseWarnings)
	assert.Nil(t, svc.GetLastSummary())
}

func TestRunCycleCommFailure(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0", failOn: CmdStorageStart}
	svc, _, _ := newTestService(t, shortCatalog(t), transport)

	_, err := svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.NotEqual(t, StatusCommFailure, svc.GetStatus().Status)

	_, err = svc.RunCycle(context.Background())
	require.Error(t, err)
	status := svc.GetStatus()
	assert.Equal(t, StatusCommFailure, status.Status)
	assert.Equal(t, 2, status.ErrorCount)

	// Após a falha o sensor é reprogramado
	sent := transport.sent()
	assert.Len(t, sent, 2*(len(DefaultTemplate)+2))
}

func TestRunCycleWaitsForStorage(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0,2.0"}
	svc, mock, _ := newTestService(t, DefaultCatalog(), transport)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunCycle(context.Background())
		done <- err
	}()

	var err error
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Second)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, err)

	summary := svc.GetLastSummary()
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Count)
}

func TestRunCycleCancelledDuringWait(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0"}
	svc, _, _ := newTestService(t, DefaultCatalog(), transport)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.RunCycle(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		sent := transport.sent()
		return len(sent) > 0 && sent[len(sent)-1] == CmdStorageStart
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ciclo não terminou após cancelamento")
	}
	sent := transport.sent()
	assert.Equal(t, CmdStorageStop, sent[len(sent)-1])
}

func TestSelectProgram(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0"}
	svc, _, _ := newTestService(t, shortCatalog(t), transport)

	err := svc.SelectProgram(5)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, svc.GetProgramInfo().Index)

	require.NoError(t, svc.SelectProgram(1))
	info := svc.GetProgramInfo()
	assert.Equal(t, 1, info.Index)
	assert.Equal(t, "other", info.Name)
	assert.Equal(t, 100*time.Microsecond, info.Dt)
	assert.Equal(t, 10000, info.Frequency)
	assert.Equal(t, 100, info.StorageSize)
	assert.Equal(t, "SW,CA,5", info.Config[FieldSamplingCycle])
	assert.Equal(t, -1, svc.PendingProgram())

	_, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, transport.sent(), "SW,CA,5")
}

func TestStartStop(t *testing.T) {
	transport := &scriptedTransport{frame: "AO,1.0"}
	svc, _, _ := newTestService(t, shortCatalog(t), transport)
	svc.config.CyclePause = time.Hour

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	require.Eventually(t, func() bool { return svc.GetLastSummary() != nil }, 2*time.Second, 5*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	assert.Equal(t, StatusStopped, svc.GetStatus().Status)
}
