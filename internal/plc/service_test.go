package plc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lvdt_go/internal/config"
	"lvdt_go/internal/models"
	"lvdt_go/pkg/utils"
)

type fakeWriter struct {
	mu     sync.Mutex
	db     int
	blocks [][]byte
}

func (f *fakeWriter) WriteDataBlock(dbNumber int, _ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.db = dbNumber
	f.blocks = append(f.blocks, append([]byte(nil), data...))
	return nil
}

func (f *fakeWriter) Disconnect() {}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blocks)
}

func TestEncodeSummaryLayout(t *testing.T) {
	block := EncodeSummary(models.DatasetSummary{
		Count:   60000,
		Mean:    12.5,
		Min:     -3.25,
		Max:     40,
		Missing: 7,
	}, "parse_warning")

	require.Len(t, block, SummaryBlockSize)
	assert.Equal(t, int32(60000), utils.BytesToInt32(block[OffsetCount:OffsetCount+4]))
	assert.Equal(t, float32(12.5), utils.BytesToFloat32(block[OffsetMean:OffsetMean+4]))
	assert.Equal(t, float32(-3.25), utils.BytesToFloat32(block[OffsetMin:OffsetMin+4]))
	assert.Equal(t, float32(40), utils.BytesToFloat32(block[OffsetMax:OffsetMax+4]))
	assert.Equal(t, int32(7), utils.BytesToInt32(block[OffsetMissing:OffsetMissing+4]))
	assert.Equal(t, StatusCodeParseWarning, utils.BytesToInt16(block[OffsetStatus:OffsetStatus+2]))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, StatusCodeOK, StatusCode("ok"))
	assert.Equal(t, StatusCodeCommFailure, StatusCode("comm_failure"))
	assert.Equal(t, StatusCodeUnknown, StatusCode("initializing"))
}

func TestServiceWritesLatestSummary(t *testing.T) {
	writer := &fakeWriter{}
	svc := newPLCService(config.PLCConfig{Enabled: true, DBNumber: 20, UpdateRate: 10 * time.Millisecond}, writer)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	svc.UpdateSummary(models.DatasetSummary{Count: 5}, "ok")

	require.Eventually(t, func() bool { return writer.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	// Sem novo resumo não há nova escrita
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, writer.count())

	writer.mu.Lock()
	assert.Equal(t, 20, writer.db)
	assert.Equal(t, int32(5), utils.BytesToInt32(writer.blocks[0][:4]))
	writer.mu.Unlock()
}

func TestDisabledServiceIgnoresUpdates(t *testing.T) {
	writer := &fakeWriter{}
	svc := newPLCService(config.PLCConfig{Enabled: false}, writer)
	require.NoError(t, svc.Start())

	svc.UpdateSummary(models.DatasetSummary{Count: 1}, "ok")
	assert.False(t, svc.IsRunning())
	assert.Equal(t, 0, writer.count())
	assert.NoError(t, svc.Shutdown())
}
