package laser

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDataset(t *testing.T) (*Dataset, *clock.Mock) {
	t.Helper()
	pc, err := NewProgramConfig(DefaultCatalog(), 0)
	require.NoError(t, err)
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	return NewDataset(pc, WithClock(mock)), mock
}

func TestInsertEmptyKeepsStartEqualEnd(t *testing.T) {
	ds, _ := newTestDataset(t)

	require.NoError(t, ds.Insert(nil))
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, ds.StartTime(), ds.EndTime())
}

func TestInsertAppendsAndRecomputesStart(t *testing.T) {
	ds, mock := newTestDataset(t)

	require.NoError(t, ds.Insert([]float64{1, 2, 3}))
	mock.Add(5 * time.Second)
	require.NoError(t, ds.Insert([]float64{4}))

	assert.Equal(t, []float64{1, 2, 3, 4}, ds.Data())
	assert.Equal(t, mock.Now().UTC(), ds.EndTime())
	assert.Equal(t, ds.EndTime().Add(-4*time.Millisecond), ds.StartTime())
}

func TestInsertFailsWithoutMutationOnBadDt(t *testing.T) {
	pc, err := NewProgramConfig(Catalog{programWithCode(t, "bad", "42", "0001000,1")}, 0)
	require.NoError(t, err)
	ds := NewDataset(pc, WithClock(clock.NewMock()))
	end := ds.EndTime()

	err = ds.Insert([]float64{1})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, end, ds.EndTime())
}

func TestIngestMapsSentinelToNaN(t *testing.T) {
	ds, _ := newTestDataset(t)

	require.NoError(t, ds.Ingest("meta,1.0,2.0,FFFFFFF,3.0"))

	data := ds.Data()
	require.Len(t, data, 4)
	assert.Equal(t, 1.0, data[0])
	assert.Equal(t, 2.0, data[1])
	assert.True(t, math.IsNaN(data[2]))
	assert.Equal(t, 3.0, data[3])
	assert.True(t, ds.HasMissingReadings())
}

func TestIngestSignedSentinelAndSpaces(t *testing.T) {
	ds, _ := newTestDataset(t)

	require.NoError(t, ds.Ingest("AO, +012.345 ,-FFFFFFF,+FFFFFFF, -001.000"))

	data := ds.Data()
	require.Len(t, data, 4)
	assert.Equal(t, 12.345, data[0])
	assert.True(t, math.IsNaN(data[1]))
	assert.True(t, math.IsNaN(data[2]))
	assert.Equal(t, -1.0, data[3])
}

func TestIngestRejectsWholeFrame(t *testing.T) {
	ds, _ := newTestDataset(t)
	require.NoError(t, ds.Ingest("meta,9.0"))

	err := ds.Ingest("meta,1.0,oops,3.0")
	var pw *ParseWarning
	require.True(t, errors.As(err, &pw))
	assert.Equal(t, "oops", pw.Token)
	assert.Equal(t, []string{"1.0", "oops", "3.0"}, pw.Head)
	assert.Equal(t, []string{"1.0", "oops", "3.0"}, pw.Tail)
	assert.True(t, IsWarning(err))

	assert.Equal(t, []float64{9.0}, ds.Data())
}

func TestIngestAcceptsOnlyDecimalLiterals(t *testing.T) {
	ds, _ := newTestDataset(t)

	for _, frame := range []string{"meta,0x1p3", "meta,-0X10", "meta,1.0,+0x2"} {
		err := ds.Ingest(frame)
		var pw *ParseWarning
		assert.True(t, errors.As(err, &pw), frame)
	}
	assert.Empty(t, ds.Data())

	require.NoError(t, ds.Ingest("meta,1e400,-1e400,1_0,0.5"))
	data := ds.Data()
	require.Len(t, data, 4)
	assert.True(t, math.IsInf(data[0], 1))
	assert.True(t, math.IsInf(data[1], -1))
	assert.Equal(t, 10.0, data[2])
	assert.Equal(t, 0.5, data[3])
}

func TestIngestTrailingDelimiterRejected(t *testing.T) {
	ds, _ := newTestDataset(t)

	err := ds.Ingest("meta,1,2,")
	var pw *ParseWarning
	require.True(t, errors.As(err, &pw))
	assert.Equal(t, "", pw.Token)
	assert.Equal(t, 0, ds.Len())
}

func TestParseWarningKeepsTenTokensEachSide(t *testing.T) {
	ds, _ := newTestDataset(t)
	frame := "meta"
	for i := 0; i < 30; i++ {
		frame += ",1"
	}
	frame += ",x"

	err := ds.Ingest(frame)
	var pw *ParseWarning
	require.True(t, errors.As(err, &pw))
	assert.Len(t, pw.Head, 10)
	assert.Len(t, pw.Tail, 10)
	assert.Equal(t, "x", pw.Tail[9])
}

func TestOnlySentinels(t *testing.T) {
	ds, _ := newTestDataset(t)
	require.NoError(t, ds.Ingest("meta,FFFFFFF,FFFFFFF"))

	series, err := ds.ToTimeSeries()
	var dq *DataQualityWarning
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, 2, dq.Missing)
	assert.Equal(t, []float64{0, 0}, series.Values)

	summary := ds.Summary()
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 2, summary.Missing)
	assert.Equal(t, 0.0, summary.Mean)
}

func TestToTimeSeriesSubstitutesZero(t *testing.T) {
	ds, _ := newTestDataset(t)
	require.NoError(t, ds.Ingest("meta,1.5,FFFFFFF,2.5"))

	series, err := ds.ToTimeSeries()
	var dq *DataQualityWarning
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, 1, dq.Missing)
	assert.Equal(t, []float64{1.5, 0, 2.5}, series.Values)
	assert.Equal(t, SeriesUnit, series.Unit)
	assert.Equal(t, SeriesName, series.Name)
	assert.Equal(t, time.Millisecond, series.Dt)
	assert.Equal(t, ds.StartTime(), series.T0)

	// Conversão não altera o buffer
	assert.True(t, ds.HasMissingReadings())
	again, _ := ds.ToTimeSeries()
	assert.Equal(t, series, again)
}

func TestToTimeSeriesCleanBuffer(t *testing.T) {
	ds, _ := newTestDataset(t)
	require.NoError(t, ds.Insert([]float64{1, 2}))

	series, err := ds.ToTimeSeries()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, series.Values)
	assert.False(t, ds.HasMissingReadings())
	assert.Equal(t, ds.EndTime(), series.End())
}

func TestSummary(t *testing.T) {
	ds, _ := newTestDataset(t)
	require.NoError(t, ds.Insert([]float64{2, 4, math.NaN(), 6}))

	s := ds.Summary()
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, 4.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.StdDev, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 6.0, s.Max)
	assert.Equal(t, time.Millisecond, s.Dt)
}
