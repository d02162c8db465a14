package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInstant = time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)

func newTestPartitioner(t *testing.T, opts ...PartitionerOption) (*PathPartitioner, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "nested", "root")
	p, err := NewPathPartitioner(root, opts...)
	require.NoError(t, err)
	return p, root
}

func TestNewPathPartitionerCreatesRoot(t *testing.T) {
	_, root := newTestPartitioner(t)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveLayoutAndNormalization(t *testing.T) {
	p, root := newTestPartitioner(t)

	a, err := p.Resolve("Experiment ", testInstant)
	require.NoError(t, err)
	b, err := p.Resolve("experiment", testInstant)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, filepath.Join(root, "experiment", "2024", "03", "15"), a)

	info, err := os.Stat(a)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveUnknownTagFallsBackToTest(t *testing.T) {
	p, _ := newTestPartitioner(t)

	bogus, err := p.Resolve("bogus-tag", testInstant)
	require.NoError(t, err)
	test, err := p.Resolve("test", testInstant)
	require.NoError(t, err)

	assert.Equal(t, test, bogus)
}

func TestResolveTagsDoNotAccumulate(t *testing.T) {
	p, root := newTestPartitioner(t)

	first, err := p.Resolve("calibration", testInstant)
	require.NoError(t, err)
	second, err := p.Resolve("temp", testInstant)
	require.NoError(t, err)
	third, err := p.Resolve("calibration", testInstant)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, filepath.Join(root, "temp", "2024", "03", "15"), second)
	assert.Equal(t, strings.TrimPrefix(first, filepath.Join(root, "calibration")),
		strings.TrimPrefix(second, filepath.Join(root, "temp")))
	assert.Equal(t, 1, strings.Count(third, "calibration"))
	assert.NotContains(t, second, "calibration")
}

func TestResolveDayBoundaryChangesOnlyDate(t *testing.T) {
	p, root := newTestPartitioner(t)

	before, err := p.Resolve("experiment", testInstant)
	require.NoError(t, err)
	after, err := p.Resolve("experiment", testInstant.Add(2*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "experiment", "2024", "03", "15"), before)
	assert.Equal(t, filepath.Join(root, "experiment", "2024", "03", "16"), after)
}

func TestResolveUsesUTCDate(t *testing.T) {
	p, root := newTestPartitioner(t)
	local := time.FixedZone("BRT", -3*3600)

	// 22:30 em -03:00 já é o dia seguinte em UTC
	dir, err := p.Resolve("test", time.Date(2024, 12, 31, 22, 30, 0, 0, local))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "test", "2025", "01", "01"), dir)
}

func TestResolveIsIdempotentAndCached(t *testing.T) {
	p, _ := newTestPartitioner(t)

	dir, err := p.Resolve("test", testInstant)
	require.NoError(t, err)

	// Diretório criado externamente não é erro
	_, err = p.Resolve("test", testInstant)
	require.NoError(t, err)

	// Na mesma data o diretório não é recriado
	require.NoError(t, os.RemoveAll(dir))
	again, err := p.Resolve("test", testInstant)
	require.NoError(t, err)
	assert.Equal(t, dir, again)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Nova data invalida o cache
	next, err := p.Resolve("test", testInstant.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = os.Stat(next)
	assert.NoError(t, err)
}

func TestResolvePropagatesFilesystemError(t *testing.T) {
	p, root := newTestPartitioner(t)

	// Um arquivo no lugar do diretório da tag impede a criação
	require.NoError(t, os.WriteFile(filepath.Join(root, "temp"), []byte("x"), 0644))

	_, err := p.Resolve("temp", testInstant)
	require.Error(t, err)
	var pathErr *os.PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestPathIsPure(t *testing.T) {
	p, root := newTestPartitioner(t)

	dir := p.Path("Calibration", testInstant)
	assert.Equal(t, filepath.Join(root, "calibration", "2024", "03", "15"), dir)
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWithTagsExtendsKnownTags(t *testing.T) {
	p, root := newTestPartitioner(t, WithTags(" Vibration"))

	dir, err := p.Resolve("VIBRATION", testInstant)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "vibration", "2024", "03", "15"), dir)
	assert.Equal(t, "test", p.KnownTag("other"))
	assert.Len(t, p.Tags(), len(KnownTags)+1)
}

func TestForTagFilename(t *testing.T) {
	p, root := newTestPartitioner(t)
	files := NewDatasetFile(p)

	fd, err := files.ForTag("experiment", "  Run_A ", testInstant)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "experiment", "2024", "03", "15"), fd.Directory)
	assert.Equal(t, "20240315_run_a", fd.Filename)
	assert.Equal(t, filepath.Join(fd.Directory, "20240315_run_a"), fd.Path())

	fd, err = files.ForTag("experiment", "   ", testInstant)
	require.NoError(t, err)
	assert.Equal(t, "20240315_data", fd.Filename)

	assert.Equal(t, "20240315_data", Filename("", testInstant))
}
