package shadercache_test

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/engine/shadercache"
	"go.trai.ch/zerr"
)

func complete(t *testing.T, cache *shadercache.Cache, k domain.CacheKey, blob []byte) {
	t.Helper()
	_, res, err := cache.FindOrReserve(context.Background(), k)
	require.NoError(t, err)
	require.NotNil(t, res)
	res.Complete(blob)
}

func fail(t *testing.T, cache *shadercache.Cache, k domain.CacheKey) {
	t.Helper()
	_, res, err := cache.FindOrReserve(context.Background(), k)
	require.NoError(t, err)
	require.NotNil(t, res)
	res.Fail(zerr.New("unusable"))
}

// Round-trip: Ready entries survive, Unavailable entries do not.
func TestCache_ImageRoundTrip(t *testing.T) {
	t.Parallel()

	src := shadercache.New(testTag, 0)
	complete(t, src, key(1), []byte("ELFDATA"))
	fail(t, src, key(2))

	dst := shadercache.New(testTag, 0)
	adopted := dst.ImportImage(src.ExportImage())
	assert.Equal(t, 1, adopted)

	hit, res, err := dst.FindOrReserve(context.Background(), key(1))
	require.NoError(t, err)
	require.Nil(t, res)
	assert.Equal(t, []byte("ELFDATA"), hit.Blob)

	// The failed entry was not persisted; its key is a plain miss.
	hit, res, err = dst.FindOrReserve(context.Background(), key(2))
	require.NoError(t, err)
	assert.Nil(t, hit)
	require.NotNil(t, res)
	res.Complete(nil)
}

func TestCache_ExportIdempotent(t *testing.T) {
	t.Parallel()

	cache := shadercache.New(testTag, 0)
	complete(t, cache, key(1), []byte("ELFDATA"))
	complete(t, cache, key(2), []byte("SPIRV"))

	first := cache.ExportImage()
	second := cache.ExportImage()
	assert.Equal(t, first, second)
}

func TestCache_ExportImage_Golden(t *testing.T) {
	t.Parallel()

	cache := shadercache.New(testTag, 0)
	complete(t, cache, key(1), []byte("ELFDATA"))
	complete(t, cache, key(2), []byte("SPIRV"))

	g := goldie.New(t)
	g.Assert(t, "export_image", cache.ExportImage())
}

func TestCache_ImportSkipsResidentEntries(t *testing.T) {
	t.Parallel()

	src := shadercache.New(testTag, 0)
	complete(t, src, key(1), []byte("stale"))
	image := src.ExportImage()

	dst := shadercache.New(testTag, 0)
	complete(t, dst, key(1), []byte("fresh"))

	assert.Equal(t, 0, dst.ImportImage(image))

	hit, _, err := dst.FindOrReserve(context.Background(), key(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), hit.Blob, "resident entry must win the collision")
}

func TestCache_ImportNeverOverwritesCompiling(t *testing.T) {
	t.Parallel()

	src := shadercache.New(testTag, 0)
	complete(t, src, key(1), []byte("persisted"))
	image := src.ExportImage()

	dst := shadercache.New(testTag, 0)
	_, res, err := dst.FindOrReserve(context.Background(), key(1))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 0, dst.ImportImage(image))

	// The in-flight reservation still owns the slot.
	res.Complete([]byte("compiled here"))
	hit, _, err := dst.FindOrReserve(context.Background(), key(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("compiled here"), hit.Blob)
}

func TestCache_ImportRejectsForeignTag(t *testing.T) {
	t.Parallel()

	src := shadercache.New("deviceA|v1|spirv-1.3", 0)
	complete(t, src, key(1), []byte("ELFDATA"))

	dst := shadercache.New("deviceB|v1|spirv-1.3", 0)
	assert.Equal(t, 0, dst.ImportImage(src.ExportImage()))
	assert.Equal(t, 0, dst.Len())
}

func TestCache_ImportRejectsGarbage(t *testing.T) {
	t.Parallel()

	cache := shadercache.New(testTag, 0)

	assert.Equal(t, 0, cache.ImportImage(nil))
	assert.Equal(t, 0, cache.ImportImage([]byte("short")))
	assert.Equal(t, 0, cache.ImportImage([]byte("XXXX-not-an-image-at-all")))
}

func TestCache_ImportToleratesTruncation(t *testing.T) {
	t.Parallel()

	src := shadercache.New(testTag, 0)
	complete(t, src, key(1), []byte("ELFDATA"))
	complete(t, src, key(2), []byte("SPIRV"))
	image := src.ExportImage()

	// Cut into the middle of the second record: the first must still load.
	truncated := image[:len(image)-3]

	dst := shadercache.New(testTag, 0)
	assert.Equal(t, 1, dst.ImportImage(truncated))

	hit, _, err := dst.FindOrReserve(context.Background(), key(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("ELFDATA"), hit.Blob)
}

func TestCache_ImportCountsAgainstBudget(t *testing.T) {
	t.Parallel()

	src := shadercache.New(testTag, 0)
	complete(t, src, key(1), []byte("0123456789"))
	complete(t, src, key(2), []byte("0123456789"))
	image := src.ExportImage()

	dst := shadercache.New(testTag, 10)
	dst.ImportImage(image)
	assert.LessOrEqual(t, dst.SizeBytes(), int64(10))
}

func TestCache_ExportEmpty(t *testing.T) {
	t.Parallel()

	cache := shadercache.New(testTag, 0)
	image := cache.ExportImage()

	other := shadercache.New(testTag, 0)
	assert.Equal(t, 0, other.ImportImage(image))
	assert.Equal(t, 0, other.Len())
}
