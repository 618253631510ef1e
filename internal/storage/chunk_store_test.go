package storage

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/greedy"
	"github.com/annel0/voxelcore/internal/sdf"
	"github.com/annel0/voxelcore/internal/vec"
)

func setupTestStore(t *testing.T, compress bool) *ChunkStore {
	store, err := Open(Options{Path: t.TempDir(), Compress: compress})
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { store.Close() })
	return store
}

func testOccupancy() *bitarray.BitArray {
	a := bitarray.New(16*16*16, false)
	a.SetRange(100, 900, true)
	a.Set(4000, true)
	return a
}

func TestSaveAndLoadChunk(t *testing.T) {
	for _, compress := range []bool{false, true} {
		store := setupTestStore(t, compress)
		chunkMin := vec.Vec3{X: -16, Y: 0, Z: 32}
		occupancy := testOccupancy()
		boxes := greedy.Mesh3DCopy(vec.Splat(16), occupancy)

		require.NoError(t, store.SaveChunk(chunkMin, occupancy, boxes))

		loaded, err := store.LoadOccupancy(chunkMin)
		require.NoError(t, err)
		assert.True(t, occupancy.Equal(loaded), "занятость не совпадает (сжатие %v)", compress)

		loadedBoxes, err := store.LoadBoxes(chunkMin)
		require.NoError(t, err)
		assert.Equal(t, boxes, loadedBoxes)
	}
}

func TestLoadMissingChunk(t *testing.T) {
	store := setupTestStore(t, true)
	_, err := store.LoadOccupancy(vec.Vec3{X: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LoadManifest("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCorruptedRecord(t *testing.T) {
	store := setupTestStore(t, false)
	chunkMin := vec.Vec3{}
	require.NoError(t, store.SaveChunk(chunkMin, testOccupancy(), nil))

	// Портим один байт данных в обход кодека
	key := chunkKey(occupancyPrefix, chunkMin)
	require.NoError(t, store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		record, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record[len(record)-1] ^= 0xFF
		return txn.Set(key, record)
	}))

	_, err := store.LoadOccupancy(chunkMin)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestListAndDeleteChunks(t *testing.T) {
	store := setupTestStore(t, true)
	positions := []vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: -32, Y: 16, Z: 0}, {X: 16, Y: -16, Z: 48}}
	for _, p := range positions {
		require.NoError(t, store.SaveChunk(p, testOccupancy(), nil))
	}

	chunks, err := store.ListChunks()
	require.NoError(t, err)
	assert.ElementsMatch(t, positions, chunks)

	require.NoError(t, store.DeleteChunk(positions[1]))
	chunks, err = store.ListChunks()
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	_, err = store.LoadBoxes(positions[1])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLoadVolume(t *testing.T) {
	store := setupTestStore(t, true)

	b := sdf.NewBuilder(sdf.Bounds{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}})
	b.SetSize(vec.Splat(2))
	b.Mip(0).FindOrAddBrick(vec.Vec3{X: 1}).Fill(77)
	volume := b.Build()

	size, err := store.SaveVolume("region", volume)
	require.NoError(t, err)
	assert.Greater(t, size, 0)

	loaded, err := store.LoadVolume("region")
	require.NoError(t, err)
	assert.Equal(t, volume, loaded)
}

func TestManifest(t *testing.T) {
	store := setupTestStore(t, false)
	first := Manifest{BuildID: "a", CreatedAt: time.Unix(100, 0).UTC(), Chunks: 3}
	second := Manifest{BuildID: "b", CreatedAt: time.Unix(200, 0).UTC(), Chunks: 5,
		Region: vec.NewIntBox(vec.Splat(-8), vec.Splat(8))}
	require.NoError(t, store.SaveManifest(first))
	require.NoError(t, store.SaveManifest(second))

	latest, err := store.LoadManifest("")
	require.NoError(t, err)
	assert.Equal(t, second, *latest)

	old, err := store.LoadManifest("a")
	require.NoError(t, err)
	assert.Equal(t, first, *old)
}

func TestInMemoryStore(t *testing.T) {
	store, err := Open(Options{InMemory: true, Compress: true})
	require.NoError(t, err)
	require.NoError(t, store.SaveChunk(vec.Vec3{}, testOccupancy(), nil))
	_, err = store.LoadOccupancy(vec.Vec3{})
	assert.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "повторное закрытие безопасно")
	_, err = store.LoadOccupancy(vec.Vec3{})
	assert.Error(t, err)
}

func TestBoxesCodec(t *testing.T) {
	boxes := []greedy.Box{{StartX: 1, StartY: 2, StartZ: 3, SizeX: 4, SizeY: 5, SizeZ: 6}}
	decoded, err := decodeBoxes(encodeBoxes(boxes))
	require.NoError(t, err)
	assert.Equal(t, boxes, decoded)

	_, err = decodeBoxes([]byte{1, 0, 0, 0})
	assert.ErrorIs(t, err, ErrCorrupted)
}
