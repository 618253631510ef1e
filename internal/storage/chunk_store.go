package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/greedy"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/sdf"
	"github.com/annel0/voxelcore/internal/vec"
)

const (
	occupancyPrefix = "occ:"
	boxesPrefix     = "box:"
	volumePrefix    = "sdf:"
	manifestPrefix  = "manifest:"
	latestManifest  = "manifest:latest"
)

// Options параметры открытия хранилища
type Options struct {
	Path     string
	InMemory bool
	Compress bool
}

// ChunkStore хранит занятость чанков, их боксы и поля расстояний в BadgerDB
type ChunkStore struct {
	db      *badger.DB
	codec   *recordCodec
	logger  *logging.Logger
	mutex   sync.RWMutex
	isReady bool
}

// Manifest описание одной сборки
type Manifest struct {
	BuildID    string     `json:"build_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ChunkSize  int        `json:"chunk_size"`
	Depth      int        `json:"depth"`
	Region     vec.IntBox `json:"region"`
	Chunks     int        `json:"chunks"`
	Boxes      int        `json:"boxes"`
	Volume     string     `json:"volume"`
	VolumeSize int        `json:"volume_size"`
}

// Open открывает хранилище
func Open(opts Options) (*ChunkStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	codec, err := newRecordCodec(opts.Compress)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ChunkStore{
		db:      db,
		codec:   codec,
		logger:  logging.GetStorageLogger(),
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (s *ChunkStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.codec.close()
	return s.db.Close()
}

func chunkKey(prefix string, chunkMin vec.Vec3) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:%d", prefix, chunkMin.X, chunkMin.Y, chunkMin.Z))
}

func (s *ChunkStore) put(entries map[string][]byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for key, raw := range entries {
			if err := txn.Set([]byte(key), s.codec.encode(raw)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

func (s *ChunkStore) get(key []byte) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var record []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		record, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	raw, err := s.codec.decode(record)
	if err != nil {
		s.logger.Warn("запись %s повреждена: %v", key, err)
		s.logger.Debug("%s", logging.HexDump(record))
		return nil, fmt.Errorf("ключ %s: %w", key, err)
	}
	return raw, nil
}

// SaveChunk сохраняет занятость и боксы чанка в одной транзакции
func (s *ChunkStore) SaveChunk(chunkMin vec.Vec3, occupancy *bitarray.BitArray, boxes []greedy.Box) error {
	occ, err := occupancy.MarshalBinary()
	if err != nil {
		return fmt.Errorf("ошибка сериализации занятости: %w", err)
	}
	return s.put(map[string][]byte{
		string(chunkKey(occupancyPrefix, chunkMin)): occ,
		string(chunkKey(boxesPrefix, chunkMin)):     encodeBoxes(boxes),
	})
}

// LoadOccupancy загружает занятость чанка
func (s *ChunkStore) LoadOccupancy(chunkMin vec.Vec3) (*bitarray.BitArray, error) {
	raw, err := s.get(chunkKey(occupancyPrefix, chunkMin))
	if err != nil {
		return nil, err
	}
	a := &bitarray.BitArray{}
	if err := a.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return a, nil
}

// LoadBoxes загружает боксы чанка
func (s *ChunkStore) LoadBoxes(chunkMin vec.Vec3) ([]greedy.Box, error) {
	raw, err := s.get(chunkKey(boxesPrefix, chunkMin))
	if err != nil {
		return nil, err
	}
	return decodeBoxes(raw)
}

// DeleteChunk удаляет все записи чанка
func (s *ChunkStore) DeleteChunk(chunkMin vec.Vec3) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(chunkKey(occupancyPrefix, chunkMin)); err != nil {
			return err
		}
		return txn.Delete(chunkKey(boxesPrefix, chunkMin))
	})
}

// ListChunks возвращает минимальные углы всех сохраненных чанков
func (s *ChunkStore) ListChunks() ([]vec.Vec3, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var chunks []vec.Vec3
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(occupancyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p vec.Vec3
			key := it.Item().Key()
			if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d:%d:%d", &p.X, &p.Y, &p.Z); err != nil {
				return fmt.Errorf("%w: ключ %s", ErrCorrupted, key)
			}
			chunks = append(chunks, p)
		}
		return nil
	})
	return chunks, err
}

// SaveVolume сохраняет поле расстояний под именем name
func (s *ChunkStore) SaveVolume(name string, data *sdf.VolumeData) (int, error) {
	raw, err := data.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return len(raw), s.put(map[string][]byte{volumePrefix + name: raw})
}

// LoadVolume загружает поле расстояний
func (s *ChunkStore) LoadVolume(name string) (*sdf.VolumeData, error) {
	raw, err := s.get([]byte(volumePrefix + name))
	if err != nil {
		return nil, err
	}
	data := &sdf.VolumeData{}
	if err := data.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return data, nil
}

// SaveManifest сохраняет описание сборки и помечает его последним
func (s *ChunkStore) SaveManifest(m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("ошибка сериализации манифеста: %w", err)
	}
	return s.put(map[string][]byte{
		manifestPrefix + m.BuildID: data,
		latestManifest:             []byte(m.BuildID),
	})
}

// LoadManifest загружает описание сборки; пустой buildID означает последнюю сборку
func (s *ChunkStore) LoadManifest(buildID string) (*Manifest, error) {
	if buildID == "" {
		latest, err := s.get([]byte(latestManifest))
		if err != nil {
			return nil, err
		}
		buildID = string(latest)
	}

	raw, err := s.get([]byte(manifestPrefix + buildID))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &m, nil
}

// Size возвращает размеры LSM дерева и лога значений в байтах
func (s *ChunkStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

const boxWords = 6

func encodeBoxes(boxes []greedy.Box) []byte {
	buf := make([]byte, 0, 4+4*boxWords*len(boxes))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(boxes)))
	for _, b := range boxes {
		for _, v := range [boxWords]uint32{b.StartX, b.StartY, b.StartZ, b.SizeX, b.SizeY, b.SizeZ} {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}
	}
	return buf
}

func decodeBoxes(raw []byte) ([]greedy.Box, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: список боксов короче заголовка", ErrCorrupted)
	}
	count := int(binary.LittleEndian.Uint32(raw))
	if len(raw) != 4+4*boxWords*count {
		return nil, fmt.Errorf("%w: %d байт для %d боксов", ErrCorrupted, len(raw), count)
	}
	if count == 0 {
		return nil, nil
	}

	boxes := make([]greedy.Box, count)
	for i := range boxes {
		var v [boxWords]uint32
		for j := range v {
			v[j] = binary.LittleEndian.Uint32(raw[4+4*(i*boxWords+j):])
		}
		boxes[i] = greedy.Box{StartX: v[0], StartY: v[1], StartZ: v[2], SizeX: v[3], SizeY: v[4], SizeZ: v[5]}
	}
	return boxes, nil
}
