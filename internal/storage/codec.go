package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrNotFound возвращается, если ключа нет в хранилище
	ErrNotFound = errors.New("запись не найдена")
	// ErrCorrupted возвращается при несовпадении контрольной суммы или формата
	ErrCorrupted = errors.New("запись повреждена")
)

const (
	recordVersion  = 1
	flagZstd       = 0x80
	recordHeader   = 1 + 8
	versionBitMask = 0x7F
)

// recordCodec упаковывает значения: [версия|флаг сжатия][xxhash64 исходных данных][данные]
type recordCodec struct {
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

func newRecordCodec(compress bool) (*recordCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}
	return &recordCodec{compress: compress, encoder: encoder, decoder: decoder}, nil
}

func (c *recordCodec) encode(raw []byte) []byte {
	header := byte(recordVersion)
	if c.compress {
		header |= flagZstd
	}

	out := make([]byte, recordHeader, recordHeader+len(raw))
	out[0] = header
	binary.LittleEndian.PutUint64(out[1:], xxhash.Sum64(raw))
	if c.compress {
		return c.encoder.EncodeAll(raw, out)
	}
	return append(out, raw...)
}

func (c *recordCodec) decode(record []byte) ([]byte, error) {
	if len(record) < recordHeader {
		return nil, fmt.Errorf("%w: длина %d меньше заголовка", ErrCorrupted, len(record))
	}
	if version := record[0] & versionBitMask; version != recordVersion {
		return nil, fmt.Errorf("%w: неизвестная версия %d", ErrCorrupted, version)
	}

	payload := record[recordHeader:]
	raw := payload
	if record[0]&flagZstd != 0 {
		var err error
		raw, err = c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка распаковки: %v", ErrCorrupted, err)
		}
	}

	if sum := binary.LittleEndian.Uint64(record[1:]); sum != xxhash.Sum64(raw) {
		return nil, fmt.Errorf("%w: контрольная сумма не совпадает", ErrCorrupted)
	}
	return raw, nil
}

func (c *recordCodec) close() {
	c.encoder.Close()
	c.decoder.Close()
}
