package sdf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelcore/internal/vec"
)

// ErrInvalidVolume возвращается при разборе поврежденных данных поля
var ErrInvalidVolume = errors.New("sdf: некорректные данные поля")

// VolumeData результат Build
type VolumeData struct {
	Mips                 [NumMips]MipData
	AlwaysLoadedMip      []byte
	StreamableMips       []byte
	LocalSpaceMeshBounds Bounds
	MostlyTwoSided       bool
}

// MipBytes возвращает упакованные данные мипа
func (d *VolumeData) MipBytes(mip int) []byte {
	if mip == NumMips-1 {
		return d.AlwaysLoadedMip
	}
	m := d.Mips[mip]
	return d.StreamableMips[m.BulkOffset : m.BulkOffset+m.BulkSize]
}

// IndirectionTable декодирует таблицу косвенной адресации мипа
func (d *VolumeData) IndirectionTable(mip int) []uint32 {
	data := d.MipBytes(mip)
	table := make([]uint32, d.Mips[mip].IndirectionSize.Volume())
	for i := range table {
		table[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return table
}

// NumValidEntries возвращает количество ячеек таблицы с бриком
func (d *VolumeData) NumValidEntries(mip int) int {
	count := 0
	for _, entry := range d.IndirectionTable(mip) {
		if entry != InvalidBrickIndex {
			count++
		}
	}
	return count
}

// BrickAt возвращает брик ячейки pos или nil
func (d *VolumeData) BrickAt(mip int, pos vec.Vec3) *Brick {
	m := d.Mips[mip]
	data := d.MipBytes(mip)
	entry := binary.LittleEndian.Uint32(data[4*pos.Index(m.IndirectionSize):])
	if entry == InvalidBrickIndex {
		return nil
	}
	offset := 4*m.IndirectionSize.Volume() + int(entry)*BrickBytes
	brick := new(Brick)
	copy(brick[:], data[offset:offset+BrickBytes])
	return brick
}

var volumeMagic = [4]byte{'V', 'S', 'D', 'F'}

type mipHeader struct {
	IndirectionSize [3]int32
	ScaleBias       [2]float32
	NumBricks       uint32
	BulkOffset      uint32
	BulkSize        uint32
	UVScale         [3]float32
	UVAdd           [3]float32
}

type volumeHeader struct {
	Magic            [4]byte
	Mips             [NumMips]mipHeader
	BoundsMin        [3]float32
	BoundsMax        [3]float32
	MostlyTwoSided   uint8
	AlwaysLoadedSize uint32
	StreamableSize   uint32
}

// MarshalBinary сериализует поле: заголовок фиксированного размера, затем
// AlwaysLoadedMip и StreamableMips как есть
func (d *VolumeData) MarshalBinary() ([]byte, error) {
	h := volumeHeader{
		Magic:            volumeMagic,
		BoundsMin:        d.LocalSpaceMeshBounds.Min,
		BoundsMax:        d.LocalSpaceMeshBounds.Max,
		AlwaysLoadedSize: uint32(len(d.AlwaysLoadedMip)),
		StreamableSize:   uint32(len(d.StreamableMips)),
	}
	if d.MostlyTwoSided {
		h.MostlyTwoSided = 1
	}
	for i, m := range d.Mips {
		h.Mips[i] = mipHeader{
			IndirectionSize: [3]int32{int32(m.IndirectionSize.X), int32(m.IndirectionSize.Y), int32(m.IndirectionSize.Z)},
			ScaleBias:       m.ScaleBias,
			NumBricks:       uint32(m.NumBricks),
			BulkOffset:      uint32(m.BulkOffset),
			BulkSize:        uint32(m.BulkSize),
			UVScale:         m.VolumeToVirtualUVScale,
			UVAdd:           m.VolumeToVirtualUVAdd,
		}
	}

	var buf bytes.Buffer
	buf.Grow(binary.Size(h) + len(d.AlwaysLoadedMip) + len(d.StreamableMips))
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("ошибка записи заголовка поля: %w", err)
	}
	buf.Write(d.AlwaysLoadedMip)
	buf.Write(d.StreamableMips)
	return buf.Bytes(), nil
}

// UnmarshalBinary восстанавливает поле из данных MarshalBinary
func (d *VolumeData) UnmarshalBinary(data []byte) error {
	var h volumeHeader
	headerSize := binary.Size(h)
	if len(data) < headerSize {
		return fmt.Errorf("%w: %d байт меньше заголовка", ErrInvalidVolume, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, err)
	}
	if h.Magic != volumeMagic {
		return fmt.Errorf("%w: неверная сигнатура %q", ErrInvalidVolume, h.Magic[:])
	}
	payload := data[headerSize:]
	if len(payload) != int(h.AlwaysLoadedSize)+int(h.StreamableSize) {
		return fmt.Errorf("%w: размер данных %d, ожидалось %d", ErrInvalidVolume, len(payload), h.AlwaysLoadedSize+h.StreamableSize)
	}

	out := VolumeData{
		AlwaysLoadedMip:      append([]byte(nil), payload[:h.AlwaysLoadedSize]...),
		StreamableMips:       append([]byte(nil), payload[h.AlwaysLoadedSize:]...),
		LocalSpaceMeshBounds: Bounds{Min: h.BoundsMin, Max: h.BoundsMax},
		MostlyTwoSided:       h.MostlyTwoSided != 0,
	}
	for i, m := range h.Mips {
		out.Mips[i] = MipData{
			IndirectionSize:        vec.Vec3{X: int(m.IndirectionSize[0]), Y: int(m.IndirectionSize[1]), Z: int(m.IndirectionSize[2])},
			ScaleBias:              mgl32.Vec2(m.ScaleBias),
			NumBricks:              int(m.NumBricks),
			BulkOffset:             int(m.BulkOffset),
			BulkSize:               int(m.BulkSize),
			VolumeToVirtualUVScale: mgl32.Vec3(m.UVScale),
			VolumeToVirtualUVAdd:   mgl32.Vec3(m.UVAdd),
		}
	}

	for i := range out.Mips {
		if err := out.validateMip(i); err != nil {
			return err
		}
	}

	*d = out
	return nil
}

// validateMip проверяет, что заголовок мипа i согласован с его данными:
// размер сетки, границы в StreamableMips, длина таблицы и бриков, индексы таблицы
func (d *VolumeData) validateMip(i int) error {
	m := d.Mips[i]

	var data []byte
	if i == NumMips-1 {
		data = d.AlwaysLoadedMip
	} else {
		if m.BulkOffset < 0 || m.BulkSize < 0 || m.BulkOffset > len(d.StreamableMips)-m.BulkSize {
			return fmt.Errorf("%w: мип %d [%d, +%d) выходит за streamable данные (%d байт)",
				ErrInvalidVolume, i, m.BulkOffset, m.BulkSize, len(d.StreamableMips))
		}
		data = d.StreamableMips[m.BulkOffset : m.BulkOffset+m.BulkSize]
	}

	// Таблица не длиннее данных мипа, поэтому объем сетки ограничен len(data)/4
	maxCells := len(data) / 4
	cells := 1
	for _, c := range []int{m.IndirectionSize.X, m.IndirectionSize.Y, m.IndirectionSize.Z} {
		if c < 1 || c > maxCells/cells {
			return fmt.Errorf("%w: мип %d, размер сетки %v не помещается в %d байт",
				ErrInvalidVolume, i, m.IndirectionSize, len(data))
		}
		cells *= c
	}

	if m.NumBricks < 0 || m.NumBricks > cells {
		return fmt.Errorf("%w: мип %d, %d бриков на %d ячеек", ErrInvalidVolume, i, m.NumBricks, cells)
	}
	if expected := 4*cells + m.NumBricks*BrickBytes; len(data) != expected {
		return fmt.Errorf("%w: мип %d занимает %d байт, ожидалось %d", ErrInvalidVolume, i, len(data), expected)
	}

	valid := 0
	for cell := 0; cell < cells; cell++ {
		entry := binary.LittleEndian.Uint32(data[4*cell:])
		if entry == InvalidBrickIndex {
			continue
		}
		if entry >= uint32(m.NumBricks) {
			return fmt.Errorf("%w: мип %d, ячейка %d ссылается на брик %d из %d",
				ErrInvalidVolume, i, cell, entry, m.NumBricks)
		}
		valid++
	}
	if valid != m.NumBricks {
		return fmt.Errorf("%w: мип %d, в таблице %d бриков, в заголовке %d", ErrInvalidVolume, i, valid, m.NumBricks)
	}
	return nil
}
