package bitarray

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidData возвращается при разборе поврежденного буфера
var ErrInvalidData = errors.New("bitarray: некорректные данные")

// MarshalBinary сериализует массив: uint32 количество бит, затем слова (little-endian)
func (a *BitArray) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 4+4*len(a.words))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(a.numBits))
	for _, w := range a.words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf, nil
}

// UnmarshalBinary восстанавливает массив из буфера MarshalBinary.
// Текущее содержимое массива заменяется.
func (a *BitArray) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: буфер короче заголовка (%d байт)", ErrInvalidData, len(data))
	}
	numBits := int(binary.LittleEndian.Uint32(data))
	numWords := NumWordsFor(numBits)
	if len(data) != 4+4*numWords {
		return fmt.Errorf("%w: ожидалось %d байт для %d бит, получено %d", ErrInvalidData, 4+4*numWords, numBits, len(data))
	}

	words := make([]uint32, numWords)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[4+4*i:])
	}
	if tail := numBits % WordBits; tail != 0 && words[numWords-1]&^(fullWord>>(WordBits-tail)) != 0 {
		return fmt.Errorf("%w: ненулевые биты за концом массива", ErrInvalidData)
	}

	a.numBits = numBits
	a.words = words
	return nil
}
