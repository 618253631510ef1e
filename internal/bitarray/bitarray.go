// Package bitarray реализует плотный массив бит фиксированного размера,
// упакованный в 32-битные слова. Диапазонные операции работают по словам:
// неполное первое слово, целые внутренние слова и неполное последнее.
package bitarray

import (
	"math/bits"
	"strings"

	"github.com/annel0/voxelcore/internal/check"
)

// WordBits количество бит в одном слове
const WordBits = 32

const fullWord = ^uint32(0)

// BitArray массив бит. Биты за пределами Num() в последнем слове всегда нулевые.
type BitArray struct {
	numBits int
	words   []uint32
}

// New создает массив из num бит, заполненный value
func New(num int, value bool) *BitArray {
	a := &BitArray{}
	a.SetNum(num, value)
	return a
}

// NumWordsFor возвращает количество слов для num бит
func NumWordsFor(num int) int {
	return (num + WordBits - 1) / WordBits
}

// SetNum задает размер пустого массива и заполняет его value.
// Размер задается один раз; для изменения нужно вызвать Reset.
func (a *BitArray) SetNum(num int, value bool) {
	check.Slow(a.numBits == 0 && len(a.words) == 0, "bitarray: SetNum на непустом массиве (%d бит)", a.numBits)
	check.Slow(num >= 0, "bitarray: отрицательный размер %d", num)

	a.numBits = num
	a.words = make([]uint32, NumWordsFor(num))
	if value {
		a.SetAll(true)
	}
}

// Reset освобождает буфер и возвращает массив в пустое состояние
func (a *BitArray) Reset() {
	a.numBits = 0
	a.words = nil
}

// Num возвращает количество бит
func (a *BitArray) Num() int {
	return a.numBits
}

// NumWords возвращает количество слов
func (a *BitArray) NumWords() int {
	return len(a.words)
}

// IsEmpty возвращает true для массива нулевого размера
func (a *BitArray) IsEmpty() bool {
	return a.numBits == 0
}

// IsValidIndex проверяет 0 <= index < Num()
func (a *BitArray) IsValidIndex(index int) bool {
	return index >= 0 && index < a.numBits
}

// Word возвращает слово по индексу
func (a *BitArray) Word(index int) uint32 {
	return a.words[index]
}

// Words возвращает слова массива. Изменять срез нельзя.
func (a *BitArray) Words() []uint32 {
	return a.words
}

// AllocatedSize возвращает размер буфера в байтах
func (a *BitArray) AllocatedSize() int {
	return cap(a.words) * 4
}

func (a *BitArray) checkIndex(index int) {
	if check.Enabled {
		check.Slow(a.IsValidIndex(index), "bitarray: индекс %d вне [0, %d)", index, a.numBits)
	}
}

func (a *BitArray) checkRange(index, count int) {
	if check.Enabled {
		check.Slow(count >= 0 && index >= 0 && index+count <= a.numBits,
			"bitarray: диапазон [%d, %d) вне [0, %d)", index, index+count, a.numBits)
	}
}

// Test возвращает значение бита
func (a *BitArray) Test(index int) bool {
	a.checkIndex(index)
	return a.words[index/WordBits]&(1<<(uint(index)%WordBits)) != 0
}

// Set устанавливает значение бита
func (a *BitArray) Set(index int, value bool) {
	a.checkIndex(index)
	mask := uint32(1) << (uint(index) % WordBits)
	if value {
		a.words[index/WordBits] |= mask
	} else {
		a.words[index/WordBits] &^= mask
	}
}

// TestAndClear возвращает значение бита и сбрасывает его
func (a *BitArray) TestAndClear(index int) bool {
	a.checkIndex(index)
	word := &a.words[index/WordBits]
	mask := uint32(1) << (uint(index) % WordBits)
	if *word&mask == 0 {
		return false
	}
	*word &^= mask
	return true
}

// SetAll заполняет весь массив значением value
func (a *BitArray) SetAll(value bool) {
	fill := uint32(0)
	if value {
		fill = fullWord
	}
	for i := range a.words {
		a.words[i] = fill
	}
	a.clearPadding()
}

func (a *BitArray) clearPadding() {
	if tail := a.numBits % WordBits; tail != 0 {
		a.words[len(a.words)-1] &= fullWord >> (WordBits - tail)
	}
}

// Ref возвращает ссылку на бит
func (a *BitArray) Ref(index int) BitRef {
	a.checkIndex(index)
	return BitRef{array: a, index: index}
}

// BitRef ссылка на отдельный бит массива
type BitRef struct {
	array *BitArray
	index int
}

// Get возвращает значение бита
func (r BitRef) Get() bool {
	return r.array.Test(r.index)
}

// Set устанавливает значение бита
func (r BitRef) Set(value bool) {
	r.array.Set(r.index, value)
}

// Or выполняет bit |= value
func (r BitRef) Or(value bool) {
	if value {
		r.array.Set(r.index, true)
	}
}

// And выполняет bit &= value
func (r BitRef) And(value bool) {
	if !value {
		r.array.Set(r.index, false)
	}
}

// CountSetBits возвращает количество установленных бит
func (a *BitArray) CountSetBits() int {
	count := 0
	for _, w := range a.words {
		count += bits.OnesCount32(w)
	}
	return count
}

// CountSetBitsUpTo возвращает количество установленных бит в [0, bound)
func (a *BitArray) CountSetBitsUpTo(bound int) int {
	bound = min(max(bound, 0), a.numBits)

	full := bound / WordBits
	count := 0
	for _, w := range a.words[:full] {
		count += bits.OnesCount32(w)
	}
	if rem := bound % WordBits; rem != 0 {
		count += bits.OnesCount32(a.words[full] & (fullWord >> (WordBits - rem)))
	}
	return count
}

// TryGetAll возвращает (value, true), если все биты равны value,
// и (false, false), если значения смешаны. Пустой массив считается нулевым.
func (a *BitArray) TryGetAll() (bool, bool) {
	if a.numBits == 0 {
		return false, true
	}
	value := a.words[0]&1 != 0
	if a.AllEqual(value) {
		return value, true
	}
	return false, false
}

// AllEqual проверяет, что все биты равны value
func (a *BitArray) AllEqual(value bool) bool {
	if a.numBits == 0 {
		return true
	}
	expected := uint32(0)
	if value {
		expected = fullWord
	}

	last := len(a.words) - 1
	for _, w := range a.words[:last] {
		if w != expected {
			return false
		}
	}
	if tail := a.numBits % WordBits; tail != 0 {
		expected &= fullWord >> (WordBits - tail)
	}
	return a.words[last] == expected
}

// ForAllSetBits вызывает fn для каждого установленного бита по возрастанию индекса
func (a *BitArray) ForAllSetBits(fn func(index int)) {
	for i, w := range a.words {
		for w != 0 {
			fn(i*WordBits + bits.TrailingZeros32(w))
			w &= w - 1
		}
	}
}

// Equal сравнивает размер и содержимое двух массивов
func (a *BitArray) Equal(other *BitArray) bool {
	if a.numBits != other.numBits {
		return false
	}
	for i, w := range a.words {
		if other.words[i] != w {
			return false
		}
	}
	return true
}

// Clone возвращает независимую копию массива
func (a *BitArray) Clone() *BitArray {
	c := &BitArray{numBits: a.numBits, words: make([]uint32, len(a.words))}
	copy(c.words, a.words)
	return c
}

// String возвращает биты в виде строки из 0 и 1, младший индекс первым
func (a *BitArray) String() string {
	var sb strings.Builder
	sb.Grow(a.numBits)
	for i := 0; i < a.numBits; i++ {
		if a.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
