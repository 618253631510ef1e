package bitarray

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naiveTestRange проверяет диапазон по одному биту
func naiveTestRange(a *BitArray, index, count int) bool {
	for i := index; i < index+count; i++ {
		if !a.Test(i) {
			return false
		}
	}
	return true
}

func randomArray(rng *rand.Rand, num int, density float64) *BitArray {
	a := New(num, false)
	for i := 0; i < num; i++ {
		a.Set(i, rng.Float64() < density)
	}
	return a
}

func TestNewFillsValue(t *testing.T) {
	a := New(70, true)
	assert.Equal(t, 70, a.Num())
	assert.Equal(t, 3, a.NumWords())
	assert.Equal(t, 70, a.CountSetBits(), "биты заполнения не должны считаться")
	assert.Equal(t, uint32(0x3F), a.Word(2), "хвост последнего слова должен быть нулевым")

	b := New(64, false)
	assert.Equal(t, 0, b.CountSetBits())
	assert.Equal(t, 2, b.NumWords())
}

func TestSetNumAfterReset(t *testing.T) {
	a := New(10, true)
	a.Reset()
	assert.True(t, a.IsEmpty())
	a.SetNum(33, false)
	assert.Equal(t, 33, a.Num())
	assert.Equal(t, 2, a.NumWords())
}

func TestSetAndTestAndClear(t *testing.T) {
	a := New(40, false)
	a.Set(5, true)
	a.Set(33, true)
	assert.True(t, a.Test(5))
	assert.True(t, a.Test(33))
	assert.False(t, a.Test(6))

	assert.True(t, a.TestAndClear(33))
	assert.False(t, a.Test(33))
	assert.False(t, a.TestAndClear(33))
	assert.Equal(t, 1, a.CountSetBits())
}

func TestBitRef(t *testing.T) {
	a := New(8, false)
	r := a.Ref(3)
	r.Or(false)
	assert.False(t, r.Get())
	r.Or(true)
	assert.True(t, a.Test(3))
	r.And(true)
	assert.True(t, r.Get())
	r.And(false)
	assert.False(t, a.Test(3))
	r.Set(true)
	assert.True(t, a.Test(3))
}

func TestRangeSpanningWords(t *testing.T) {
	// Диапазон 30..100 затрагивает неполное первое слово, целые слова и неполное последнее
	a := New(128, false)
	a.SetRange(30, 71, true)

	assert.Equal(t, 71, a.CountSetBits())
	assert.False(t, a.Test(29))
	assert.True(t, a.Test(30))
	assert.True(t, a.Test(100))
	assert.False(t, a.Test(101))

	assert.True(t, a.TestRange(30, 71))
	assert.False(t, a.TestRange(29, 2))
	assert.False(t, a.TestRange(100, 2))
	assert.True(t, a.TestRange(64, 32))
}

func TestRangeInsideSingleWord(t *testing.T) {
	a := New(32, false)
	a.SetRange(4, 8, true)
	assert.Equal(t, uint32(0xFF0), a.Word(0))
	assert.True(t, a.TestRange(4, 8))
	assert.False(t, a.TestRange(3, 8))

	a.SetRange(0, 32, true)
	assert.Equal(t, fullWord, a.Word(0))
	a.SetRange(5, 2, false)
	assert.Equal(t, fullWord&^0x60, a.Word(0))
}

func TestEmptyRange(t *testing.T) {
	a := New(16, false)
	assert.True(t, a.TestRange(3, 0))
	a.SetRange(3, 0, true)
	assert.Equal(t, 0, a.CountSetBits())
	assert.True(t, a.TestAndClearRange(3, 0))
}

func TestTestAndClearRange(t *testing.T) {
	a := New(100, false)
	a.SetRange(10, 60, true)

	// Неудачная проверка ничего не меняет
	assert.False(t, a.TestAndClearRange(5, 20))
	assert.Equal(t, 60, a.CountSetBits())

	assert.True(t, a.TestAndClearRange(20, 40))
	assert.Equal(t, 20, a.CountSetBits())
	assert.True(t, a.TestRange(10, 10))
	assert.True(t, a.TestRange(60, 10))
	assert.False(t, a.Test(20))
	assert.False(t, a.Test(59))
}

func TestRangeMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		num := 1 + rng.Intn(200)
		a := randomArray(rng, num, 0.9)
		index := rng.Intn(num)
		count := rng.Intn(num - index + 1)

		require.Equal(t, naiveTestRange(a, index, count), a.TestRange(index, count),
			"TestRange(%d, %d) для %d бит", index, count, num)

		before := a.Clone()
		value := rng.Intn(2) == 0
		a.SetRange(index, count, value)
		for i := 0; i < num; i++ {
			expected := before.Test(i)
			if i >= index && i < index+count {
				expected = value
			}
			require.Equal(t, expected, a.Test(i), "бит %d после SetRange(%d, %d, %v)", i, index, count, value)
		}
		require.LessOrEqual(t, a.CountSetBits(), num, "биты заполнения должны оставаться нулевыми")
	}
}

func TestCountSetBitsUpTo(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := randomArray(rng, 150, 0.5)
	for bound := 0; bound <= 150; bound++ {
		expected := 0
		for i := 0; i < bound; i++ {
			if a.Test(i) {
				expected++
			}
		}
		assert.Equal(t, expected, a.CountSetBitsUpTo(bound), "граница %d", bound)
	}
	assert.Equal(t, a.CountSetBits(), a.CountSetBitsUpTo(1000))
}

func TestTryGetAll(t *testing.T) {
	value, ok := New(45, true).TryGetAll()
	assert.True(t, ok)
	assert.True(t, value)

	value, ok = New(45, false).TryGetAll()
	assert.True(t, ok)
	assert.False(t, value)

	a := New(45, true)
	a.Set(44, false)
	_, ok = a.TryGetAll()
	assert.False(t, ok)
	assert.False(t, a.AllEqual(true))
	assert.False(t, a.AllEqual(false))

	a.SetAll(true)
	assert.True(t, a.AllEqual(true))
	assert.Equal(t, 45, a.CountSetBits())
}

func TestForAllSetBits(t *testing.T) {
	a := New(100, false)
	expected := []int{0, 31, 32, 63, 64, 99}
	for _, i := range expected {
		a.Set(i, true)
	}
	var got []int
	a.ForAllSetBits(func(i int) { got = append(got, i) })
	assert.Equal(t, expected, got)
}

func TestEqualAndClone(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randomArray(rng, 77, 0.5)
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Set(10, !b.Test(10))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(New(78, false)))
}

func TestBinaryRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := randomArray(rng, 70, 0.3)

	data, err := a.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 4+3*4)

	var b BitArray
	require.NoError(t, b.UnmarshalBinary(data))
	assert.True(t, a.Equal(&b))
}

func TestUnmarshalRejectsBadData(t *testing.T) {
	var a BitArray
	assert.ErrorIs(t, a.UnmarshalBinary([]byte{1, 2}), ErrInvalidData)

	data, err := New(40, false).MarshalBinary()
	require.NoError(t, err)
	assert.ErrorIs(t, a.UnmarshalBinary(data[:len(data)-1]), ErrInvalidData)

	// Бит за концом массива
	data[len(data)-1] = 0x80
	assert.ErrorIs(t, a.UnmarshalBinary(data), ErrInvalidData)
}

func TestString(t *testing.T) {
	a := New(5, false)
	a.Set(1, true)
	a.Set(4, true)
	assert.Equal(t, "01001", a.String())
}
