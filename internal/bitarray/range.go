package bitarray

// rangeMasks возвращает первое и последнее слово непустого диапазона
// [index, index+count) и маски бит диапазона внутри этих слов
func rangeMasks(index, count int) (first, last int, firstMask, lastMask uint32) {
	end := index + count - 1
	first = index / WordBits
	last = end / WordBits
	firstMask = fullWord << (uint(index) % WordBits)
	lastMask = fullWord >> (WordBits - 1 - uint(end)%WordBits)
	return
}

// TestRange проверяет, что все биты в [index, index+count) установлены.
// Пустой диапазон считается установленным.
func (a *BitArray) TestRange(index, count int) bool {
	a.checkRange(index, count)
	if count == 0 {
		return true
	}

	first, last, firstMask, lastMask := rangeMasks(index, count)
	if first == last {
		mask := firstMask & lastMask
		return a.words[first]&mask == mask
	}

	if a.words[first]&firstMask != firstMask {
		return false
	}
	for w := first + 1; w < last; w++ {
		if a.words[w] != fullWord {
			return false
		}
	}
	return a.words[last]&lastMask == lastMask
}

// SetRange записывает value во все биты [index, index+count)
func (a *BitArray) SetRange(index, count int, value bool) {
	a.checkRange(index, count)
	if count == 0 {
		return
	}

	first, last, firstMask, lastMask := rangeMasks(index, count)
	if first == last {
		a.setMasked(first, firstMask&lastMask, value)
		return
	}

	a.setMasked(first, firstMask, value)
	fill := uint32(0)
	if value {
		fill = fullWord
	}
	for w := first + 1; w < last; w++ {
		a.words[w] = fill
	}
	a.setMasked(last, lastMask, value)
}

func (a *BitArray) setMasked(word int, mask uint32, value bool) {
	if value {
		a.words[word] |= mask
	} else {
		a.words[word] &^= mask
	}
}

// TestAndClearRange сбрасывает диапазон и возвращает true, если все его биты
// были установлены. Иначе массив не меняется.
func (a *BitArray) TestAndClearRange(index, count int) bool {
	if !a.TestRange(index, count) {
		return false
	}
	a.SetRange(index, count, false)
	return true
}
