package field

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxFieldPathDepth максимальная глубина пути поля (самая глубокая схема в протоколе)
const MaxFieldPathDepth = 7

// FieldPath адрес одного листового значения в схеме класса.
// Слоты после last всегда обнулены, поэтому FieldPath можно сравнивать
// оператором == и использовать как ключ map.
type FieldPath struct {
	path [MaxFieldPathDepth]uint16
	last int
}

// NewFieldPath создаёт путь из набора индексов
func NewFieldPath(indices ...uint16) (FieldPath, error) {
	var fp FieldPath
	if len(indices) == 0 {
		return fp, fmt.Errorf("пустой путь поля: %w", ErrFieldPathOutOfRange)
	}
	if len(indices) > MaxFieldPathDepth {
		return fp, fmt.Errorf("путь из %d индексов превышает глубину %d: %w",
			len(indices), MaxFieldPathDepth, ErrFieldPathOutOfRange)
	}
	copy(fp.path[:], indices)
	fp.last = len(indices) - 1
	return fp, nil
}

// MustFieldPath как NewFieldPath, но паникует при ошибке. Только для тестов и констант.
func MustFieldPath(indices ...uint16) FieldPath {
	fp, err := NewFieldPath(indices...)
	if err != nil {
		panic(err)
	}
	return fp
}

// Last возвращает индекс последнего занятого слота
func (fp FieldPath) Last() int { return fp.last }

// Len возвращает количество занятых слотов
func (fp FieldPath) Len() int { return fp.last + 1 }

// At возвращает значение слота i; ok=false если слот за пределами last
func (fp FieldPath) At(i int) (uint16, bool) {
	if i < 0 || i > fp.last {
		return 0, false
	}
	return fp.path[i], true
}

// Slice возвращает копию занятых слотов
func (fp FieldPath) Slice() []uint16 {
	out := make([]uint16, fp.last+1)
	copy(out, fp.path[:fp.last+1])
	return out
}

// Push добавляет слот со значением v
func (fp *FieldPath) Push(v uint16) error {
	if fp.last+1 >= MaxFieldPathDepth {
		return ErrFieldPathOutOfRange
	}
	fp.last++
	fp.path[fp.last] = v
	return nil
}

// Pop удаляет n последних слотов. Слот 0 удалить нельзя.
func (fp *FieldPath) Pop(n int) error {
	if n < 0 || n > fp.last {
		return ErrFieldPathOutOfRange
	}
	for i := 0; i < n; i++ {
		fp.path[fp.last] = 0
		fp.last--
	}
	return nil
}

// Inc прибавляет delta к последнему слоту
func (fp *FieldPath) Inc(delta int) error {
	v := int(fp.path[fp.last]) + delta
	if v < 0 || v > 0xFFFF {
		return fmt.Errorf("значение слота %d вне диапазона uint16: %w", v, ErrFieldPathOutOfRange)
	}
	fp.path[fp.last] = uint16(v)
	return nil
}

// Set записывает v в уже занятый слот i
func (fp *FieldPath) Set(i int, v uint16) error {
	if i < 0 || i > fp.last {
		return ErrFieldPathOutOfRange
	}
	fp.path[i] = v
	return nil
}

// String форматирует путь как "a/b/c"
func (fp FieldPath) String() string {
	var b strings.Builder
	for i := 0; i <= fp.last; i++ {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.Itoa(int(fp.path[i])))
	}
	return b.String()
}
