package field

import (
	"fmt"
	"math"
	"strconv"
)

// FieldValue декодированное значение листа.
// Допустимые типы: bool, string, float32, [2]float32, [3]float32, [4]float32,
// int8..int64, uint8..uint64.
type FieldValue any

// FormatValue форматирует значение для вывода
func FormatValue(v FieldValue) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return strconv.Quote(t)
	case [2]float32:
		return fmt.Sprintf("[%v, %v]", t[0], t[1])
	case [3]float32:
		return fmt.Sprintf("[%v, %v, %v]", t[0], t[1], t[2])
	case [4]float32:
		return fmt.Sprintf("[%v, %v, %v, %v]", t[0], t[1], t[2], t[3])
	default:
		return fmt.Sprint(t)
	}
}

// As приводит значение к типу T. Целые числа расширяются и сужаются
// с проверкой диапазона, float32 приводится к float64.
func As[T any](v FieldValue) (T, error) {
	var zero T
	if t, ok := v.(T); ok {
		return t, nil
	}

	var out any
	switch any(zero).(type) {
	case int:
		n, err := asInt(v, math.MinInt, math.MaxInt)
		if err != nil {
			return zero, err
		}
		out = int(n)
	case int8:
		n, err := asInt(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return zero, err
		}
		out = int8(n)
	case int16:
		n, err := asInt(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return zero, err
		}
		out = int16(n)
	case int32:
		n, err := asInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return zero, err
		}
		out = int32(n)
	case int64:
		n, err := asInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return zero, err
		}
		out = n
	case uint8:
		n, err := asUint(v, math.MaxUint8)
		if err != nil {
			return zero, err
		}
		out = uint8(n)
	case uint16:
		n, err := asUint(v, math.MaxUint16)
		if err != nil {
			return zero, err
		}
		out = uint16(n)
	case uint32:
		n, err := asUint(v, math.MaxUint32)
		if err != nil {
			return zero, err
		}
		out = uint32(n)
	case uint64:
		n, err := asUint(v, math.MaxUint64)
		if err != nil {
			return zero, err
		}
		out = n
	case float64:
		f, ok := v.(float32)
		if !ok {
			return zero, conversionError[T](v)
		}
		out = float64(f)
	default:
		return zero, conversionError[T](v)
	}
	return out.(T), nil
}

func conversionError[T any](v FieldValue) error {
	var zero T
	return fmt.Errorf("невозможно привести %T %s к %T", v, FormatValue(v), zero)
}

func asInt(v FieldValue, lo, hi int64) (int64, error) {
	var n int64
	switch t := v.(type) {
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("значение %d вне диапазона", t)
		}
		n = int64(t)
	default:
		return 0, fmt.Errorf("значение %T не является целым числом", v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("значение %d вне диапазона [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func asUint(v FieldValue, hi uint64) (uint64, error) {
	var n uint64
	switch t := v.(type) {
	case uint8:
		n = uint64(t)
	case uint16:
		n = uint64(t)
	case uint32:
		n = uint64(t)
	case uint64:
		n = t
	case int8, int16, int32, int64:
		s, err := asInt(v, 0, math.MaxInt64)
		if err != nil {
			return 0, err
		}
		n = uint64(s)
	default:
		return 0, fmt.Errorf("значение %T не является целым числом", v)
	}
	if n > hi {
		return 0, fmt.Errorf("значение %d вне диапазона [0, %d]", n, hi)
	}
	return n, nil
}
