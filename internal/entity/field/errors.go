package field

import (
	"errors"
	"fmt"
)

// Ошибки разрешения путей и разбора схем
var (
	ErrNoFieldPath         = errors.New("no field path for name")
	ErrFieldPathOutOfRange = errors.New("field path out of range")
	ErrUnknownModel        = errors.New("unknown field model")
	ErrUnbalancedBrackets  = errors.New("unbalanced brackets in field type")
	ErrUnknownArraySize    = errors.New("unknown array size")
)

// NoFieldPathError возвращается, когда имя свойства не найдено в схеме.
// Для вызывающего это ожидаемая ситуация: набор свойств зависит от сборки игры.
type NoFieldPathError struct {
	Name   string
	Reason string
}

func (e *NoFieldPathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no field path for %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("no field path for %q", e.Name)
}

// Is позволяет сравнивать через errors.Is(err, ErrNoFieldPath)
func (e *NoFieldPathError) Is(target error) bool {
	return target == ErrNoFieldPath
}

// TypeError ошибка разбора строки типа поля
type TypeError struct {
	Input string
	Err   error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("не удалось разобрать тип %q: %v", e.Input, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

// IsNoFieldPath проверяет, является ли ошибка отсутствием свойства
func IsNoFieldPath(err error) bool {
	return errors.Is(err, ErrNoFieldPath)
}
