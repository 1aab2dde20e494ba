package entity

import (
	"fmt"

	"github.com/annel0/source2-demo/internal/entity/field"
)

// indexBits число бит индекса в handle сущности
const indexBits = 14

// Entity живой объект игры: экземпляр класса и дерево его декодированных значений.
// Entity не потокобезопасна: обновления применяет один декодер.
type Entity struct {
	index  int32
	serial int32
	class  *Class
	state  *field.FieldState
}

// Property одно свойство сущности для просмотра и экспорта
type Property struct {
	Path  field.FieldPath
	Name  string
	Type  *field.FieldType
	Value field.FieldValue // nil, если значение ещё не приходило
}

// New создаёт сущность с пустым состоянием
func New(index, serial int32, class *Class) *Entity {
	return &Entity{
		index:  index,
		serial: serial,
		class:  class,
		state:  field.NewFieldState(),
	}
}

// Index индекс сущности
func (e *Entity) Index() int32 { return e.index }

// Serial серийный номер слота
func (e *Entity) Serial() int32 { return e.serial }

// Handle упакованный идентификатор, на который ссылаются свойства CHandle
func (e *Entity) Handle() uint32 {
	return uint32(e.serial)<<indexBits | uint32(e.index)
}

// Class класс сущности
func (e *Entity) Class() *Class { return e.class }

// State дерево значений
func (e *Entity) State() *field.FieldState { return e.state }

// Decoder возвращает правило декодирования для пути очередного обновления
func (e *Entity) Decoder(fp field.FieldPath) (field.FieldDecoder, error) {
	return e.class.serializer.DecoderForFieldPath(fp)
}

// Apply сохраняет декодированное значение. Путь проверяется по схеме класса
// целиком, включая отсутствие слотов за листом.
func (e *Entity) Apply(fp field.FieldPath, value field.FieldValue) error {
	if err := e.class.serializer.CheckFieldPath(fp); err != nil {
		return fmt.Errorf("сущность %d (%s): %w", e.index, e.class.name, err)
	}
	e.state.Set(fp, value)
	return nil
}

// PropertyByName возвращает значение свойства по имени, например "m_iTeamNum"
func (e *Entity) PropertyByName(name string) (field.FieldValue, error) {
	fp, err := e.class.serializer.FieldPathForName(name)
	if err != nil {
		return nil, err
	}
	v, ok := e.state.Get(fp)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotSet, name)
	}
	return v, nil
}

// PropertyAs возвращает значение свойства, приведённое к типу T
func PropertyAs[T any](e *Entity, name string) (T, error) {
	v, err := e.PropertyByName(name)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := field.As[T](v)
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Properties перечисляет все свойства, доступные в текущем состоянии
func (e *Entity) Properties() ([]Property, error) {
	s := e.class.serializer
	paths := s.FieldPaths(e.state)
	out := make([]Property, 0, len(paths))
	for _, fp := range paths {
		name, err := s.NameForFieldPath(fp)
		if err != nil {
			return nil, err
		}
		typ, err := s.TypeForFieldPath(fp)
		if err != nil {
			return nil, err
		}
		value, _ := e.state.Get(fp)
		out = append(out, Property{Path: fp, Name: name, Type: typ, Value: value})
	}
	return out, nil
}
