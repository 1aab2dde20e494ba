package entity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/source2-demo/internal/entity/field"
)

// Ошибки реестров
var (
	ErrClassNotFound  = errors.New("class not found")
	ErrEntityNotFound = errors.New("entity not found")
	ErrPropertyNotSet = errors.New("property not set")
)

// Class серверный класс сущности и его схема
type Class struct {
	id         int32
	name       string
	serializer *field.Serializer
}

// NewClass создаёт класс
func NewClass(id int32, name string, serializer *field.Serializer) *Class {
	return &Class{id: id, name: name, serializer: serializer}
}

// ID идентификатор класса
func (c *Class) ID() int32 { return c.id }

// Name имя класса, например "CDOTA_PlayerResource"
func (c *Class) Name() string { return c.name }

// Serializer схема свойств класса
func (c *Class) Serializer() *field.Serializer { return c.serializer }

// Classes реестр классов. Заполняется при загрузке схемы до обработки сущностей
// и после этого только читается.
type Classes struct {
	byID   map[int32]*Class
	byName map[string]*Class
}

// NewClasses создаёт пустой реестр
func NewClasses() *Classes {
	return &Classes{
		byID:   make(map[int32]*Class),
		byName: make(map[string]*Class),
	}
}

// Add регистрирует класс; повторные id и имена запрещены
func (cs *Classes) Add(c *Class) error {
	if _, exists := cs.byID[c.id]; exists {
		return fmt.Errorf("класс с id %d уже зарегистрирован", c.id)
	}
	if _, exists := cs.byName[c.name]; exists {
		return fmt.Errorf("класс %s уже зарегистрирован", c.name)
	}
	cs.byID[c.id] = c
	cs.byName[c.name] = c
	return nil
}

// ByID возвращает класс по идентификатору
func (cs *Classes) ByID(id int32) (*Class, error) {
	if c, ok := cs.byID[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: id %d", ErrClassNotFound, id)
}

// ByName возвращает класс по имени
func (cs *Classes) ByName(name string) (*Class, error) {
	if c, ok := cs.byName[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// Len количество классов
func (cs *Classes) Len() int { return len(cs.byID) }

// All возвращает классы в порядке id
func (cs *Classes) All() []*Class {
	out := make([]*Class, 0, len(cs.byID))
	for _, c := range cs.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
