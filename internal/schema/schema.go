package schema

import (
	"fmt"
	"sort"

	"github.com/annel0/source2-demo/internal/entity"
	"github.com/annel0/source2-demo/internal/entity/field"
)

// Schema построенная схема сборки. После Build не изменяется и
// разделяется между всеми сущностями и горутинами.
type Schema struct {
	build       uint32
	versions    map[serializerKey]*field.Serializer
	serializers map[string]*field.Serializer // старшая версия по имени
	classes     *entity.Classes
}

// Build номер сборки игры
func (s *Schema) Build() uint32 { return s.build }

// Serializer возвращает старшую версию сериализатора по имени
func (s *Schema) Serializer(name string) (*field.Serializer, error) {
	if ser, ok := s.serializers[name]; ok {
		return ser, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSerializer, name)
}

// SerializerVersion возвращает конкретную версию сериализатора
func (s *Schema) SerializerVersion(name string, version int32) (*field.Serializer, error) {
	key := serializerKey{name, version}
	if ser, ok := s.versions[key]; ok {
		return ser, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSerializer, key)
}

// Serializers возвращает все сериализаторы, упорядоченные по имени и версии
func (s *Schema) Serializers() []*field.Serializer {
	out := make([]*field.Serializer, 0, len(s.versions))
	for _, ser := range s.versions {
		out = append(out, ser)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].Version() < out[j].Version()
	})
	return out
}

// Class возвращает класс по имени
func (s *Schema) Class(name string) (*entity.Class, error) {
	return s.classes.ByName(name)
}

// Classes реестр классов схемы
func (s *Schema) Classes() *entity.Classes { return s.classes }
