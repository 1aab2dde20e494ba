package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/annel0/source2-demo/internal/entity"
	"github.com/annel0/source2-demo/internal/entity/field"
	"github.com/annel0/source2-demo/internal/logging"
)

// Ошибки загрузки схемы
var (
	ErrUnknownSerializer   = errors.New("unknown serializer")
	ErrDuplicateSerializer = errors.New("duplicate serializer")
	ErrSerializerCycle     = errors.New("serializer reference cycle")
)

// Базовые типы динамических массивов без собственного сериализатора
var vectorBases = map[string]bool{
	"CUtlVector":                   true,
	"CNetworkUtlVectorBase":        true,
	"CUtlVectorEmbeddedNetworkVar": true,
}

type serializerKey struct {
	name    string
	version int32
}

func (k serializerKey) String() string {
	return fmt.Sprintf("%s(v%d)", k.name, k.version)
}

// Builder строит граф сериализаторов из документа
type Builder struct {
	logger *logging.Logger
}

// NewBuilder создаёт построитель. nil-логгер заменяется логгером компонента schema.
func NewBuilder(logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.GetSchemaLogger()
	}
	return &Builder{logger: logger}
}

// build состояние одной сборки
type build struct {
	descs    map[serializerKey]*SerializerDescriptor
	built    map[serializerKey]*field.Serializer
	visiting map[serializerKey]bool
}

// Build строит неизменяемую схему. Любая ошибка типа, неизвестная ссылка
// или цикл ссылок прерывает построение целиком.
func (b *Builder) Build(doc *Document) (*Schema, error) {
	if doc == nil {
		return nil, fmt.Errorf("документ схемы не задан")
	}

	st := &build{
		descs:    make(map[serializerKey]*SerializerDescriptor, len(doc.Serializers)),
		built:    make(map[serializerKey]*field.Serializer, len(doc.Serializers)),
		visiting: make(map[serializerKey]bool),
	}
	for i := range doc.Serializers {
		d := &doc.Serializers[i]
		if d.Name == "" {
			return nil, fmt.Errorf("сериализатор #%d без имени", i)
		}
		key := serializerKey{d.Name, d.Version}
		if _, exists := st.descs[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSerializer, key)
		}
		st.descs[key] = d
	}

	keys := make([]serializerKey, 0, len(st.descs))
	for key := range st.descs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].version < keys[j].version
	})
	for _, key := range keys {
		if _, err := st.serializer(key, nil); err != nil {
			return nil, fmt.Errorf("схема build %d: %w", doc.Build, err)
		}
	}

	s := &Schema{
		build:       doc.Build,
		versions:    st.built,
		serializers: make(map[string]*field.Serializer, len(st.built)),
		classes:     entity.NewClasses(),
	}
	for key, ser := range st.built {
		if cur, ok := s.serializers[key.name]; !ok || cur.Version() < key.version {
			s.serializers[key.name] = ser
		}
	}

	for _, cd := range doc.Classes {
		name := cd.serializerName()
		ser, ok := s.serializers[name]
		if !ok {
			return nil, fmt.Errorf("схема build %d: класс %s: %w %s", doc.Build, cd.Name, ErrUnknownSerializer, name)
		}
		if err := s.classes.Add(entity.NewClass(cd.ID, cd.Name, ser)); err != nil {
			return nil, fmt.Errorf("схема build %d: %w", doc.Build, err)
		}
	}

	b.logger.Info("схема build %d: %d сериализаторов, %d классов", doc.Build, len(st.built), s.classes.Len())
	return s, nil
}

// serializer строит сериализатор один раз; trail хранит цепочку для сообщения о цикле
func (st *build) serializer(key serializerKey, trail []serializerKey) (*field.Serializer, error) {
	if ser, ok := st.built[key]; ok {
		return ser, nil
	}
	trail = append(trail, key)
	if st.visiting[key] {
		names := make([]string, len(trail))
		for i, k := range trail {
			names[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrSerializerCycle, strings.Join(names, " -> "))
	}
	desc, ok := st.descs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSerializer, key)
	}

	st.visiting[key] = true
	defer delete(st.visiting, key)

	fields := make([]*field.Field, 0, len(desc.Fields))
	for i := range desc.Fields {
		f, err := st.field(&desc.Fields[i], trail)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", key, desc.Fields[i].Name, err)
		}
		fields = append(fields, f)
	}

	ser := field.NewSerializer(desc.Name, desc.Version, fields)
	st.built[key] = ser
	return ser, nil
}

// field выбирает модель и декодер свойства
func (st *build) field(fd *FieldDescriptor, trail []serializerKey) (*field.Field, error) {
	ft, err := field.ParseFieldType(fd.Type)
	if err != nil {
		return nil, err
	}
	params := field.DecoderParams{
		BitCount: fd.BitCount,
		Low:      fd.Low,
		High:     fd.High,
		Flags:    fd.Flags,
		Encoder:  fd.Encoder,
	}
	lengthDecoder := field.NewDecoder(field.DecoderUnsigned32, field.DecoderParams{})

	if fd.Serializer != "" {
		nested, err := st.serializer(serializerKey{fd.Serializer, fd.SerializerVersion}, trail)
		if err != nil {
			return nil, err
		}
		if ft.Pointer() {
			return field.NewField(fd.Name, ft, field.NewDecoder(field.DecoderBoolean, field.DecoderParams{}),
				field.PointerModel{Serializer: nested}), nil
		}
		return field.NewField(fd.Name, ft, lengthDecoder, field.VectorModel{Serializer: nested}), nil
	}

	if count, ok := ft.Count(); ok && count > 0 && ft.Base() != "char" {
		dec, err := decoderFor(fd.Decoder, ft, params)
		if err != nil {
			return nil, err
		}
		return field.NewField(fd.Name, ft, dec, field.ArrayModel{}), nil
	}

	if vectorBases[ft.Base()] && ft.Generic() != nil {
		elem, err := decoderFor(fd.Decoder, ft.Generic(), params)
		if err != nil {
			return nil, err
		}
		return field.NewField(fd.Name, ft, lengthDecoder, field.ArrayVectorModel{Element: elem}), nil
	}

	dec, err := decoderFor(fd.Decoder, ft, params)
	if err != nil {
		return nil, err
	}
	return field.NewField(fd.Name, ft, dec, field.ValueModel{}), nil
}

// decoderFor явный тег декодера имеет приоритет над выводом по типу
func decoderFor(tag string, ft *field.FieldType, params field.DecoderParams) (field.FieldDecoder, error) {
	if tag == "" {
		return field.DecoderForType(ft, params), nil
	}
	kind, components, err := field.ParseDecoderKind(tag)
	if err != nil {
		return field.FieldDecoder{}, err
	}
	if kind == field.DecoderVector {
		return field.NewVectorDecoder(components, params), nil
	}
	return field.NewDecoder(kind, params), nil
}
