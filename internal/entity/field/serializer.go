package field

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Serializer схема одного класса: упорядоченный список полей.
// Индекс поля в списке это значение слота FieldPath.
// Схема неизменяема после создания; единственное изменяемое состояние
// кеш имя -> путь, защищённый собственным мьютексом.
type Serializer struct {
	name    string
	version int32
	fields  []*Field

	cacheMu sync.RWMutex
	cache   map[string]FieldPath
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// CacheStats статистика кеша имя -> путь
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// NewSerializer создаёт схему. Срез полей копируется.
func NewSerializer(name string, version int32, fields []*Field) *Serializer {
	own := make([]*Field, len(fields))
	copy(own, fields)
	return &Serializer{
		name:    name,
		version: version,
		fields:  own,
		cache:   make(map[string]FieldPath),
	}
}

// Name имя схемы
func (s *Serializer) Name() string { return s.name }

// Version версия схемы
func (s *Serializer) Version() int32 { return s.version }

// Len количество полей
func (s *Serializer) Len() int { return len(s.fields) }

// Field возвращает поле по индексу
func (s *Serializer) Field(i int) (*Field, bool) {
	if i < 0 || i >= len(s.fields) {
		return nil, false
	}
	return s.fields[i], true
}

// Fields возвращает копию списка полей
func (s *Serializer) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// CacheStats возвращает текущую статистику кеша
func (s *Serializer) CacheStats() CacheStats {
	s.cacheMu.RLock()
	entries := len(s.cache)
	s.cacheMu.RUnlock()
	return CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: entries,
	}
}

// fieldAt возвращает поле, на которое указывает слот i пути
func (s *Serializer) fieldAt(fp FieldPath, i int) (*Field, error) {
	if i > fp.last || i >= MaxFieldPathDepth {
		return nil, fmt.Errorf("%s: слот %d за пределами пути %s: %w", s.name, i, fp, ErrFieldPathOutOfRange)
	}
	idx := int(fp.path[i])
	if idx >= len(s.fields) {
		return nil, fmt.Errorf("%s: индекс поля %d (слот %d, путь %s) при %d полях: %w",
			s.name, idx, i, fp, len(s.fields), ErrFieldPathOutOfRange)
	}
	return s.fields[idx], nil
}

// NameForFieldPath восстанавливает имя свойства по пути, например "m_hWeapons.0001.m_iAmmo"
func (s *Serializer) NameForFieldPath(fp FieldPath) (string, error) {
	var b strings.Builder
	cur := s
	i := 0
	for {
		f, err := cur.fieldAt(fp, i)
		if err != nil {
			return "", err
		}
		b.WriteString(f.name)
		i++

		switch m := f.model.(type) {
		case ValueModel:
			return b.String(), nil
		case ArrayModel, ArrayVectorModel:
			if i <= fp.last {
				b.WriteByte('.')
				writeIndex(&b, fp.path[i])
			}
			return b.String(), nil
		case VectorModel:
			if i > fp.last {
				return b.String(), nil
			}
			b.WriteByte('.')
			writeIndex(&b, fp.path[i])
			i++
			if i > fp.last {
				return b.String(), nil
			}
			b.WriteByte('.')
			cur = m.Serializer
		case PointerModel:
			if i > fp.last {
				return b.String(), nil
			}
			b.WriteByte('.')
			cur = m.Serializer
		default:
			return "", fmt.Errorf("%s.%s: %w %T", cur.name, f.name, ErrUnknownModel, f.model)
		}
	}
}

// TypeForFieldPath возвращает тип значения по пути
func (s *Serializer) TypeForFieldPath(fp FieldPath) (*FieldType, error) {
	cur := s
	i := 0
	for {
		f, err := cur.fieldAt(fp, i)
		if err != nil {
			return nil, err
		}
		i++

		switch m := f.model.(type) {
		case ValueModel, ArrayModel:
			return f.typ, nil
		case ArrayVectorModel:
			if i == fp.last {
				return f.elementType(), nil
			}
			return f.typ, nil
		case VectorModel:
			if i >= fp.last {
				return f.typ, nil
			}
			i++
			cur = m.Serializer
		case PointerModel:
			if i > fp.last {
				return f.typ, nil
			}
			cur = m.Serializer
		default:
			return nil, fmt.Errorf("%s.%s: %w %T", cur.name, f.name, ErrUnknownModel, f.model)
		}
	}
}

// DecoderForFieldPath возвращает правило декодирования значения по пути
func (s *Serializer) DecoderForFieldPath(fp FieldPath) (FieldDecoder, error) {
	cur := s
	i := 0
	for {
		f, err := cur.fieldAt(fp, i)
		if err != nil {
			return FieldDecoder{}, err
		}
		i++

		switch m := f.model.(type) {
		case ValueModel, ArrayModel:
			return f.decoder, nil
		case ArrayVectorModel:
			if i == fp.last {
				return m.Element, nil
			}
			return f.decoder, nil
		case VectorModel:
			if i >= fp.last {
				return f.decoder, nil
			}
			i++
			cur = m.Serializer
		case PointerModel:
			if i > fp.last {
				return f.decoder, nil
			}
			cur = m.Serializer
		default:
			return FieldDecoder{}, fmt.Errorf("%s.%s: %w %T", cur.name, f.name, ErrUnknownModel, f.model)
		}
	}
}

// CheckFieldPath проверяет, что путь целиком лежит в схеме: обход должен
// закончиться на последнем слоте, лишние слоты за листом считаются ошибкой.
func (s *Serializer) CheckFieldPath(fp FieldPath) error {
	cur := s
	i := 0
	for {
		f, err := cur.fieldAt(fp, i)
		if err != nil {
			return err
		}
		i++

		end := -1
		switch m := f.model.(type) {
		case ValueModel:
			end = i - 1
		case ArrayModel, ArrayVectorModel:
			end = i
		case VectorModel:
			if i < fp.last {
				i++
				cur = m.Serializer
				continue
			}
			end = i
		case PointerModel:
			if i <= fp.last {
				cur = m.Serializer
				continue
			}
			end = i - 1
		default:
			return fmt.Errorf("%s.%s: %w %T", cur.name, f.name, ErrUnknownModel, f.model)
		}

		if fp.last > end {
			return fmt.Errorf("%s.%s: путь %s продолжается за листом: %w", cur.name, f.name, fp, ErrFieldPathOutOfRange)
		}
		return nil
	}
}

// FieldPathForName возвращает путь по имени свойства.
// Успешные результаты кешируются; ошибки не кешируются.
func (s *Serializer) FieldPathForName(name string) (FieldPath, error) {
	s.cacheMu.RLock()
	fp, ok := s.cache[name]
	s.cacheMu.RUnlock()
	if ok {
		s.hits.Add(1)
		return fp, nil
	}
	s.misses.Add(1)

	fp, err := s.resolveName(name)
	if err != nil {
		return FieldPath{}, err
	}

	s.cacheMu.Lock()
	s.cache[name] = fp
	s.cacheMu.Unlock()
	return fp, nil
}

// resolveName обратная к NameForFieldPath операция без кеша
func (s *Serializer) resolveName(name string) (FieldPath, error) {
	var fp FieldPath
	cur := s
	offset := 0

outer:
	for {
		rest := name[offset:]
		for i, f := range cur.fields {
			if rest == f.name {
				fp.path[fp.last] = uint16(i)
				return fp, nil
			}
			n := len(f.name)
			if len(rest) <= n || rest[n] != '.' || rest[:n] != f.name {
				continue
			}

			fp.path[fp.last] = uint16(i)
			if err := advance(&fp, name); err != nil {
				return FieldPath{}, err
			}
			offset += n + 1

			switch m := f.model.(type) {
			case ArrayModel, ArrayVectorModel:
				idx, err := parseIndex(name, name[offset:])
				if err != nil {
					return FieldPath{}, err
				}
				fp.path[fp.last] = idx
				return fp, nil
			case VectorModel:
				if len(name)-offset < 4 {
					return FieldPath{}, &NoFieldPathError{Name: name, Reason: "индекс элемента короче 4 символов"}
				}
				idx, err := parseIndex(name, name[offset:offset+4])
				if err != nil {
					return FieldPath{}, err
				}
				fp.path[fp.last] = idx
				offset += 4
				if offset == len(name) {
					return fp, nil
				}
				if name[offset] != '.' {
					return FieldPath{}, &NoFieldPathError{Name: name, Reason: "ожидался '.' после индекса элемента"}
				}
				offset++
				if err := advance(&fp, name); err != nil {
					return FieldPath{}, err
				}
				cur = m.Serializer
				continue outer
			case PointerModel:
				cur = m.Serializer
				continue outer
			case ValueModel:
				return FieldPath{}, &NoFieldPathError{Name: name, Reason: fmt.Sprintf("%s не имеет вложенных полей", f.name)}
			default:
				return FieldPath{}, fmt.Errorf("%s.%s: %w %T", cur.name, f.name, ErrUnknownModel, f.model)
			}
		}
		return FieldPath{}, &NoFieldPathError{Name: name}
	}
}

// FieldPaths перечисляет все пути, доступные при текущем состоянии сущности.
// Длины массивов и векторов берутся из состояния, а не из схемы.
func (s *Serializer) FieldPaths(st *FieldState) []FieldPath {
	return s.appendFieldPaths(nil, FieldPath{}, st)
}

func (s *Serializer) appendFieldPaths(out []FieldPath, fp FieldPath, parent *FieldState) []FieldPath {
	for i, f := range s.fields {
		fp.path[fp.last] = uint16(i)
		var node *FieldState
		if parent != nil {
			node = parent.Child(i)
		}
		out = f.appendFieldPaths(out, fp, node)
	}
	return out
}

func (f *Field) appendFieldPaths(out []FieldPath, fp FieldPath, node *FieldState) []FieldPath {
	switch m := f.model.(type) {
	case ValueModel:
		return append(out, fp)
	case ArrayModel, ArrayVectorModel:
		if node == nil || fp.last+1 >= MaxFieldPathDepth {
			return out
		}
		for e := 0; e < node.Len(); e++ {
			if node.Child(e) == nil {
				continue
			}
			elem := fp
			elem.last++
			elem.path[elem.last] = uint16(e)
			out = append(out, elem)
		}
	case VectorModel:
		if node == nil || fp.last+2 >= MaxFieldPathDepth {
			return out
		}
		for e := 0; e < node.Len(); e++ {
			child := node.Child(e)
			if child == nil {
				continue
			}
			elem := fp
			elem.path[elem.last+1] = uint16(e)
			elem.last += 2
			out = m.Serializer.appendFieldPaths(out, elem, child)
		}
	case PointerModel:
		if node == nil || fp.last+1 >= MaxFieldPathDepth {
			return out
		}
		inner := fp
		inner.last++
		out = m.Serializer.appendFieldPaths(out, inner, node)
	}
	return out
}

// advance занимает следующий слот пути
func advance(fp *FieldPath, name string) error {
	if fp.last+1 >= MaxFieldPathDepth {
		return &NoFieldPathError{Name: name, Reason: fmt.Sprintf("глубина пути больше %d", MaxFieldPathDepth)}
	}
	fp.last++
	return nil
}

func parseIndex(name, s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, &NoFieldPathError{Name: name, Reason: fmt.Sprintf("некорректный индекс %q", s)}
	}
	return uint16(v), nil
}

// writeIndex пишет индекс в формате %04d
func writeIndex(b *strings.Builder, v uint16) {
	s := strconv.Itoa(int(v))
	for i := len(s); i < 4; i++ {
		b.WriteByte('0')
	}
	b.WriteString(s)
}
