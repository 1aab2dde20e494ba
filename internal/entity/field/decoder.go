package field

import (
	"fmt"
	"strings"
)

// DecoderKind правило декодирования листового значения с wire
type DecoderKind uint8

const (
	DecoderUnsigned32 DecoderKind = iota
	DecoderBoolean
	DecoderString
	DecoderSigned8
	DecoderSigned16
	DecoderSigned32
	DecoderSigned64
	DecoderUnsigned8
	DecoderUnsigned16
	DecoderUnsigned64
	DecoderFloat32
	DecoderQuantizedFloat
	DecoderVector
	DecoderQAngle
)

var decoderKindNames = map[DecoderKind]string{
	DecoderBoolean:        "bool",
	DecoderString:         "string",
	DecoderSigned8:        "int8",
	DecoderSigned16:       "int16",
	DecoderSigned32:       "int32",
	DecoderSigned64:       "int64",
	DecoderUnsigned8:      "uint8",
	DecoderUnsigned16:     "uint16",
	DecoderUnsigned32:     "uint32",
	DecoderUnsigned64:     "uint64",
	DecoderFloat32:        "float32",
	DecoderQuantizedFloat: "qfloat",
	DecoderVector:         "vector",
	DecoderQAngle:         "qangle",
}

// String возвращает тег правила
func (k DecoderKind) String() string {
	if name, ok := decoderKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DecoderKind(%d)", uint8(k))
}

// ParseDecoderKind разбирает тег правила из описания схемы.
// Для векторов допускается суффикс размерности: "vector2", "vector3", "vector4".
func ParseDecoderKind(tag string) (DecoderKind, int, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch tag {
	case "vector2":
		return DecoderVector, 2, nil
	case "vector", "vector3":
		return DecoderVector, 3, nil
	case "vector4":
		return DecoderVector, 4, nil
	}
	for kind, name := range decoderKindNames {
		if name == tag {
			return kind, 0, nil
		}
	}
	return 0, 0, fmt.Errorf("неизвестное правило декодирования %q", tag)
}

// DecoderParams параметры кодирования из описания поля
type DecoderParams struct {
	BitCount int
	Low      float32
	High     float32
	Flags    int
	Encoder  string
}

// FieldDecoder правило декодирования листа с параметрами конкретного тега.
// Значение сравнимо и не содержит изменяемого состояния.
type FieldDecoder struct {
	Kind       DecoderKind
	Components int // количество float для DecoderVector
	DecoderParams
}

// NewDecoder создаёт правило заданного тега
func NewDecoder(kind DecoderKind, params DecoderParams) FieldDecoder {
	d := FieldDecoder{Kind: kind, DecoderParams: params}
	if kind == DecoderVector {
		d.Components = 3
	}
	return d
}

// NewVectorDecoder создаёт правило для вектора из n float
func NewVectorDecoder(n int, params DecoderParams) FieldDecoder {
	return FieldDecoder{Kind: DecoderVector, Components: n, DecoderParams: params}
}

// String возвращает тип декодированного значения
func (d FieldDecoder) String() string {
	switch d.Kind {
	case DecoderFloat32, DecoderQuantizedFloat:
		return "float32"
	case DecoderVector:
		return fmt.Sprintf("[%d]float32", d.Components)
	case DecoderQAngle:
		return "[3]float32"
	default:
		return d.Kind.String()
	}
}

// typeDecoders базовые имена типов схемы с фиксированным правилом
var typeDecoders = map[string]DecoderKind{
	"bool":                     DecoderBoolean,
	"char":                     DecoderString,
	"CUtlString":               DecoderString,
	"CUtlSymbolLarge":          DecoderString,
	"int8":                     DecoderSigned8,
	"int16":                    DecoderSigned16,
	"int32":                    DecoderSigned32,
	"int64":                    DecoderSigned64,
	"uint8":                    DecoderUnsigned8,
	"uint16":                   DecoderUnsigned16,
	"uint32":                   DecoderUnsigned32,
	"uint64":                   DecoderUnsigned64,
	"CStrongHandle":            DecoderUnsigned64,
	"CHandle":                  DecoderUnsigned32,
	"CEntityHandle":            DecoderUnsigned32,
	"CGameSceneNodeHandle":     DecoderUnsigned32,
	"CUtlStringToken":          DecoderUnsigned32,
	"Color":                    DecoderUnsigned32,
	"color32":                  DecoderUnsigned32,
	"GameTime_t":               DecoderFloat32,
	"float32":                  DecoderFloat32,
	"CNetworkedQuantizedFloat": DecoderQuantizedFloat,
	"QAngle":                   DecoderQAngle,
}

var vectorTypes = map[string]int{
	"Vector2D":   2,
	"Vector":     3,
	"VectorWS":   3,
	"Vector4D":   4,
	"Quaternion": 4,
}

// DecoderForType подбирает правило по базовому имени типа.
// Неизвестные типы (перечисления движка) декодируются как uint32.
func DecoderForType(ft *FieldType, params DecoderParams) FieldDecoder {
	if n, ok := vectorTypes[ft.Base()]; ok {
		return NewVectorDecoder(n, params)
	}
	kind, ok := typeDecoders[ft.Base()]
	if !ok {
		kind = DecoderUnsigned32
	}
	if kind == DecoderFloat32 && params.Encoder == "" && params.BitCount > 0 && params.BitCount < 32 {
		kind = DecoderQuantizedFloat
	}
	return NewDecoder(kind, params)
}
