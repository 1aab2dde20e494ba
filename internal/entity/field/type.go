package field

import (
	"fmt"
	"strconv"
	"strings"
)

// arraySizeConstants значения символических размерностей массивов из схем движка
var arraySizeConstants = map[string]int{
	"MAX_ITEM_STOCKS":                    8,
	"MAX_ABILITY_DRAFT_ABILITIES":        48,
	"DOTA_ABILITY_DRAFT_HEROES_PER_GAME": 10,
}

// pointerTypes компоненты, которые в схеме передаются как указатели без символа '*'
var pointerTypes = map[string]struct{}{
	"CBodyComponent":    {},
	"CLightComponent":   {},
	"CPhysicsComponent": {},
	"CRenderComponent":  {},
	"CPlayerLocalData":  {},
}

// FieldType разобранное описание типа поля схемы.
// Создаётся один раз при загрузке схемы и далее не изменяется.
type FieldType struct {
	base    string
	generic *FieldType
	pointer bool
	count   int
	isArray bool // true, если в строке типа была размерность
}

// ParseFieldType разбирает строку типа вида "CNetworkUtlVectorBase< CHandle >" или "m_items[8]"
func ParseFieldType(name string) (*FieldType, error) {
	if err := checkBalanced(name); err != nil {
		return nil, &TypeError{Input: name, Err: err}
	}

	ft := &FieldType{}
	baseEnd := len(name)

	if strings.HasSuffix(name, "*") {
		ft.pointer = true
		baseEnd--
	} else if _, ok := pointerTypes[name]; ok {
		ft.pointer = true
	}

	if open := strings.IndexByte(name, '['); open >= 0 {
		end := strings.IndexByte(name, ']')
		count, err := parseArraySize(name[open+1 : end])
		if err != nil {
			return nil, &TypeError{Input: name, Err: err}
		}
		ft.count, ft.isArray = count, true
		baseEnd = min(baseEnd, open)
	}

	if open := strings.IndexByte(name, '<'); open >= 0 {
		end := strings.LastIndexByte(name, '>')
		generic, err := ParseFieldType(strings.TrimSpace(name[open+1 : end]))
		if err != nil {
			return nil, &TypeError{Input: name, Err: err}
		}
		ft.generic = generic
		baseEnd = min(baseEnd, open)
	}

	ft.base = strings.TrimSpace(name[:baseEnd])
	return ft, nil
}

// MustParseFieldType как ParseFieldType, но паникует при ошибке
func MustParseFieldType(name string) *FieldType {
	ft, err := ParseFieldType(name)
	if err != nil {
		panic(err)
	}
	return ft
}

func parseArraySize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, ok := arraySizeConstants[s]; ok {
		return v, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownArraySize, s)
	}
	return v, nil
}

// checkBalanced проверяет парность [] и <>. Квадратные скобки не вкладываются.
func checkBalanced(name string) error {
	angle, square := 0, 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '<':
			angle++
		case '>':
			angle--
			if angle < 0 {
				return ErrUnbalancedBrackets
			}
		case '[':
			square++
			if square > 1 {
				return ErrUnbalancedBrackets
			}
		case ']':
			square--
			if square < 0 {
				return ErrUnbalancedBrackets
			}
		}
	}
	if angle != 0 || square != 0 {
		return ErrUnbalancedBrackets
	}
	return nil
}

// Base имя типа без generic-параметра, размерности и '*'
func (ft *FieldType) Base() string { return ft.base }

// Generic параметр шаблона или nil
func (ft *FieldType) Generic() *FieldType { return ft.generic }

// Pointer true для указателей и встроенных компонентов
func (ft *FieldType) Pointer() bool { return ft.pointer }

// Count возвращает размерность массива; ok=false, если размерность не указана
func (ft *FieldType) Count() (int, bool) { return ft.count, ft.isArray }

// String форматирует тип в виде "base< generic >*[n]"
func (ft *FieldType) String() string {
	var b strings.Builder
	b.WriteString(ft.base)
	if ft.generic != nil {
		b.WriteString("< ")
		b.WriteString(ft.generic.String())
		b.WriteString(" >")
	}
	if ft.pointer {
		b.WriteByte('*')
	}
	if ft.isArray {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(ft.count))
		b.WriteByte(']')
	}
	return b.String()
}
