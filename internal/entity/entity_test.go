package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/source2-demo/internal/entity/field"
)

// newHeroClass повторяет фрагмент схемы героя, достаточный для трекинга позиций
func newHeroClass() *Class {
	body := field.NewSerializer("CBodyComponentBaseAnimGraph", 0, []*field.Field{
		field.NewField("m_cellX", field.MustParseFieldType("uint16"), field.NewDecoder(field.DecoderUnsigned16, field.DecoderParams{}), nil),
		field.NewField("m_cellY", field.MustParseFieldType("uint16"), field.NewDecoder(field.DecoderUnsigned16, field.DecoderParams{}), nil),
	})
	hero := field.NewSerializer("CDOTA_Unit_Hero_Axe", 0, []*field.Field{
		field.NewField("m_iPlayerID", field.MustParseFieldType("int32"), field.NewDecoder(field.DecoderSigned32, field.DecoderParams{}), nil),
		field.NewField("m_iTeamNum", field.MustParseFieldType("uint8"), field.NewDecoder(field.DecoderUnsigned8, field.DecoderParams{}), nil),
		field.NewField("CBodyComponent", field.MustParseFieldType("CBodyComponent"),
			field.NewDecoder(field.DecoderBoolean, field.DecoderParams{}), field.PointerModel{Serializer: body}),
	})
	return NewClass(301, "CDOTA_Unit_Hero_Axe", hero)
}

func TestEntity_PositionsScenario(t *testing.T) {
	e := New(12, 3, newHeroClass())

	require.NoError(t, e.Apply(field.MustFieldPath(0), int32(4)))
	require.NoError(t, e.Apply(field.MustFieldPath(1), uint8(2)))
	require.NoError(t, e.Apply(field.MustFieldPath(2), true))
	require.NoError(t, e.Apply(field.MustFieldPath(2, 0), uint16(140)))
	require.NoError(t, e.Apply(field.MustFieldPath(2, 1), uint16(96)))

	playerID, err := PropertyAs[int32](e, "m_iPlayerID")
	require.NoError(t, err)
	assert.Equal(t, int32(4), playerID)

	team, err := PropertyAs[int](e, "m_iTeamNum")
	require.NoError(t, err)
	assert.Equal(t, 2, team)

	cellX, err := PropertyAs[uint16](e, "CBodyComponent.m_cellX")
	require.NoError(t, err)
	assert.Equal(t, uint16(140), cellX)

	_, err = PropertyAs[string](e, "m_iTeamNum")
	assert.Error(t, err, "uint8 не приводится к string")
}

func TestEntity_ApplyRejectsUnknownPath(t *testing.T) {
	e := New(1, 0, newHeroClass())

	err := e.Apply(field.MustFieldPath(9), int32(1))
	assert.ErrorIs(t, err, field.ErrFieldPathOutOfRange)

	_, ok := e.State().Get(field.MustFieldPath(9))
	assert.False(t, ok, "Некорректное обновление не должно попадать в состояние")

	// Слот за листом m_iTeamNum недостижим ни по имени, ни перечислением
	err = e.Apply(field.MustFieldPath(1, 3), uint8(2))
	assert.ErrorIs(t, err, field.ErrFieldPathOutOfRange)
	_, ok = e.State().Get(field.MustFieldPath(1, 3))
	assert.False(t, ok)

	err = e.Apply(field.MustFieldPath(2, 1, 0), uint16(1))
	assert.ErrorIs(t, err, field.ErrFieldPathOutOfRange)
}

func TestEntity_PropertyErrors(t *testing.T) {
	e := New(1, 0, newHeroClass())

	_, err := e.PropertyByName("m_iPlayerID")
	assert.ErrorIs(t, err, ErrPropertyNotSet)

	_, err = e.PropertyByName("m_flMana")
	assert.True(t, field.IsNoFieldPath(err))
}

func TestEntity_Properties(t *testing.T) {
	e := New(1, 0, newHeroClass())
	require.NoError(t, e.Apply(field.MustFieldPath(1), uint8(3)))
	require.NoError(t, e.Apply(field.MustFieldPath(2), true))
	require.NoError(t, e.Apply(field.MustFieldPath(2, 1), uint16(7)))

	props, err := e.Properties()
	require.NoError(t, err)

	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"m_iPlayerID", "m_iTeamNum", "CBodyComponent.m_cellX", "CBodyComponent.m_cellY"}, names)

	assert.Nil(t, props[0].Value, "m_iPlayerID ещё не приходил")
	assert.Equal(t, uint8(3), props[1].Value)
	assert.Equal(t, "uint16", props[3].Type.String())
	assert.Equal(t, field.MustFieldPath(2, 1), props[3].Path)
}

func TestEntity_Handle(t *testing.T) {
	e := New(12, 3, newHeroClass())
	assert.Equal(t, uint32(3<<14|12), e.Handle())

	dec, err := e.Decoder(field.MustFieldPath(2, 0))
	require.NoError(t, err)
	assert.Equal(t, field.DecoderUnsigned16, dec.Kind)
}

func TestEntities_Registry(t *testing.T) {
	class := newHeroClass()
	es := NewEntities()
	es.Put(New(20, 1, class))
	es.Put(New(5, 2, class))

	assert.Equal(t, 2, es.Len())

	all := es.All()
	require.Len(t, all, 2)
	assert.Equal(t, int32(5), all[0].Index())

	byHandle, err := es.ByHandle(2<<14 | 5)
	require.NoError(t, err)
	assert.Same(t, all[0], byHandle)

	_, err = es.ByHandle(9<<14 | 5)
	assert.ErrorIs(t, err, ErrEntityNotFound, "Серийный номер не совпадает")

	hero, err := es.ByClassName("CDOTA_Unit_Hero_Axe")
	require.NoError(t, err)
	assert.Equal(t, int32(5), hero.Index())

	_, err = es.ByClassName("CDOTA_Unit_Hero_Lina")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	assert.True(t, es.Remove(5))
	assert.False(t, es.Remove(5))
	_, err = es.ByIndex(5)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestClasses_Registry(t *testing.T) {
	cs := NewClasses()
	hero := newHeroClass()
	require.NoError(t, cs.Add(hero))
	require.NoError(t, cs.Add(NewClass(7, "CDOTAGamerulesProxy", field.NewSerializer("CDOTAGamerulesProxy", 0, nil))))

	assert.Error(t, cs.Add(NewClass(301, "Other", nil)), "Повторный id")
	assert.Error(t, cs.Add(NewClass(8, "CDOTA_Unit_Hero_Axe", nil)), "Повторное имя")

	got, err := cs.ByName("CDOTA_Unit_Hero_Axe")
	require.NoError(t, err)
	assert.Same(t, hero, got)

	_, err = cs.ByID(999)
	assert.ErrorIs(t, err, ErrClassNotFound)

	all := cs.All()
	require.Len(t, all, 2)
	assert.Equal(t, int32(7), all[0].ID())
	assert.Equal(t, 2, cs.Len())
}
