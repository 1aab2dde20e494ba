package field

// Индексы полей тестовой схемы CDOTA_BaseNPC
const (
	idxTeamNum = iota
	idxWeapons
	idxHealth
	idxCoords
	idxBody
	idxUnitName
)

// newTestSchema строит небольшую схему со всеми моделями полей
func newTestSchema() (unit, weapon, body *Serializer) {
	weapon = NewSerializer("CWeapon", 0, []*Field{
		NewField("m_iAmmo", MustParseFieldType("int32"), NewDecoder(DecoderSigned32, DecoderParams{}), ValueModel{}),
		NewField("m_iClip", MustParseFieldType("int16"), NewDecoder(DecoderSigned16, DecoderParams{}), ValueModel{}),
	})

	body = NewSerializer("CBodyComponentBaseAnimGraph", 3, []*Field{
		NewField("m_cellX", MustParseFieldType("uint16"), NewDecoder(DecoderUnsigned16, DecoderParams{}), ValueModel{}),
		NewField("m_vecOrigin", MustParseFieldType("Vector"), NewVectorDecoder(3, DecoderParams{}), ValueModel{}),
	})

	float32Decoder := NewDecoder(DecoderFloat32, DecoderParams{})
	unit = NewSerializer("CDOTA_BaseNPC", 1, []*Field{
		NewField("m_iTeamNum", MustParseFieldType("uint8"), NewDecoder(DecoderUnsigned8, DecoderParams{}), ValueModel{}),
		NewField("m_hWeapons", MustParseFieldType("CUtlVectorEmbeddedNetworkVar< CWeapon >"),
			NewDecoder(DecoderUnsigned32, DecoderParams{}), VectorModel{Serializer: weapon}),
		NewField("m_rgFlHealth", MustParseFieldType("float32[8]"), float32Decoder, ArrayModel{}),
		NewField("m_vecCoords", MustParseFieldType("CNetworkUtlVectorBase< float32 >"),
			NewDecoder(DecoderUnsigned32, DecoderParams{}), ArrayVectorModel{Element: float32Decoder}),
		NewField("CBodyComponent", MustParseFieldType("CBodyComponent"),
			NewDecoder(DecoderBoolean, DecoderParams{}), PointerModel{Serializer: body}),
		NewField("m_iszUnitName", MustParseFieldType("CUtlSymbolLarge"), NewDecoder(DecoderString, DecoderParams{}), ValueModel{}),
	})
	return unit, weapon, body
}

// newTestState заполняет состояние двумя оружиями, одним элементом массива и компонентом тела
func newTestState() *FieldState {
	st := NewFieldState()
	st.Set(MustFieldPath(idxTeamNum), uint8(2))
	st.Set(MustFieldPath(idxWeapons), uint32(2))
	st.Set(MustFieldPath(idxWeapons, 0, 0), int32(10))
	st.Set(MustFieldPath(idxWeapons, 1, 0), int32(20))
	st.Set(MustFieldPath(idxHealth, 3), float32(100))
	st.Set(MustFieldPath(idxBody), true)
	st.Set(MustFieldPath(idxBody, 0), uint16(5))
	st.Set(MustFieldPath(idxUnitName), "npc_dota_hero_axe")
	return st
}
