package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldType(t *testing.T) {
	testCases := []struct {
		input   string
		base    string
		generic string
		pointer bool
		count   int
		isArray bool
	}{
		{input: "int32", base: "int32"},
		{input: "m_items[MAX_ITEM_STOCKS]", base: "m_items", count: 8, isArray: true},
		{input: "CHandle< CBaseEntity >[MAX_ABILITY_DRAFT_ABILITIES]", base: "CHandle", generic: "CBaseEntity", count: 48, isArray: true},
		{input: "uint8[DOTA_ABILITY_DRAFT_HEROES_PER_GAME]", base: "uint8", count: 10, isArray: true},
		{input: "float32[8]", base: "float32", count: 8, isArray: true},
		{input: "CNetworkUtlVectorBase< CHandle >", base: "CNetworkUtlVectorBase", generic: "CHandle"},
		{input: "CNetworkUtlVectorBase< CHandle< CBaseEntity > >", base: "CNetworkUtlVectorBase", generic: "CHandle< CBaseEntity >"},
		{input: "CEntityIdentity*", base: "CEntityIdentity", pointer: true},
		{input: "CBodyComponent", base: "CBodyComponent", pointer: true},
		{input: "CPlayerLocalData", base: "CPlayerLocalData", pointer: true},
		{input: "  CUtlString ", base: "CUtlString"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			ft, err := ParseFieldType(tc.input)
			require.NoError(t, err)

			assert.Equal(t, tc.base, ft.Base(), "Базовое имя")
			assert.Equal(t, tc.pointer, ft.Pointer(), "Флаг указателя")

			count, isArray := ft.Count()
			assert.Equal(t, tc.isArray, isArray, "Наличие размерности")
			assert.Equal(t, tc.count, count, "Размерность")

			if tc.generic == "" {
				assert.Nil(t, ft.Generic())
			} else {
				require.NotNil(t, ft.Generic())
				assert.Equal(t, tc.generic, ft.Generic().String())
			}
		})
	}
}

func TestParseFieldType_Errors(t *testing.T) {
	testCases := []struct {
		input string
		err   error
	}{
		{"m_items[8", ErrUnbalancedBrackets},
		{"m_items]8[", ErrUnbalancedBrackets},
		{"CUtlVector< int32", ErrUnbalancedBrackets},
		{"CUtlVector int32 >", ErrUnbalancedBrackets},
		{"m_items[[8]]", ErrUnbalancedBrackets},
		{"m_items[MAX_UNKNOWN]", ErrUnknownArraySize},
		{"m_items[]", ErrUnknownArraySize},
		{"m_items[-1]", ErrUnknownArraySize},
		{"CUtlVector< m_items[x] >", ErrUnknownArraySize},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			ft, err := ParseFieldType(tc.input)
			assert.Nil(t, ft)
			assert.ErrorIs(t, err, tc.err)

			var te *TypeError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tc.input, te.Input)
		})
	}
}

func TestFieldType_String(t *testing.T) {
	for _, input := range []string{
		"int32",
		"float32[8]",
		"CEntityIdentity*",
		"CHandle< CBaseEntity >[4]",
		"CNetworkUtlVectorBase< CHandle< CBaseEntity > >",
	} {
		assert.Equal(t, input, MustParseFieldType(input).String())
	}

	assert.Equal(t, "m_items[8]", MustParseFieldType("m_items[MAX_ITEM_STOCKS]").String())
	assert.Equal(t, "CBodyComponent*", MustParseFieldType("CBodyComponent").String())
}
