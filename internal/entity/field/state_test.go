package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldState_SetGet(t *testing.T) {
	st := NewFieldState()
	st.Set(MustFieldPath(1, 3, 0), int32(42))
	st.Set(MustFieldPath(1), uint32(4))

	v, ok := st.Get(MustFieldPath(1, 3, 0))
	require.True(t, ok)
	assert.Equal(t, int32(42), v)

	v, ok = st.Get(MustFieldPath(1))
	require.True(t, ok)
	assert.Equal(t, uint32(4), v, "Узел хранит и значение, и дочерние элементы")

	_, ok = st.Get(MustFieldPath(1, 2))
	assert.False(t, ok, "Промежуточный узел без значения")
	assert.Nil(t, st.Node(MustFieldPath(1, 2)), "Незаполненный элемент вектора")
	assert.Nil(t, st.Node(MustFieldPath(7)))

	assert.Equal(t, 4, st.Node(MustFieldPath(1)).Len())
}

func TestFieldState_Truncate(t *testing.T) {
	st := NewFieldState()
	for i := uint16(0); i < 4; i++ {
		st.Set(MustFieldPath(0, i, 0), int32(i))
	}

	st.Truncate(MustFieldPath(0), 2)
	assert.Equal(t, 2, st.Node(MustFieldPath(0)).Len())

	_, ok := st.Get(MustFieldPath(0, 3, 0))
	assert.False(t, ok)

	st.Truncate(MustFieldPath(5), 0)
}

func TestAs(t *testing.T) {
	i32, err := As[int32](int32(7))
	require.NoError(t, err)
	assert.Equal(t, int32(7), i32)

	i64, err := As[int64](int16(-3))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), i64)

	u8, err := As[uint8](uint32(200))
	require.NoError(t, err)
	assert.Equal(t, uint8(200), u8)

	_, err = As[uint8](int32(300))
	assert.Error(t, err)

	_, err = As[uint32](int8(-1))
	assert.Error(t, err)

	f, err := As[float64](float32(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	_, err = As[string](int32(1))
	assert.Error(t, err)

	vec, err := As[[3]float32]([3]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 2, 3}, vec)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "None", FormatValue(nil))
	assert.Equal(t, `"axe"`, FormatValue("axe"))
	assert.Equal(t, "[1, 2.5, -3]", FormatValue([3]float32{1, 2.5, -3}))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "17", FormatValue(uint16(17)))
}
