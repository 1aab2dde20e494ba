package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/source2-demo/internal/entity/field"
	"github.com/annel0/source2-demo/internal/logging"
)

func newTestSerializer() *field.Serializer {
	return field.NewSerializer("CDOTA_Unit_Hero_Axe", 2, []*field.Field{
		field.NewField("m_iPlayerID", field.MustParseFieldType("int32"), field.NewDecoder(field.DecoderSigned32, field.DecoderParams{}), nil),
		field.NewField("m_iTeamNum", field.MustParseFieldType("uint8"), field.NewDecoder(field.DecoderUnsigned8, field.DecoderParams{}), nil),
	})
}

func newQuietExporter() *CacheExporter {
	return NewCacheExporter(logging.NewWriterLogger("metrics", io.Discard, logging.ERROR))
}

func TestCacheExporter_Collect(t *testing.T) {
	ser := newTestSerializer()
	ce := newQuietExporter()
	ce.Register(ser, ser)

	_, err := ser.FieldPathForName("m_iPlayerID")
	require.NoError(t, err)
	_, err = ser.FieldPathForName("m_iPlayerID")
	require.NoError(t, err)
	_, err = ser.FieldPathForName("m_iTeamNum")
	require.NoError(t, err)

	ce.Collect()

	labels := []string{"CDOTA_Unit_Hero_Axe", "2"}
	assert.Equal(t, float64(1), testutil.ToFloat64(ce.hits.WithLabelValues(labels...)))
	assert.Equal(t, float64(2), testutil.ToFloat64(ce.misses.WithLabelValues(labels...)))
	assert.Equal(t, float64(2), testutil.ToFloat64(ce.entries.WithLabelValues(labels...)))
	assert.Equal(t, float64(1), testutil.ToFloat64(ce.serializers), "Повторная регистрация игнорируется")

	// Повторный сбор без новых обращений не меняет счётчики
	ce.Collect()
	assert.Equal(t, float64(1), testutil.ToFloat64(ce.hits.WithLabelValues(labels...)))

	_, err = ser.FieldPathForName("m_iTeamNum")
	require.NoError(t, err)
	ce.Collect()
	assert.Equal(t, float64(2), testutil.ToFloat64(ce.hits.WithLabelValues(labels...)))
}

func TestCacheExporter_StartStop(t *testing.T) {
	ser := newTestSerializer()
	ce := newQuietExporter()
	ce.Register(ser)

	ce.Start(10 * time.Millisecond)
	ce.Start(10 * time.Millisecond)

	_, err := ser.FieldPathForName("m_iTeamNum")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(ce.misses.WithLabelValues("CDOTA_Unit_Hero_Axe", "2")) == 1
	}, time.Second, 10*time.Millisecond)

	ce.Stop()
	ce.Stop()
}

func TestCacheExporter_Handler(t *testing.T) {
	ser := newTestSerializer()
	ce := newQuietExporter()
	ce.Register(ser)

	_, err := ser.FieldPathForName("m_iPlayerID")
	require.NoError(t, err)
	ce.Collect()

	srv := httptest.NewServer(ce.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body),
		`demo_field_path_cache_misses_total{serializer="CDOTA_Unit_Hero_Axe",version="2"} 1`))
}

func TestCacheExporter_Unregister(t *testing.T) {
	old, fresh := newTestSerializer(), newTestSerializer()
	ce := newQuietExporter()
	ce.Register(old)

	_, err := old.FieldPathForName("m_iPlayerID")
	require.NoError(t, err)
	_, err = old.FieldPathForName("m_iTeamNum")
	require.NoError(t, err)
	ce.Collect()

	labels := []string{"CDOTA_Unit_Hero_Axe", "2"}
	assert.Equal(t, float64(2), testutil.ToFloat64(ce.entries.WithLabelValues(labels...)))

	// Новый сериализатор с теми же метками: серии сохраняются, записи суммируются
	ce.Register(fresh)
	_, err = fresh.FieldPathForName("m_iTeamNum")
	require.NoError(t, err)
	ce.Collect()
	assert.Equal(t, float64(3), testutil.ToFloat64(ce.entries.WithLabelValues(labels...)))
	assert.Equal(t, float64(2), testutil.ToFloat64(ce.serializers))

	ce.Unregister(old)
	ce.Unregister(old)
	ce.Collect()
	assert.Equal(t, float64(1), testutil.ToFloat64(ce.entries.WithLabelValues(labels...)))
	assert.Equal(t, float64(1), testutil.ToFloat64(ce.serializers))
	assert.Equal(t, float64(3), testutil.ToFloat64(ce.misses.WithLabelValues(labels...)))

	ce.Unregister(fresh)
	assert.Equal(t, float64(0), testutil.ToFloat64(ce.serializers))
	assert.Equal(t, 0, testutil.CollectAndCount(ce.entries), "Серии снятого сериализатора удаляются")
	assert.Equal(t, 0, testutil.CollectAndCount(ce.misses))
}
