package params

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(cfg *Config) *[]Change {
	var changes []Change
	cfg.Subscribe(func(c Change) { changes = append(changes, c) })
	return &changes
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 25, cfg.Int(Format))
	assert.Equal(t, 57, cfg.Int(SerialSpeed))
	assert.Equal(t, 131, cfg.Int(MaxWindow))
	assert.False(t, cfg.Bool(ECC))
	assert.Equal(t, Identification{}, cfg.Identification())
}

func TestConfig_SetNotifiesOncePerChange(t *testing.T) {
	cfg := NewConfig()
	changes := collect(cfg)

	require.NoError(t, cfg.SetInt(NetID, 42))
	require.NoError(t, cfg.SetInt(NetID, 42))
	require.NoError(t, cfg.SetBool(ECC, true))
	require.NoError(t, cfg.SetText(TxPower, "14\r"))

	want := []Change{
		{Field: "NETID", Old: "25", New: "42"},
		{Field: "ECC", Old: "0", New: "1"},
		{Field: "TXPOWER", Old: "20", New: "14"},
	}
	if diff := cmp.Diff(want, *changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "1", cfg.Text(ECC))
}

func TestConfig_BoolNormalised(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.SetInt(Manchester, 5))
	assert.Equal(t, 1, cfg.Value(Manchester))
	assert.True(t, cfg.Bool(Manchester))
}

func TestConfig_SetUnknown(t *testing.T) {
	cfg := NewConfig()
	assert.ErrorIs(t, cfg.SetInt(ID(20), 1), ErrUnknownParameter)
	assert.ErrorIs(t, cfg.SetText(NetID, "x"), ErrInvalidValue)
	assert.Equal(t, 0, cfg.Value(ID(20)))
}

func TestConfig_Replace(t *testing.T) {
	cfg := NewConfig()
	changes := collect(cfg)

	v := Defaults()
	v[AirSpeed] = 128
	v[RtsCts] = 1
	cfg.Replace(v)

	assert.Len(t, *changes, 2)
	assert.Equal(t, v, cfg.Values())
}

func TestConfig_Identification(t *testing.T) {
	cfg := NewConfig()
	changes := collect(cfg)

	id := Identification{Banner: "SiK 2.0 on HM-TRP", BoardFrequency: "915"}
	cfg.SetIdentification(id)
	cfg.SetIdentification(id)

	assert.Equal(t, id, cfg.Identification())
	require.Len(t, *changes, 2)
	assert.Equal(t, "banner", (*changes)[0].Field)
	assert.Equal(t, "board_frequency", (*changes)[1].Field)
}

func TestConfig_Unsubscribe(t *testing.T) {
	cfg := NewConfig()
	calls := 0
	id := cfg.Subscribe(func(Change) { calls++ })
	require.NoError(t, cfg.SetInt(NetID, 1))
	cfg.Unsubscribe(id)
	cfg.Unsubscribe("missing")
	require.NoError(t, cfg.SetInt(NetID, 2))
	assert.Equal(t, 1, calls)
}
