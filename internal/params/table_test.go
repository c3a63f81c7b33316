package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Layout(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, Count)
	for i, def := range defs {
		assert.Equal(t, ID(i), def.ID, "definition %d out of order", i)
	}

	bools := map[ID]bool{ECC: true, OppResend: true, Manchester: true, RtsCts: true}
	for _, def := range defs {
		if bools[def.ID] {
			assert.Equal(t, KindBool, def.Kind, def.Name)
		} else {
			assert.Equal(t, KindInt, def.Kind, def.Name)
		}
	}
	assert.Equal(t, "MAX_WINDOW", MaxWindow.String())
	assert.Equal(t, "S16", ID(16).String())
}

func TestWritable_ExcludesFormat(t *testing.T) {
	ids := Writable()
	require.Len(t, ids, 15)
	assert.Equal(t, SerialSpeed, ids[0])
	assert.Equal(t, MaxWindow, ids[14])
	for _, id := range ids {
		assert.NotEqual(t, Format, id)
	}
}

func TestLookup(t *testing.T) {
	def, err := Lookup(NetID)
	require.NoError(t, err)
	assert.Equal(t, "NETID", def.Name)
	assert.Equal(t, 25, def.Default)

	_, err = Lookup(ID(40))
	assert.True(t, errors.Is(err, ErrUnknownParameter))

	def, err = ByName("air_speed")
	require.NoError(t, err)
	assert.Equal(t, AirSpeed, def.ID)

	_, err = ByName("BOGUS")
	assert.True(t, errors.Is(err, ErrUnknownParameter))
}

func TestWireValues(t *testing.T) {
	assert.Equal(t, "1", FormatValue(KindBool, 7))
	assert.Equal(t, "0", FormatValue(KindBool, 0))
	assert.Equal(t, "-12", FormatValue(KindInt, -12))

	tests := []struct {
		kind Kind
		text string
		want int
	}{
		{KindBool, "1", 1},
		{KindBool, "1\r", 1},
		{KindBool, "0", 0},
		{KindBool, "yes", 0},
		{KindBool, "2", 0},
		{KindInt, "57", 57},
		{KindInt, " 131\r", 131},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.kind, tt.text)
		require.NoError(t, err, "%q", tt.text)
		assert.Equal(t, tt.want, got, "%q", tt.text)
	}

	_, err := ParseValue(KindInt, "abc")
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestBoardFrequencyLabel(t *testing.T) {
	tests := map[int]string{
		0x43: "433",
		0x47: "470",
		0x86: "868",
		0x91: "915",
		0xF0: "NONE",
	}
	for code, want := range tests {
		got, err := BoardFrequencyLabel(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := BoardFrequencyLabel(0x12)
	assert.True(t, errors.Is(err, ErrUnknownBoardFrequency))
}

func TestParseBoardFrequency(t *testing.T) {
	got, err := ParseBoardFrequency("145\r")
	require.NoError(t, err)
	assert.Equal(t, "915", got)

	got, err = ParseBoardFrequency("0x86")
	require.NoError(t, err)
	assert.Equal(t, "868", got)

	_, err = ParseBoardFrequency("nine")
	assert.True(t, errors.Is(err, ErrUnknownBoardFrequency))

	_, err = ParseBoardFrequency("1")
	assert.True(t, errors.Is(err, ErrUnknownBoardFrequency))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		v    int
		want error
	}{
		{"air speed allowed", AirSpeed, 64, nil},
		{"air speed not in list", AirSpeed, 65, ErrInvalidValue},
		{"serial speed allowed", SerialSpeed, 115, nil},
		{"serial speed not in list", SerialSpeed, 100, ErrInvalidValue},
		{"tx power allowed", TxPower, 17, nil},
		{"tx power not in list", TxPower, 30, ErrInvalidValue},
		{"mavlink low latency", Mavlink, 2, nil},
		{"mavlink out of range", Mavlink, 3, ErrInvalidValue},
		{"bool ok", ECC, 1, nil},
		{"bool out of range", RtsCts, 2, ErrInvalidValue},
		{"duty cycle zero", DutyCycle, 0, ErrInvalidValue},
		{"max window low", MaxWindow, 20, ErrInvalidValue},
		{"net id", NetID, 499, nil},
		{"min freq negative", MinFreq, -1, ErrInvalidValue},
		{"format read-only", Format, 25, ErrReadOnly},
		{"unknown", ID(99), 1, ErrUnknownParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id, tt.v)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
