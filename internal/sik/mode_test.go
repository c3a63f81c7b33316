package sik

import (
	"testing"
	"time"

	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommandMode_DataMode(t *testing.T) {
	c, radio, clock := newSimClient(t)

	ok, err := c.CheckCommandMode()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, []time.Duration{CheckSettleDelay}, clock.Sleeps())
	assert.Empty(t, radio.Commands())
}

func TestCheckCommandMode_AlreadyInCommandMode(t *testing.T) {
	c, radio, clock := newSimClient(t)
	radio.SetCommandMode(true)

	ok, err := c.CheckCommandMode()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateCommandMode, c.State())
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, clock.Sleeps())
	assert.Equal(t, []string{"AT"}, radio.Commands(), "probe is flushed with a no-op")

	// The wire is clean for the next exchange.
	reply, err := c.SendRaw("I1")
	require.NoError(t, err)
	assert.Equal(t, "2.0", reply)
}

func TestCheckCommandMode_WrongEcho(t *testing.T) {
	captureLogs(t)
	port := serialmux.NewTestableSerialPort()
	port.OnWrite = func(p []byte) []byte { return []byte("x") }
	c := newClient(serialmux.NewLineTransport(serialmux.NewMockOpener(port).Open, serialmux.PortOptions{}), mockClock())
	require.NoError(t, c.Connect("/dev/ttyUSB0", 57600))

	ok, err := c.CheckCommandMode()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.InCommandMode())
}

func TestEnterCommandMode(t *testing.T) {
	c, radio, clock := newSimClient(t)

	require.NoError(t, c.EnterCommandMode())
	assert.True(t, c.InCommandMode())
	assert.True(t, radio.CommandMode())
	assert.Equal(t, []time.Duration{EnterSettleDelay}, clock.Sleeps())
	assert.Equal(t, time.Second, EnterSettleDelay)
}

func TestEnterCommandMode_Replies(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"OK", true},
		{"OK trailing text", true},
		{"ERROR", false},
		{"ok", false},
		{" OK", false},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			c, radio, _ := newSimClient(t)
			radio.SetFaults(simulator.Faults{EnterReply: tt.reply})

			err := c.EnterCommandMode()
			assert.Equal(t, tt.want, c.InCommandMode())
			if tt.want {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrFailed)
			assert.ErrorIs(t, err, ErrUnexpectedReply)
			assert.NotErrorIs(t, err, ErrPrecondition)
		})
	}
}

func TestEnterCommandMode_NoReply(t *testing.T) {
	c, radio, _ := newSimClient(t)
	radio.SetFaults(simulator.Faults{IgnoreEscape: true})

	err := c.EnterCommandMode()
	assert.ErrorIs(t, err, ErrFailed)
	assert.ErrorIs(t, err, serialmux.ErrTimeout)
	assert.Equal(t, StateConnected, c.State())
}

func TestEnterCommandMode_WriteFailure(t *testing.T) {
	captureLogs(t)
	port := serialmux.NewTestableSerialPort()
	c := newClient(serialmux.NewLineTransport(serialmux.NewMockOpener(port).Open, serialmux.PortOptions{}), mockClock())
	require.NoError(t, c.Connect("/dev/ttyUSB0", 57600))
	port.WriteError = serialmux.ErrWriteFailed

	err := c.EnterCommandMode()
	assert.ErrorIs(t, err, ErrFailed)
	assert.False(t, c.InCommandMode())
}
