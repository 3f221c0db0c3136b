package efem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandFormat(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"no args", NewCommand("Load", "Loadport1"), "#Load,Loadport1$"},
		{"with args", NewCommand("SmartGet", "Robot1", "UpArm", "Loadport1", "3"), "#SmartGet,Robot1,UpArm,Loadport1,3$"},
		{"no device", Command{Name: "GetVersion"}, "#GetVersion$"},
		{"alternate addressing", Command{Name: "Home", Device: "Robot", Alt: true}, "#@Home,Robot$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.cmd.Format())
		})
	}
}

func TestParseCommandLine(t *testing.T) {
	cmd, err := ParseCommandLine("SmartGet,Robot1,UpArm,Loadport1,3")
	require.NoError(t, err)
	require.Equal(t, "SmartGet", cmd.Name)
	require.Equal(t, "Robot1", cmd.Device)
	require.Equal(t, []string{"UpArm", "Loadport1", "3"}, cmd.Args)
	require.False(t, cmd.Alt)

	cmd, err = ParseCommandLine("@Home,Robot")
	require.NoError(t, err)
	require.True(t, cmd.Alt)
	require.Equal(t, "#@Home,Robot$", cmd.Format())

	_, err = ParseCommandLine("   ")
	require.ErrorIs(t, err, ErrInvalidCommand)
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage("GetStatus,EFEM,OK,1,1$")
	require.NoError(t, err)
	require.Equal(t, "GetStatus", msg.Name)
	require.Equal(t, "EFEM", msg.Device)
	require.Equal(t, []string{"OK", "1", "1"}, msg.Details)

	// some firmware revisions echo the prefix
	msg, err = ParseMessage("#Load,Loadport1,OK$")
	require.NoError(t, err)
	require.Equal(t, "Load", msg.Name)

	_, err = ParseMessage("Load,Loadport1,OK")
	require.ErrorIs(t, err, ErrInvalidFrame)

	_, err = ParseMessage("$")
	require.ErrorIs(t, err, ErrInvalidFrame)
}

func TestMessageEvent(t *testing.T) {
	msg, err := ParseMessage("Event,Loadport1,FoupPlace$")
	require.NoError(t, err)
	require.True(t, msg.IsEvent())

	ev := msg.Event()
	require.NotNil(t, ev)
	require.Equal(t, "Loadport1", ev.Source)
	require.Equal(t, "FoupPlace", ev.Type)
	require.Empty(t, ev.Data)
	require.Equal(t, "Event,Loadport1,FoupPlace", ev.String())

	msg, err = ParseMessage("Load,Loadport1,OK$")
	require.NoError(t, err)
	require.False(t, msg.IsEvent())
	require.Nil(t, msg.Event())
}

func TestResponseFromMessage(t *testing.T) {
	t.Run("ok with payload", func(t *testing.T) {
		msg, err := ParseMessage("GetMapResult,Loadport1,OK,0,0,1$")
		require.NoError(t, err)

		resp, ok := ResponseFromMessage(msg)
		require.True(t, ok)
		require.Equal(t, RespOK, resp.Kind)
		require.Equal(t, []string{"0", "0", "1"}, resp.Payload)
	})

	t.Run("error carries last detail as code", func(t *testing.T) {
		msg, err := ParseMessage("Load,Loadport1,Error,5006$")
		require.NoError(t, err)

		resp, ok := ResponseFromMessage(msg)
		require.True(t, ok)
		require.Equal(t, RespError, resp.Kind)
		require.Equal(t, "5006", resp.Code)
		require.False(t, resp.OK())
	})

	t.Run("neither token resolves nothing", func(t *testing.T) {
		msg, err := ParseMessage("Load,Loadport1,Processing$")
		require.NoError(t, err)

		resp, ok := ResponseFromMessage(msg)
		require.False(t, ok)
		require.Nil(t, resp)
	})
}
