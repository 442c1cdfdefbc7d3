package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func handlerStub(tele.Context) error { return nil }

func TestRegisterCommand(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("/help", Command{Handler: handlerStub, Description: "Show help"})

	cmd, ok := r.LookupCommand("/help")
	require.True(t, ok)
	assert.Equal(t, "Show help", cmd.Description)

	// Lookup tolerates a missing slash.
	_, ok = r.LookupCommand("help")
	assert.True(t, ok)
}

func TestRegisterCommandSkipsInvalid(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("", Command{Handler: handlerStub, Description: "x"})
	r.RegisterCommand("/nohandler", Command{Description: "x"})
	r.RegisterCommand("/nodesc", Command{Handler: handlerStub})
	r.RegisterCommand("noslash", Command{Handler: handlerStub, Description: "x"})
	assert.Empty(t, r.Commands())
}

func TestRegisterCommandKeepsFirstOnDuplicate(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("/help", Command{Handler: handlerStub, Description: "first"})
	r.RegisterCommand("/help", Command{Handler: handlerStub, Description: "second"})

	cmd, ok := r.LookupCommand("/help")
	require.True(t, ok)
	assert.Equal(t, "first", cmd.Description)
}

func TestListCommandsHidesHiddenAndSorts(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("/start", Command{Handler: handlerStub, Description: "Start", Hidden: true})
	r.RegisterCommand("/help", Command{Handler: handlerStub, Description: "Help"})
	r.RegisterCommand("/cancel", Command{Handler: handlerStub, Description: "Cancel"})

	visible := r.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/cancel", visible[0].Text)
	assert.Equal(t, "/help", visible[1].Text)

	all := r.ListCommands(false)
	assert.Len(t, all, 3)
}

func TestRegisterCallback(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCallback("flow", handlerStub))
	require.Error(t, r.RegisterCallback("flow", handlerStub), "duplicate key")
	require.Error(t, r.RegisterCallback("", handlerStub))
	require.Error(t, r.RegisterCallback("x", nil))

	_, ok := r.Callback("flow")
	assert.True(t, ok)
	_, ok = r.Callback("missing")
	assert.False(t, ok)
}

func TestSetCallbackNotFound(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.CallbackNotFound(), "default fallback present")

	var called bool
	r.SetCallbackNotFound(func(tele.Context) error {
		called = true
		return nil
	})
	r.SetCallbackNotFound(nil) // nil must not clobber the handler

	require.NoError(t, r.CallbackNotFound()(nil))
	assert.True(t, called)
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		name        string
		cb          *tele.Callback
		wantKey     string
		wantPayload string
	}{
		{"nil", nil, "", ""},
		{"unique button", &tele.Callback{Unique: "flow", Data: "MVP"}, "flow", "MVP"},
		{"raw key and payload", &tele.Callback{Data: "\fupdproj|recABC"}, "updproj", "recABC"},
		{"raw key only", &tele.Callback{Data: "cancel"}, "cancel", ""},
		{"empty", &tele.Callback{}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := parseCallback(tc.cb)
			assert.Equal(t, tc.wantKey, key)
			assert.Equal(t, tc.wantPayload, payload)
		})
	}
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "callback", updateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, "message", updateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, "inline_query", updateKind(tele.Update{Query: &tele.Query{}}))
	assert.Equal(t, "other", updateKind(tele.Update{}))
}
