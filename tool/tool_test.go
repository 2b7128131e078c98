package tool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutput(t *testing.T) {
	var gotArgs map[string]any
	h := func(name string, args map[string]any) (any, error) {
		gotArgs = args
		switch name {
		case "get_time":
			return "12:00", nil
		case "fail":
			return nil, errors.New("boom")
		}
		return nil, nil
	}

	require.Equal(t, `"12:00"`, Output(h, "get_time", `{"tz":"UTC"}`))
	require.Equal(t, "UTC", gotArgs["tz"])
	require.Equal(t, `{"error":"boom"}`, Output(h, "fail", ""))
	require.Equal(t, `{"success":true}`, Output(h, "noop", "{}"))
	require.Contains(t, Output(h, "noop", "{not json"), "invalid arguments")
}

func TestFunction(t *testing.T) {
	f := Function("conversation_end", "End the conversation", nil)
	require.Equal(t, "function", f.Type)
	require.Equal(t, "object", f.Parameters.Type)
	require.NotNil(t, f.Parameters.Properties)
	require.NotNil(t, f.Parameters.Required)

	require.Equal(t, ChoiceAuto, ChoiceFor([]Tool{f}))
	require.Equal(t, ChoiceNone, ChoiceFor(nil))
}
