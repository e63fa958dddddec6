package tools

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLActionToolCall(t *testing.T) {
	raw := `<action><tool_name>solve_linear</tool_name><arguments><arg key="a">2</arg><arg key="b">3</arg><arg key="c">7</arg></arguments></action>`

	var action XMLAction
	require.NoError(t, xml.Unmarshal([]byte(raw), &action))

	assert.Equal(t, "solve_linear", action.ToolName)
	assert.Equal(t, map[string]interface{}{
		"a": "2",
		"b": "3",
		"c": "7",
	}, action.GetArgumentsMap())
}

func TestXMLActionFinish(t *testing.T) {
	t.Run("bare content", func(t *testing.T) {
		var action XMLAction
		require.NoError(t, xml.Unmarshal([]byte(`<action>finish</action>`), &action))

		assert.Empty(t, action.ToolName)
		assert.Equal(t, "finish", action.Content)
		assert.Empty(t, action.GetArgumentsMap())
	})

	t.Run("tool_name form", func(t *testing.T) {
		var action XMLAction
		require.NoError(t, xml.Unmarshal([]byte(`<action><tool_name>Finish</tool_name></action>`), &action))

		assert.Equal(t, "Finish", action.ToolName)
		assert.Empty(t, action.GetArgumentsMap())
	})
}

func TestXMLActionNilReceiver(t *testing.T) {
	var action *XMLAction
	args := action.GetArgumentsMap()
	assert.NotNil(t, args)
	assert.Empty(t, args)
}
