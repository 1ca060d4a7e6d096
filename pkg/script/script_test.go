package script_test

import (
	"strings"
	"testing"

	"github.com/bgwastu/deletex/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	js, err := script.Generate([]string{"111", "222", "333"})
	require.NoError(t, err)

	assert.Contains(t, js, `tIds: ["111", "222", "333"],`)
	assert.Contains(t, js, "DeleteTweet")
	assert.Contains(t, js, "TweetDeleter.init();")
	// One request per identifier, driven sequentially off the list.
	assert.Contains(t, js, "this.tIds.pop()")
}

func TestGenerateEmptySelection(t *testing.T) {
	js, err := script.Generate(nil)
	require.NoError(t, err)
	assert.Contains(t, js, "tIds: [],")
}

func TestGenerateEscapesIdentifiers(t *testing.T) {
	js, err := script.Generate([]string{`1"2`})
	require.NoError(t, err)
	assert.Contains(t, js, `tIds: ["1\"2"],`)
	assert.Equal(t, 1, strings.Count(js, "tIds:"))
}
