package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomMcIver/Stock-Port/pkg/models"
)

func runCommand(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestTagCommand_JSON(t *testing.T) {
	out := runCommand(t, "", "tag", "--offline", "--json", "--candidates", "--body", "Apple (AAPL) rose; trades as ZYXQ on NASDAQ")

	var got tagOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "AAPL", got.Results[0].Symbol)
	assert.Equal(t, models.MatchMethodKnownSymbol, got.Results[0].DominantMethod)
	assert.Equal(t, "ZYXQ", got.Results[1].Symbol)
	assert.Contains(t, got.Candidates, "ZYXQ")
	assert.Nil(t, got.Persist)
}

func TestTagCommand_StdinAndPersist(t *testing.T) {
	out := runCommand(t, "MSFT stock and msft again", "tag", "--offline", "--json", "--persist", "--id", "doc-9")

	var got tagOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 1)
	require.NotNil(t, got.Persist)
	assert.Equal(t, 1, got.Persist.Associated)
	assert.Zero(t, got.Persist.SecuritiesCreated)
}

func TestTagCommand_PersistNeedsID(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"tag", "--offline", "--persist", "--body", "AAPL", "--env-file", ""})
	assert.Error(t, root.Execute())
}

func TestPrintTagTable(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printTagTable(&out, tagOutput{
		Results: []models.TaggedResult{
			{Symbol: "AAPL", BestCompanyName: "Apple Inc.", FinalConfidence: 0.95, DominantMethod: models.MatchMethodKnownSymbol, MentionCount: 2},
			{Symbol: "ZYXQ", TopContexts: []string{"trades as ZYXQ"}, FinalConfidence: 0.5, DominantMethod: models.MatchMethodContextual, MentionCount: 1},
		},
		Persist: &models.PersistReport{Associated: 1, Failed: 1, FailedSymbols: []string{"ZYXQ"}},
	})

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "AAPL    0.9500      known_symbol        2  Apple Inc.", lines[1])
	assert.Contains(t, lines[2], "trades as ZYXQ")
	assert.Contains(t, out.String(), "failed 1 (ZYXQ)")

	out.Reset()
	printTagTable(&out, tagOutput{})
	assert.Equal(t, "no symbols found\n", out.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
