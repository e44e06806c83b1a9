package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/phonecomplete"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath, logLevel, network, addr = "", "", "", ""
		normalizePrefix, loadDB, loadIDField = "", "", ""
		completeLocal, completeJSON = false, false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNormalize(t *testing.T) {
	out, err := run(t, "", "normalize", "555-123-4567", "1 (555) 123-4567", "+44 20 7946 0958", "12345")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "+015551234567"))
	assert.True(t, strings.HasSuffix(lines[1], "+015551234567"))
	assert.True(t, strings.HasSuffix(lines[2], "+442079460958"))
	assert.True(t, strings.HasSuffix(lines[3], "skip"))

	out, err = run(t, "", "normalize", "--prefix", "+1", "5551234567")
	require.NoError(t, err)
	assert.Contains(t, out, "+15551234567")
}

func TestLoadAndCompleteLocal(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "phonecomplete.yaml")
	dbPath := filepath.Join(dir, "orders.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("bolt:\n  path: "+dbPath+"\nlog:\n  level: error\n"), 0o600))

	docs := `{"id": "A", "daytime_phone": "555-123-4567"}
{"id": "B", "evening_phone": "(555) 123-4568"}
`
	out, err := run(t, docs, "--config", cfgPath, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 2 documents")

	out, err = run(t, "", "--config", cfgPath, "complete", "--local", "--json", "555-123-4567")
	require.NoError(t, err)

	var matches []phonecomplete.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	assert.Equal(t, []phonecomplete.Match{
		{Key: "+015551234567", RecordID: "A"},
		{Key: "+015551234568", RecordID: "B"},
	}, matches)
}

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMatches(&buf, nil, false))
	assert.Equal(t, "no matches\n", buf.String())

	buf.Reset()
	require.NoError(t, printMatches(&buf, nil, true))
	assert.Equal(t, "[]\n", buf.String())
}
