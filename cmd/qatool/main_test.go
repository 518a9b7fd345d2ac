package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayerbet/QAtool/internal/config"
)

const seedYAML = `topics:
  - id: greeting
    label: Greeting
    default_comment: Did not greet > as scripted.
  - id: tone
    label: Tone
    default_comment: Agent was polite.
`

const answersYAML = `evaluator_name: Ana
contact_id: C-1042
answers:
  - topic: Greeting
    marking: error
    note: skipped the name
  - topic: tone
    marking: n/a
`

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"QATOOL_USER", "QATOOL_DB", "QATOOL_LOG_LEVEL", "QATOOL_SERVER_PORT"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the CLI against dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestReportSaveAndHistory(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	seed := writeFile(t, dir, "seed.yaml", seedYAML)
	answers := writeFile(t, dir, "answers.yaml", answersYAML)

	out, _, err := run(t, dir, "catalog", "import", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 topic(s) and 2 default comment(s)")

	out, _, err = run(t, dir, "--user", "ana", "report", "--answers", answers, "--save")
	require.NoError(t, err)
	assert.Equal(t, "❌ Greeting\nDid not greet (Obs: skipped the name) as scripted.\n\n🟡 N/A Tone\nAgent was polite.\n", out)

	out, _, err = run(t, dir, "--user", "ana", "history", "--markdown", "--contact", "c-10")
	require.NoError(t, err)
	assert.Contains(t, out, "C-1042")
	assert.Contains(t, out, "1 report(s)")

	out, _, err = run(t, dir, "--user", "bia", "history", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "0 report(s)")
}

func TestReportRejectsBadAnswers(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	_, _, err := run(t, dir, "catalog", "import", writeFile(t, dir, "seed.yaml", seedYAML))
	require.NoError(t, err)

	answers := writeFile(t, dir, "bad.yaml", "answers:\n  - topic: nope\n    marking: error\n  - topic: tone\n    marking: maybe\n")
	_, _, err = run(t, dir, "report", "--answers", answers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown topic "nope"`)
	assert.Contains(t, err.Error(), "answers[1]")
}

func TestSaveWithoutUserFails(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	_, _, err := run(t, dir, "catalog", "import", writeFile(t, dir, "seed.yaml", seedYAML))
	require.NoError(t, err)

	_, errOut, err := run(t, dir, "report", "--answers", writeFile(t, dir, "a.yaml", answersYAML), "--save")
	require.Error(t, err)
	assert.Contains(t, errOut, "No user set")
}

func TestCommentsSetAndList(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	_, _, err := run(t, dir, "catalog", "import", writeFile(t, dir, "seed.yaml", seedYAML))
	require.NoError(t, err)

	out, _, err := run(t, dir, "--user", "ana", "comments", "set", "Tone", "Calm", "and", "clear.")
	require.NoError(t, err)
	assert.Contains(t, out, "Comment saved")

	out, _, err = run(t, dir, "--user", "ana", "comments", "list", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| tone | Tone | * | Calm and clear. |")

	out, _, err = run(t, dir, "--user", "bia", "comments", "list", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| tone | Tone |  | Agent was polite. |")

	_, _, err = run(t, dir, "--user", "ana", "comments", "set", "nope", "x")
	require.Error(t, err)
}

func TestSeedFromConfigOnFirstRun(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, config.InitDir(dir))
	seed := writeFile(t, dir, "seed.toml", "[[topics]]\nlabel = \"Hold time\"\ndefault_comment = \"Hold exceeded two minutes.\"\n")
	writeFile(t, filepath.Join(dir, config.Dir), "config.yaml", "version: 1\ncatalog_seed: "+seed+"\n")

	out, _, err := run(t, dir, "catalog", "list", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Hold time")
	assert.Contains(t, out, "Hold exceeded two minutes.")
}

func TestWhoami(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	out, _, err := run(t, dir, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "No user set")

	_, _, err = run(t, dir, "whoami", "--set", "  ana  ")
	require.NoError(t, err)
	out, _, err = run(t, dir, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "ana", strings.TrimSpace(out))

	t.Setenv("QATOOL_USER", "bia")
	out, _, err = run(t, dir, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "bia", strings.TrimSpace(out))
}

func TestHistoryRejectsBadDate(t *testing.T) {
	isolateEnv(t)
	_, _, err := run(t, t.TempDir(), "--user", "ana", "history", "--date", "05/2024")
	require.Error(t, err)
}

func TestHistoryShowUnknownID(t *testing.T) {
	isolateEnv(t)
	_, _, err := run(t, t.TempDir(), "--user", "ana", "history", "--show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report missing not found")
}
