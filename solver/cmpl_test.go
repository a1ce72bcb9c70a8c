package solver

import (
	"context"
	"errors"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Installs a fake cmpl binary plus program templates and returns the
// executable and work paths
func fakeCMPL(t *testing.T, script string) (string, string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake solver needs a POSIX shell")
	}

	exe := t.TempDir()
	work := filepath.Join(t.TempDir(), "work")

	require.NoError(t, ioutil.WriteFile(filepath.Join(exe, defaultBinary), []byte("#!/bin/sh\n"+script), 0755))
	for _, f := range DefaultFiles {
		require.NoError(t, ioutil.WriteFile(filepath.Join(exe, f.Program), []byte("parameters:\n"), 0644))
	}

	return exe, work
}

func testLogger() *log.Logger {
	return log.New(ioutil.Discard, "", 0)
}

func TestCMPLSolve(t *testing.T) {
	// $1 is the program, $3 the solution file
	exe, work := fakeCMPL(t, `grep -q '^%data .*firstpass_input.cdat$' "$1" || exit 2
grep -q '^%opt cbc seconds 2$' "$1" || exit 3
cat > "$3" <<'EOF'
`+testSolution+`EOF
`)

	s := NewCMPL(exe, work, testLogger())
	assert.Equal(t, filepath.Join(exe, "FirstPass.cmpl"), s.ExePath("FirstPass.cmpl"))
	assert.Equal(t, filepath.Join(work, "firstpass_output.csv"), s.WorkPath("firstpass_output.csv"))

	p := testProblem(FirstPass)
	p.Timeout = 1500 * time.Millisecond

	sol, err := s.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1}, sol.BackgroundIndices.Pix)

	// The data file is left behind for inspection
	b, err := ioutil.ReadFile(s.WorkPath(DefaultFiles[FirstPass].Data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "%pass < 1 >\n"))
}

func TestCMPLNoSolution(t *testing.T) {
	exe, work := fakeCMPL(t, "exit 1\n")

	_, err := NewCMPL(exe, work, testLogger()).Solve(context.Background(), testProblem(SecondPass))
	assert.True(t, errors.Is(err, ErrInfeasible), "got %v", err)
}

func TestCMPLStaleSolution(t *testing.T) {
	exe, work := fakeCMPL(t, "exit 0\n")

	s := NewCMPL(exe, work, testLogger())
	require.NoError(t, os.MkdirAll(work, 0755))
	require.NoError(t, ioutil.WriteFile(s.WorkPath(DefaultFiles[SecondPass].Solution), []byte(testSolution), 0644))

	_, err := s.Solve(context.Background(), testProblem(SecondPass))
	assert.True(t, errors.Is(err, ErrInfeasible), "got %v", err)
}

func TestCMPLTimeout(t *testing.T) {
	exe, work := fakeCMPL(t, "exec sleep 10\n")

	p := testProblem(FirstPass)
	p.Timeout = 100 * time.Millisecond

	_, err := NewCMPL(exe, work, testLogger()).Solve(context.Background(), p)
	assert.True(t, errors.Is(err, ErrInfeasible), "got %v", err)
}

func TestCMPLMissingBinary(t *testing.T) {
	_, err := NewCMPL(t.TempDir(), t.TempDir(), testLogger()).Solve(context.Background(), testProblem(FirstPass))
	assert.True(t, errors.Is(err, ErrConfig), "got %v", err)
}

func TestCMPLMissingProgram(t *testing.T) {
	exe, work := fakeCMPL(t, "exit 0\n")
	require.NoError(t, os.Remove(filepath.Join(exe, DefaultFiles[FirstPass].Program)))

	_, err := NewCMPL(exe, work, testLogger()).Solve(context.Background(), testProblem(FirstPass))
	assert.True(t, errors.Is(err, ErrConfig), "got %v", err)
}

func TestCMPLNilLogger(t *testing.T) {
	exe, work := fakeCMPL(t, "exit 1\n")
	_, err := NewCMPL(exe, work, nil).Solve(context.Background(), testProblem(FirstPass))
	assert.True(t, errors.Is(err, ErrInfeasible), "got %v", err)
}
