package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writers in these tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestNewSinkDefaultsToConsole verifies the initial backend and level.
func TestNewSinkDefaultsToConsole(t *testing.T) {
	var out syncBuffer
	sink := NewSink(&out)

	assert.Equal(t, MediumConsole, sink.Medium())
	assert.Equal(t, LevelInfo, sink.Level())

	sink.Log(LevelInfo, "hello %s", "console")
	sink.Log(LevelDebug, "hidden")

	assert.Contains(t, out.String(), "hello console")
	assert.NotContains(t, out.String(), "hidden")
}

// TestSelectFileRoutesRecords switches to a file and back.
func TestSelectFileRoutesRecords(t *testing.T) {
	var out syncBuffer
	sink := NewSink(&out)
	path := filepath.Join(t.TempDir(), "proxy.log")

	sink.Log(LevelInfo, "before switch")
	require.NoError(t, sink.Select(MediumFile, path))
	assert.Equal(t, MediumFile, sink.Medium())

	sink.Log(LevelWarning, "into the file")
	require.NoError(t, sink.Close())
	assert.Equal(t, MediumConsole, sink.Medium())
	sink.Log(LevelInfo, "back on console")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "into the file")
	assert.Contains(t, string(data), "level=warning")
	assert.NotContains(t, string(data), "before switch")

	console := out.String()
	assert.Contains(t, console, "before switch")
	assert.Contains(t, console, "back on console")
	assert.NotContains(t, console, "into the file")
}

// TestSelectFileAppends verifies an existing log file is appended to.
func TestSelectFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.log")
	require.NoError(t, os.WriteFile(path, []byte("existing line\n"), 0o644))

	sink := NewSink(&syncBuffer{})
	require.NoError(t, sink.Select(MediumFile, path))
	sink.Log(LevelInfo, "appended line")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "existing line\n"))
	assert.Contains(t, string(data), "appended line")
}

// TestSelectUnwritableKeepsPreviousBackend verifies a failed switch is
// all-or-nothing.
func TestSelectUnwritableKeepsPreviousBackend(t *testing.T) {
	var out syncBuffer
	sink := NewSink(&out)

	sink.Log(LevelInfo, "first record")

	bad := filepath.Join(t.TempDir(), "missing", "dir", "proxy.log")
	err := sink.Select(MediumFile, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, MediumConsole, sink.Medium())

	sink.Log(LevelInfo, "second record")

	console := out.String()
	assert.Contains(t, console, "first record")
	assert.Contains(t, console, "second record")

	_, statErr := os.Stat(bad)
	assert.True(t, os.IsNotExist(statErr))
}

// TestSelectFailureKeepsFileBackend verifies a failed switch away from a
// file leaves the file receiving records.
func TestSelectFailureKeepsFileBackend(t *testing.T) {
	var out syncBuffer
	sink := NewSink(&out)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.log")

	require.NoError(t, sink.Select(MediumFile, good))
	sink.Log(LevelInfo, "before failed switch")
	require.Error(t, sink.Select(MediumFile, filepath.Join(dir, "nope", "bad.log")))
	sink.Log(LevelInfo, "after failed switch")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Contains(t, string(data), "before failed switch")
	assert.Contains(t, string(data), "after failed switch")
	assert.Empty(t, out.String())
}

// TestSelectErrors covers invalid selections.
func TestSelectErrors(t *testing.T) {
	sink := NewSink(&syncBuffer{})

	assert.ErrorIs(t, sink.Select(MediumFile, ""), ErrNoTarget)
	assert.ErrorIs(t, sink.Select(Medium(42), "x"), ErrUnknownMedium)
	assert.Equal(t, MediumConsole, sink.Medium())
}

// TestFatalDoesNotExit verifies LevelFatal only writes.
func TestFatalDoesNotExit(t *testing.T) {
	var out syncBuffer
	sink := NewSink(&out)

	sink.Log(LevelFatal, "about to stop (%d)", 22)
	sink.WithField("stage", "open").Fatalf("fatal via entry")

	assert.Contains(t, out.String(), "about to stop (22)")
	assert.Contains(t, out.String(), "level=fatal")
	assert.Contains(t, out.String(), "stage=open")
}

// TestSetLevelAppliesAcrossSwitch verifies the level survives a backend switch.
func TestSetLevelAppliesAcrossSwitch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.log")
	sink := NewSink(&syncBuffer{})
	sink.SetLevel(LevelDebug)

	require.NoError(t, sink.Select(MediumFile, path))
	sink.Log(LevelDebug, "debug detail")
	sink.SetLevel(LevelError)
	sink.Log(LevelWarning, "filtered warning")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug detail")
	assert.NotContains(t, string(data), "filtered warning")
}

// TestConcurrentLogAndSelect logs from many goroutines while the backend is
// switched back and forth, then checks that every record arrived whole in
// exactly one backend.
func TestConcurrentLogAndSelect(t *testing.T) {
	var out syncBuffer
	sink := NewSink(&out)
	dir := t.TempDir()

	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sink.Log(LevelInfo, "record-%d-%d-end", w, i)
			}
		}(w)
	}

	var paths []string
	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, fmt.Sprintf("switch-%d.log", i))
		paths = append(paths, path)
		require.NoError(t, sink.Select(MediumFile, path))
		require.NoError(t, sink.Select(MediumConsole, ""))
	}

	wg.Wait()
	require.NoError(t, sink.Close())

	all := out.String()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		all += string(data)
	}

	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			needle := fmt.Sprintf("msg=record-%d-%d-end\n", w, i)
			assert.Equal(t, 1, strings.Count(all, needle), "record %q", needle)
		}
	}
}

// TestParseLevel covers names and aliases.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarning, false},
		{"Warning", LevelWarning, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, LevelDebug < LevelInfo && LevelInfo < LevelWarning && LevelWarning < LevelError && LevelError < LevelFatal)
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "syslog", MediumSyslog.String())
}
