package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", &buf)

	SetLevel(LevelWarn)
	l.Infof("hidden %d", 1)
	require.Empty(t, buf.String())

	l.Warnf("shown %d", 2)
	require.Contains(t, buf.String(), "WARN")
	require.Contains(t, buf.String(), "shown 2")
}

func TestParseLevelFromEnvStyleString(t *testing.T) {
	lvl, ok := parseLevel("debug")
	require.True(t, ok)
	require.Equal(t, LevelDebug, lvl)

	lvl, ok = parseLevel("3")
	require.True(t, ok)
	require.Equal(t, LevelWarn, lvl)

	_, ok = parseLevel("not-a-level")
	require.False(t, ok)
}

func TestLocationIncludesCallSiteFile(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", &buf)
	SetLevel(LevelTrace)

	l.Tracef("x")
	require.True(t, strings.Contains(buf.String(), "logger_test.go"))
}
