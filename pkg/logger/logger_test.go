package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerFormat(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewSlogLogger(&out, &errOut)

	l.Info("geometry loaded", "geometry")
	assert.Regexp(t, `^\[\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\] \[geometry\] geometry loaded\n$`, out.String())

	out.Reset()
	l.Warn("no alignment", "alignment")
	assert.Contains(t, out.String(), "[WARN] [alignment] no alignment")

	l.Error("broken")
	assert.Contains(t, errOut.String(), `"msg":"broken"`)
	assert.Contains(t, errOut.String(), `"level":"ERROR"`)
}

func TestPackageLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	SetLogger(NewSlogLogger(&out, &errOut))
	defer SetLogger(nil)

	Info("hello", "test")
	Error("bad")
	assert.Contains(t, out.String(), "[test] hello")
	assert.Contains(t, errOut.String(), "bad")

	SetLogger(nil)
	out.Reset()
	Info("dropped", "test")
	assert.Empty(t, out.String())
}

func TestVerbosity(t *testing.T) {
	defer SetVerbosity(0)
	SetVerbosity(3)
	assert.Equal(t, 3, Verbosity())
}
