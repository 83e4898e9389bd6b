package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	Infof("folded %d ballots into tally %x", sampleInt, sampleBytes)
	Debugw("partial decryption received", "trustee", 2, "candidate", 7)
	Errorf("cannot combine partial decryptions: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logTestWriter = buf
	t.Cleanup(func() {
		logTestWriter = &bytes.Buffer{}
		Init(LogLevelError, "stderr", nil)
	})

	Init(LogLevelWarn, logTestWriterName, nil)
	if Level() != LogLevelWarn {
		t.Fatalf("unexpected level %q", Level())
	}
	Debugw("hidden", "k", 1)
	Infof("hidden %d", 2)
	Warnw("shown", "trustee", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug/info lines should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"trustee":3`) {
		t.Errorf("warn line with fields missing: %s", out)
	}
}

func TestErrorOutput(t *testing.T) {
	errBuf := &bytes.Buffer{}
	logTestWriter = io.Discard
	t.Cleanup(func() {
		logTestWriter = &bytes.Buffer{}
		Init(LogLevelError, "stderr", nil)
	})

	Init(LogLevelDebug, logTestWriterName, errBuf)
	Infow("not an error", "x", 1)
	Errorw(errSample, "combination failed")
	if strings.Contains(errBuf.String(), "not an error") {
		t.Errorf("info line leaked to error output: %s", errBuf.String())
	}
	if !strings.Contains(errBuf.String(), "combination failed") {
		t.Errorf("error line missing from error output: %s", errBuf.String())
	}
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
