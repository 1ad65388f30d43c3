package logging

import (
	"bytes"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infof("palpated %d points", 4)
	logger.Debugw("contact", "row", 1, "col", 2)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "palpated 4 points")
	test.That(t, logs.All()[1].ContextMap()["row"], test.ShouldEqual, int64(1))
}

func TestSubloggerSharesOutputs(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("palpation").Sublogger("detector")
	sub.Warn("threshold reached")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "palpation.detector")
	test.That(t, entry.Level, test.ShouldEqual, zapcore.WarnLevel)
}

func TestSetLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Info("dropped")
	logger.Error("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "kept")
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		t.Run(tc.in, func(t *testing.T) {
			level, err := LevelFromString(tc.in)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, level, test.ShouldEqual, tc.expected)
		})
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldBeError)
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("palpcal", &buf, WARN)
	logger.Info("hidden")
	logger.Warnw("skipping sample", "skipped", 3)

	out := buf.String()
	test.That(t, out, test.ShouldNotContainSubstring, "hidden")
	test.That(t, out, test.ShouldContainSubstring, "WARN")
	test.That(t, out, test.ShouldContainSubstring, "palpcal")
	test.That(t, out, test.ShouldContainSubstring, `"skipped": 3`)
}
