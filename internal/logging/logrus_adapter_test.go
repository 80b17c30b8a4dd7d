package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level logrus.Level) (*bytes.Buffer, Logger) {
	logrusLogger := logrus.New()
	var buf bytes.Buffer
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetLevel(level)
	logrusLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return &buf, NewLogrusAdapterFromLogger(logrusLogger)
}

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{"debug level with text format", "debug", "text", logrus.DebugLevel},
		{"info level with json format", "info", "json", logrus.InfoLevel},
		{"upper case level", "WARN", "text", logrus.WarnLevel},
		{"error level with json format", "error", "json", logrus.ErrorLevel},
		{"invalid level defaults to info", "invalid", "text", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			require.NotNil(t, logger)

			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok, "logger should be a LogrusAdapter")
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			if tt.format == "json" {
				_, ok := adapter.logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "formatter should be JSONFormatter")
			} else {
				_, ok := adapter.logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "formatter should be TextFormatter")
			}
		})
	}
}

func TestNewLogrusAdapterFromLogger(t *testing.T) {
	t.Run("with existing logger", func(t *testing.T) {
		existingLogger := logrus.New()
		existingLogger.SetLevel(logrus.DebugLevel)

		logger := NewLogrusAdapterFromLogger(existingLogger)
		adapter, ok := logger.(*LogrusAdapter)
		require.True(t, ok)
		assert.Equal(t, existingLogger, adapter.logger)
	})

	t.Run("with nil logger creates new one", func(t *testing.T) {
		logger := NewLogrusAdapterFromLogger(nil)
		adapter, ok := logger.(*LogrusAdapter)
		require.True(t, ok)
		assert.NotNil(t, adapter.logger)
	})
}

func TestLogrusAdapter_LoggingMethods(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, string, ...Field)
		message string
		field   Field
	}{
		{"Debug", func(l Logger, msg string, f ...Field) { l.Debug(msg, f...) }, "row parsed", F(FieldRow, 3)},
		{"Info", func(l Logger, msg string, f ...Field) { l.Info(msg, f...) }, "import finished", F(FieldSchema, "dues")},
		{"Warn", func(l Logger, msg string, f ...Field) { l.Warn(msg, f...) }, "row skipped", F(FieldReason, "empty name")},
		{"Error", func(l Logger, msg string, f ...Field) { l.Error(msg, f...) }, "batch failed", F(FieldBatch, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, logger := newBufferedLogger(logrus.DebugLevel)

			tt.logFunc(logger, tt.message, tt.field)

			output := buf.String()
			assert.Contains(t, output, tt.message)
			assert.Contains(t, output, tt.field.Key)
		})
	}
}

func TestLogrusAdapter_WithError(t *testing.T) {
	buf, logger := newBufferedLogger(logrus.ErrorLevel)

	logger.WithError(errors.New("member not found")).Error("apply payment failed")

	output := buf.String()
	assert.Contains(t, output, "apply payment failed")
	assert.Contains(t, output, "member not found")
}

func TestLogrusAdapter_WithFields(t *testing.T) {
	buf, logger := newBufferedLogger(logrus.InfoLevel)

	logger.WithFields(
		F(FieldMember, "anna"),
		F(FieldKind, "fine"),
		F(FieldDelta, "-2.50"),
	).Info("fine created")

	output := buf.String()
	assert.Contains(t, output, "fine created")
	assert.Contains(t, output, "anna")
	assert.Contains(t, output, "entry_kind")
	assert.Contains(t, output, "-2.50")
}

func TestLogrusAdapter_ChainedCalls(t *testing.T) {
	buf, logger := newBufferedLogger(logrus.InfoLevel)

	logger.
		WithField(FieldMember, "ben").
		WithField(FieldOperation, "delete").
		WithError(errors.New("conflict")).
		Error("operation failed")

	output := buf.String()
	assert.Contains(t, output, "operation failed")
	assert.Contains(t, output, "ben")
	assert.Contains(t, output, "delete")
	assert.Contains(t, output, "conflict")
}

func TestConvertFields(t *testing.T) {
	logrusFields := convertFields([]Field{
		{Key: "key1", Value: "value1"},
		{Key: "key2", Value: 42},
		{Key: "key3", Value: true},
	})

	assert.Len(t, logrusFields, 3)
	assert.Equal(t, "value1", logrusFields["key1"])
	assert.Equal(t, 42, logrusFields["key2"])
	assert.Equal(t, true, logrusFields["key3"])
	assert.Len(t, convertFields(nil), 0)
}

func TestFieldConstants(t *testing.T) {
	assert.Equal(t, "member_id", FieldMember)
	assert.Equal(t, "count", FieldCount)
	assert.Equal(t, "schema", FieldSchema)
	assert.Equal(t, "row", FieldRow)
	assert.Equal(t, "error", FieldError)
	assert.Equal(t, "entry_kind", FieldKind)
}

func TestNewLogrusAdapterWithOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("debug", "json", &buf)

	logger.Debug("balance adjusted", F(FieldMember, "m-1"), F(FieldDelta, "-5"))

	out := buf.String()
	assert.Contains(t, out, `"member_id":"m-1"`)
	assert.Contains(t, out, "balance adjusted")
}

func TestOrDefault(t *testing.T) {
	assert.NotNil(t, OrDefault(nil))

	mock := &MockLogger{}
	assert.Same(t, mock, OrDefault(mock))
}

func TestLogrusAdapter_ImplementsInterface(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
}
