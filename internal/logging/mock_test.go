package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLogger_DerivedLoggersShareEntries(t *testing.T) {
	mock := &MockLogger{}

	mock.WithField(FieldMember, "m-1").Warn("stale due exempted")
	mock.WithError(errors.New("boom")).Error("batch failed")
	mock.Info("done")

	entries := mock.GetEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, []Field{{Key: FieldMember, Value: "m-1"}}, entries[0].Fields)
	assert.EqualError(t, entries[1].Error, "boom")
	assert.True(t, mock.HasEntry("INFO", "done"))
	assert.True(t, mock.HasEntryContaining("WARN", "stale"))
	assert.Len(t, mock.GetEntriesByLevel("ERROR"), 1)

	mock.Clear()
	assert.Empty(t, mock.GetEntries())
}

func TestMockLogger_ImplementsInterface(t *testing.T) {
	var _ Logger = (*MockLogger)(nil)
}
