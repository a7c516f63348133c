package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatcap/internal/model"
)

func TestWriteAudit(t *testing.T) {
	dir := t.TempDir()
	spec := model.TargetSpec{Date: "2025-03-10", Time: "07:00", Name: "Reformer"}

	path, err := WriteAudit(dir, "job-1", spec, 14, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025-03-10-job-1.ics"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	ev := cal.Events()[0]
	start, err := ev.GetStartAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC), start.UTC())

	sum := ev.GetProperty(ical.ComponentPropertySummary)
	require.NotNil(t, sum)
	assert.Equal(t, "Reformer", sum.Value)

	desc := ev.GetProperty(ical.ComponentPropertyDescription)
	require.NotNil(t, desc)
	assert.Contains(t, desc.Value, "14")
}

func TestWriteAuditUnparseableTimeFallsBackToMidnight(t *testing.T) {
	dir := t.TempDir()
	spec := model.TargetSpec{Date: "2025-03-10", Time: "sevenish"}

	path, err := WriteAudit(dir, "job-2", spec, 5, time.UTC)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:class")
}

func TestWriteAuditRejectsBadDate(t *testing.T) {
	_, err := WriteAudit(t.TempDir(), "job-3", model.TargetSpec{Date: "bad"}, 5, time.UTC)
	require.Error(t, err)
}
