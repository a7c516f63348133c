// Package export writes an ICS audit artifact after a confirmed-and-applied
// capacity change, so operators can check the modified occurrence against
// their own calendar.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/timeparse"
)

const isoDate = "2006-01-02"

// defaultDuration is assumed when only the start time of the occurrence is
// known.
const defaultDuration = 50 * time.Minute

// WriteAudit writes a single-VEVENT ICS describing the occurrence whose
// capacity was just changed. jobID keys the artifact file name; the file
// lands in dir as <date>-<jobID>.ics and the path is returned.
func WriteAudit(dir, jobID string, spec model.TargetSpec, capacity int, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}

	day, err := time.ParseInLocation(isoDate, spec.Date, loc)
	if err != nil {
		return "", fmt.Errorf("export: invalid date %q: %w", spec.Date, err)
	}

	start := day
	if minute, ok := timeparse.ToMinutes(spec.Time); ok {
		start = day.Add(time.Duration(minute) * time.Minute)
	}

	summary := spec.Name
	if summary == "" {
		summary = "class"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//seatcap//capacity audit//EN")

	ev := cal.AddEvent(fmt.Sprintf("seatcap-%s@%s", jobID, spec.Date))
	ev.SetCreatedTime(time.Now())
	ev.SetDtStampTime(time.Now())
	ev.SetStartAt(start)
	ev.SetEndAt(start.Add(defaultDuration))
	ev.SetSummary(summary)
	ev.SetDescription(fmt.Sprintf("seat capacity set to %d (job %s)", capacity, jobID))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create artifact dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.ics", spec.Date, jobID))
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o644); err != nil {
		return "", fmt.Errorf("export: write audit: %w", err)
	}

	appLog.Info("audit artifact written", "path", path, "capacity", capacity)
	return path, nil
}
