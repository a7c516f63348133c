package web

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	"seatcap/internal/export"
	appLog "seatcap/internal/log"
	"seatcap/internal/login"
	"seatcap/internal/model"
	"seatcap/internal/mutate"
	"seatcap/internal/resolve"
	"seatcap/internal/schedule"
)

// JobRequest describes one capacity change. Either Date (ISO) or RRule is
// required; RRule targets the next occurrence of the series.
type JobRequest struct {
	Date     string `json:"date,omitempty"`
	RRule    string `json:"rrule,omitempty"`
	Time     string `json:"time"`
	Name     string `json:"name,omitempty"`
	Capacity int    `json:"capacity"`

	StrictNameRequired bool `json:"strictNameRequired,omitempty"`

	// Debug dumps a screenshot artifact at the end of the attempt.
	Debug bool `json:"debug,omitempty"`
}

// JobResult is the wire response for one job.
type JobResult struct {
	OK        bool   `json:"ok"`
	JobID     string `json:"jobId"`
	Date      string `json:"date,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	AuditPath string `json:"auditPath,omitempty"`
}

// Engine runs jobs end to end: fresh browser session, login, resolution,
// capacity write, audit export. Each job owns its session exclusively;
// concurrent jobs never share a page.
type Engine struct {
	cfg *config.Config
	loc *time.Location

	// newPage builds a session; swapped out in tests.
	newPage func(ctx context.Context) (driver.Page, func(), error)
}

// NewEngine builds an Engine backed by chromedp sessions.
func NewEngine(cfg *config.Config) (*Engine, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine: timezone %q: %w", cfg.Timezone, err)
	}

	e := &Engine{cfg: cfg, loc: loc}
	e.newPage = func(ctx context.Context) (driver.Page, func(), error) {
		s, err := driver.NewSession(ctx, driver.SessionOptions{
			Headless:  cfg.Headless,
			OpTimeout: time.Duration(cfg.WaitTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return e, nil
}

// Run executes one job. All failure kinds are reported in the result, never
// as a returned error, so callers can serialize it directly.
func (e *Engine) Run(ctx context.Context, req JobRequest) JobResult {
	res := JobResult{JobID: uuid.NewString()}

	if req.Time == "" {
		return fail(res, "bad_request", "time is required")
	}
	if req.Capacity < 0 {
		return fail(res, "bad_request", "capacity must be non-negative")
	}

	date, err := schedule.TargetDate(req.Date, req.RRule, time.Now(), e.loc)
	if err != nil {
		return fail(res, "bad_request", err.Error())
	}
	res.Date = date

	spec := model.TargetSpec{
		Date:               date,
		Time:               req.Time,
		Name:               req.Name,
		StrictNameRequired: req.StrictNameRequired,
	}

	// One deadline bounds the whole attempt; on expiry the session is torn
	// down and partial progress is discarded.
	jobCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.JobTimeoutSec)*time.Second)
	defer cancel()

	page, closePage, err := e.newPage(jobCtx)
	if err != nil {
		return fail(res, "session_failed", err.Error())
	}
	defer closePage()

	if err := login.Login(jobCtx, page, e.cfg); err != nil {
		return fail(res, string(resolve.KindLoginFailed), err.Error())
	}

	orch := resolve.NewOrchestrator(e.cfg)
	resolution, err := orch.Resolve(jobCtx, page, spec)
	if err != nil {
		e.dumpIfDebug(jobCtx, page, req, res.JobID, "failed")
		return fail(res, failureKind(err), err.Error())
	}

	if err := mutate.Apply(jobCtx, page, e.cfg, req.Capacity); err != nil {
		e.dumpIfDebug(jobCtx, page, req, res.JobID, "failed")
		return fail(res, string(resolve.KindMutationFailed), err.Error())
	}

	appLog.Info("job applied", "job", res.JobID, "date", date, "time", req.Time,
		"capacity", req.Capacity, "score", resolution.Candidate.TotalScore)

	if path, err := export.WriteAudit(e.cfg.ArtifactDir, res.JobID, spec, req.Capacity, e.loc); err != nil {
		// Audit is best effort: the capacity is already applied.
		appLog.Error("audit export failed", err, "job", res.JobID)
	} else {
		res.AuditPath = path
	}

	e.dumpIfDebug(jobCtx, page, req, res.JobID, "applied")

	res.OK = true
	return res
}

func (e *Engine) dumpIfDebug(ctx context.Context, page driver.Page, req JobRequest, jobID, suffix string) {
	if !req.Debug {
		return
	}
	path := filepath.Join(e.cfg.ArtifactDir, fmt.Sprintf("%s-%s.png", jobID, suffix))
	if err := page.Screenshot(ctx, path); err != nil {
		appLog.Debug("debug screenshot failed", "err", err)
		return
	}
	appLog.Debug("debug screenshot written", "path", path)
}

func fail(res JobResult, kind, detail string) JobResult {
	res.OK = false
	res.ErrorKind = kind
	res.Detail = detail
	appLog.Info("job failed", "job", res.JobID, "kind", kind, "detail", detail)
	return res
}

// failureKind maps a resolution error to its wire kind.
func failureKind(err error) string {
	var f *resolve.Failure
	if errors.As(err, &f) {
		return string(f.Kind)
	}
	return "internal"
}
