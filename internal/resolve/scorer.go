package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/timeparse"
)

// handleAttr is the synthetic attribute the enumeration script stamps onto
// each event element so it can be addressed again by selector.
const handleAttr = "data-seatcap-h"

// defaultPreviewLimit bounds the preview text captured per candidate.
const defaultPreviewLimit = 200

// Scorer enumerates rendered event elements for a target date and ranks
// them by proximity to the desired start time and optional name.
type Scorer struct {
	Sel config.SelectorsConfig

	// PreviewLimit bounds the preview text length per candidate.
	PreviewLimit int
}

func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{Sel: cfg.Selectors, PreviewLimit: defaultPreviewLimit}
}

// rawCandidate mirrors the JSON objects produced by the enumeration script.
type rawCandidate struct {
	Handle    string `json:"h"`
	Text      string `json:"text"`
	DateMatch bool   `json:"dateMatch"`
}

// Enumerate collects all currently rendered event elements. Same-date
// membership is determined in-page by walking each element's ancestor chain
// for a date marker attribute containing the target date.
func (s *Scorer) Enumerate(ctx context.Context, page driver.Page, date string) ([]model.EventCandidate, error) {
	js, err := s.enumerationJS(date)
	if err != nil {
		return nil, err
	}

	var raw []rawCandidate
	if err := page.Eval(ctx, js, &raw); err != nil {
		return nil, fmt.Errorf("scorer: enumerate events: %w", err)
	}

	out := make([]model.EventCandidate, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.EventCandidate{
			Handle:      fmt.Sprintf(`[%s=%q]`, handleAttr, r.Handle),
			PreviewText: timeparse.Normalize(strings.TrimSpace(r.Text)),
			DateMatch:   r.DateMatch,
		})
	}
	return out, nil
}

// enumerationJS builds the in-page script: tag every event element with a
// handle attribute and report its bounded preview text plus date
// membership.
func (s *Scorer) enumerationJS(date string) (string, error) {
	limit := s.PreviewLimit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}

	sels, err := json.Marshal(s.Sel.EventElements)
	if err != nil {
		return "", err
	}
	attrs, err := json.Marshal(s.Sel.DateMarkerAttrs)
	if err != nil {
		return "", err
	}
	dateLit, err := json.Marshal(date)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`(() => {
		const sels = %s;
		const attrs = %s;
		const date = %s;
		const seen = new Set();
		const out = [];
		let next = 0;
		for (const sel of sels) {
			for (const el of document.querySelectorAll(sel)) {
				if (seen.has(el)) continue;
				seen.add(el);
				let dm = false;
				for (let node = el; node && !dm; node = node.parentElement) {
					for (const a of attrs) {
						const v = node.getAttribute && node.getAttribute(a);
						if (v && v.indexOf(date) !== -1) { dm = true; break; }
					}
				}
				const h = String(next++);
				el.setAttribute(%q, h);
				out.push({
					h: h,
					text: (el.innerText || el.textContent || '').slice(0, %d),
					dateMatch: dm,
				});
			}
		}
		return out;
	})()`, sels, attrs, dateLit, handleAttr, limit), nil
}

// Score ranks one date-matching candidate against the target.
//
//   - timeScore: 100 on exact start-minute match; max(0, 100-|delta|) when a
//     start time was extracted; 0 otherwise (including an unparseable
//     target, which never matches anything).
//   - nameScore: 50 with no name constraint or a case-insensitive substring
//     match; 0 otherwise.
func Score(c model.EventCandidate, targetMinute int, targetTimeOK bool, name string) model.ScoredCandidate {
	sc := model.ScoredCandidate{EventCandidate: c}

	if startMin, ok := timeparse.ExtractStartTime(c.PreviewText); ok && targetTimeOK {
		delta := startMin - targetMinute
		if delta < 0 {
			delta = -delta
		}
		if delta == 0 {
			sc.TimeScore = 100
		} else if delta < 100 {
			sc.TimeScore = 100 - delta
		}
	}

	if name == "" || strings.Contains(c.PreviewText, strings.ToLower(name)) {
		sc.NameScore = 50
	}

	sc.TotalScore = sc.TimeScore + sc.NameScore
	return sc
}

// FindBest returns the highest-scoring same-date candidate. Ties are broken
// by enumeration order (first wins): identical previews at the same time on
// the same date are indistinguishable without opening them. The second
// return value is false when no date-matching candidate exists.
func (s *Scorer) FindBest(ctx context.Context, page driver.Page, spec model.TargetSpec) (model.ScoredCandidate, bool, error) {
	candidates, err := s.Enumerate(ctx, page, spec.Date)
	if err != nil {
		return model.ScoredCandidate{}, false, err
	}

	targetMinute, targetTimeOK := timeparse.ToMinutes(spec.Time)
	if !targetTimeOK {
		appLog.Debug("target time unparseable; time scores will be zero", "time", spec.Time)
	}

	var best model.ScoredCandidate
	found := false
	total := 0
	for _, c := range candidates {
		if !c.DateMatch {
			continue
		}
		total++
		sc := Score(c, targetMinute, targetTimeOK, spec.Name)
		if !found || sc.TotalScore > best.TotalScore {
			best = sc
			found = true
		}
	}

	appLog.Debug("candidate scoring finished",
		"date", spec.Date, "enumerated", len(candidates), "date_matching", total,
		"found", found, "best_score", best.TotalScore)
	return best, found, nil
}
