package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the job API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CredentialsConfig holds the login for the remote scheduling app. The
// password may be omitted from the file and supplied via the
// SEATCAP_APP_PASSWORD environment variable instead.
type CredentialsConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SelectorsConfig lists the structural selectors and label vocabularies used
// against the remote app. The remote markup is not ours and changes across
// deployments, so every lookup is a prioritized list that can be overridden
// per installation; defaults cover common calendar widgets.
type SelectorsConfig struct {
	// DateInput locates a native date input for direct value injection.
	DateInput []string `yaml:"date_input" json:"date_input"`

	// EventElements enumerate rendered calendar event elements.
	EventElements []string `yaml:"event_elements" json:"event_elements"`

	// DateMarkerAttrs are attributes that carry an ISO date on an event
	// element or one of its ancestors.
	DateMarkerAttrs []string `yaml:"date_marker_attrs" json:"date_marker_attrs"`

	// DateCell locates a clickable calendar cell or link for a date; the
	// %s placeholder receives the ISO date string.
	DateCell []string `yaml:"date_cell" json:"date_cell"`

	// PageForward / PageBackward activate the calendar's paging controls.
	PageForward  []string `yaml:"page_forward" json:"page_forward"`
	PageBackward []string `yaml:"page_backward" json:"page_backward"`

	// Overlay locates the detail surface that opens after activating an
	// event. Waiting for it is a required wait (hard failure on timeout).
	Overlay []string `yaml:"overlay" json:"overlay"`

	// EditLink advances from the overlay to the full edit form.
	EditLink []string `yaml:"edit_link" json:"edit_link"`

	// EditForm locates the full edit form surface.
	EditForm []string `yaml:"edit_form" json:"edit_form"`

	// CloseControls are candidate dismiss controls inside an open surface.
	CloseControls []string `yaml:"close_controls" json:"close_controls"`

	// DenyLabels are label substrings that must never be activated while
	// closing a surface (delete/cancel vocabulary). Matching is
	// case-insensitive on normalized text.
	DenyLabels []string `yaml:"deny_labels" json:"deny_labels"`

	// CreateMarkers are phrases whose presence marks a blank event-creation
	// surface; EditMarkers mark an existing-event editor.
	CreateMarkers []string `yaml:"create_markers" json:"create_markers"`
	EditMarkers   []string `yaml:"edit_markers" json:"edit_markers"`

	// CapacityField locates the seat-capacity input on the edit form.
	CapacityField []string `yaml:"capacity_field" json:"capacity_field"`

	// SaveLabels are label substrings identifying the save control.
	SaveLabels []string `yaml:"save_labels" json:"save_labels"`

	// LoginUser / LoginPass / LoginSubmit drive the login form; LoggedIn
	// marks a successfully authenticated page.
	LoginUser   []string `yaml:"login_user" json:"login_user"`
	LoginPass   []string `yaml:"login_pass" json:"login_pass"`
	LoginSubmit []string `yaml:"login_submit" json:"login_submit"`
	LoggedIn    []string `yaml:"logged_in" json:"logged_in"`
}

// ScheduledJob is a recurring capacity change run from the cron scheduler.
// Either Date (ISO) or RRule must be set; RRule targets the next occurrence
// on or after each trigger.
type ScheduledJob struct {
	Cron     string `yaml:"cron" json:"cron"`
	Date     string `yaml:"date,omitempty" json:"date,omitempty"`
	RRule    string `yaml:"rrule,omitempty" json:"rrule,omitempty"`
	Time     string `yaml:"time" json:"time"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Capacity int    `yaml:"capacity" json:"capacity"`

	StrictNameRequired bool `yaml:"strict_name_required,omitempty" json:"strict_name_required,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the job API.
	Listen string `yaml:"listen" json:"listen"`

	// BaseURL is the calendar view of the remote scheduling app; LoginURL
	// is its login page (defaults to BaseURL when empty).
	BaseURL  string `yaml:"base_url" json:"base_url"`
	LoginURL string `yaml:"login_url" json:"login_url"`

	// Timezone is the IANA timezone used when expanding recurrence rules.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Credentials for the remote app.
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// NavPageBound caps calendar paging steps in each direction.
	NavPageBound int `yaml:"nav_page_bound" json:"nav_page_bound"`

	// SettleMillis is the pause after each page interaction.
	SettleMillis int `yaml:"settle_millis" json:"settle_millis"`

	// WaitTimeoutSec bounds waits for required elements.
	WaitTimeoutSec int `yaml:"wait_timeout_sec" json:"wait_timeout_sec"`

	// JobTimeoutSec bounds one whole resolution attempt; on expiry the
	// owning browser session is torn down.
	JobTimeoutSec int `yaml:"job_timeout_sec" json:"job_timeout_sec"`

	// Headless toggles headless Chromium.
	Headless bool `yaml:"headless" json:"headless"`

	// ArtifactDir receives debug screenshots and ICS audit exports.
	ArtifactDir string `yaml:"artifact_dir" json:"artifact_dir"`

	// Selectors override the structural selectors used on the remote app.
	Selectors SelectorsConfig `yaml:"selectors" json:"selectors"`

	// Jobs are cron-scheduled capacity changes.
	Jobs []ScheduledJob `yaml:"jobs" json:"jobs"`

	// BasicAuth, if non-nil, protects all endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Listen:         "127.0.0.1:8080",
		Timezone:       "UTC",
		NavPageBound:   24,
		SettleMillis:   400,
		WaitTimeoutSec: 10,
		JobTimeoutSec:  120,
		Headless:       true,
		ArtifactDir:    "./var/artifacts",
		Jobs:           []ScheduledJob{},
	}
	c.Selectors = defaultSelectors()
	return c
}

func defaultSelectors() SelectorsConfig {
	return SelectorsConfig{
		DateInput: []string{
			`input[type="date"]`,
		},
		EventElements: []string{
			`.fc-event`,
			`[data-event-id]`,
			`.calendar-event`,
			`a.event`,
		},
		DateMarkerAttrs: []string{
			"data-date",
			"data-day",
			"data-full-date",
		},
		DateCell: []string{
			`[data-date="%s"]`,
			`td[data-day="%s"]`,
			`a[href*="%s"]`,
		},
		PageForward: []string{
			`.fc-next-button`,
			`[aria-label="next"]`,
			`button.next`,
			`a.next`,
		},
		PageBackward: []string{
			`.fc-prev-button`,
			`[aria-label="prev"]`,
			`button.prev`,
			`a.prev`,
		},
		Overlay: []string{
			`.modal.show`,
			`[role="dialog"]`,
			`.popover`,
		},
		EditLink: []string{
			`a[href*="edit"]`,
			`button[data-action="edit"]`,
		},
		EditForm: []string{
			`form.event-edit`,
			`form[action*="edit"]`,
			`form`,
		},
		CloseControls: []string{
			`[aria-label="Close"]`,
			`.modal .close`,
			`button.close`,
			`.modal-header button`,
		},
		DenyLabels: []string{
			"delete", "remove", "cancel class", "cancelar", "eliminar",
			"borrar", "anular", "suprimir",
		},
		CreateMarkers: []string{
			"new event", "create event", "add event",
			"nueva clase", "crear evento", "nuevo evento",
		},
		EditMarkers: []string{
			"edit", "editar", "capacity", "capacidad", "attendees", "plazas",
		},
		CapacityField: []string{
			`input[name*="capacity"]`,
			`input[name*="spots"]`,
			`input[name*="plazas"]`,
			`input[id*="capacity"]`,
		},
		SaveLabels: []string{
			"save", "guardar", "update", "actualizar",
		},
		LoginUser: []string{
			`input[name="email"]`,
			`input[name="username"]`,
			`input[type="email"]`,
		},
		LoginPass: []string{
			`input[name="password"]`,
			`input[type="password"]`,
		},
		LoginSubmit: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
		},
		LoggedIn: []string{
			`[data-logged-in]`,
			`a[href*="logout"]`,
			`.user-menu`,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LoginURL == "" {
		c.LoginURL = c.BaseURL
	}
	if c.NavPageBound <= 0 {
		c.NavPageBound = def.NavPageBound
	}
	if c.SettleMillis <= 0 {
		c.SettleMillis = def.SettleMillis
	}
	if c.WaitTimeoutSec <= 0 {
		c.WaitTimeoutSec = def.WaitTimeoutSec
	}
	if c.JobTimeoutSec <= 0 {
		c.JobTimeoutSec = def.JobTimeoutSec
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = def.ArtifactDir
	}
	if c.Jobs == nil {
		c.Jobs = []ScheduledJob{}
	}
	if pw := os.Getenv("SEATCAP_APP_PASSWORD"); pw != "" {
		c.Credentials.Password = pw
	}

	defSel := defaultSelectors()
	fillSelectors(&c.Selectors, &defSel)
}

// fillSelectors replaces every empty selector list with its default. A
// non-empty override replaces the default list entirely.
func fillSelectors(sel, def *SelectorsConfig) {
	lists := []struct{ dst, src *[]string }{
		{&sel.DateInput, &def.DateInput},
		{&sel.EventElements, &def.EventElements},
		{&sel.DateMarkerAttrs, &def.DateMarkerAttrs},
		{&sel.DateCell, &def.DateCell},
		{&sel.PageForward, &def.PageForward},
		{&sel.PageBackward, &def.PageBackward},
		{&sel.Overlay, &def.Overlay},
		{&sel.EditLink, &def.EditLink},
		{&sel.EditForm, &def.EditForm},
		{&sel.CloseControls, &def.CloseControls},
		{&sel.DenyLabels, &def.DenyLabels},
		{&sel.CreateMarkers, &def.CreateMarkers},
		{&sel.EditMarkers, &def.EditMarkers},
		{&sel.CapacityField, &def.CapacityField},
		{&sel.SaveLabels, &def.SaveLabels},
		{&sel.LoginUser, &def.LoginUser},
		{&sel.LoginPass, &def.LoginPass},
		{&sel.LoginSubmit, &def.LoginSubmit},
		{&sel.LoggedIn, &def.LoggedIn},
	}
	for _, l := range lists {
		if len(*l.dst) == 0 {
			*l.dst = *l.src
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600,
//     parent directory created) and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".seatcap-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
