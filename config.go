package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceModeSingle   = "single"
	SourceModeCampaign = "campaign"

	SourceKindSheets = "sheets"
	SourceKindCSV    = "csv"

	SendMechanismClick = "click"
	SendMechanismType  = "type"
)

type Config struct {
	Source       SourceConfig       `yaml:"source"`
	Browser      BrowserConfig      `yaml:"browser"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type SourceConfig struct {
	Kind            string      `yaml:"kind"`
	Mode            string      `yaml:"mode"`
	CredentialsFile string      `yaml:"credentials_file"`
	Contacts        TableConfig `yaml:"contacts"`
	Campaigns       TableConfig `yaml:"campaigns"`
}

// TableConfig names one table. For sheets, SpreadsheetID and Sheet are used;
// for csv, Path is used.
type TableConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Sheet         string `yaml:"sheet"`
	Path          string `yaml:"path"`
}

type BrowserConfig struct {
	Host        string `yaml:"host"`
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"`
	ChromePath  string `yaml:"chrome_path"`
	LoginWait   string `yaml:"login_wait"`
	ShowQR      *bool  `yaml:"show_qr"`

	loginWait time.Duration
}

type DispatchConfig struct {
	SendMechanism   string `yaml:"send_mechanism"`
	NavigateTimeout string `yaml:"navigate_timeout"`
	ReadyTimeout    string `yaml:"ready_timeout"`
	SendTimeout     string `yaml:"send_timeout"`
	PollInterval    string `yaml:"poll_interval"`
	Pause           string `yaml:"pause"`
	ConfirmExit     *bool  `yaml:"confirm_exit"`

	navigateTimeout time.Duration
	readyTimeout    time.Duration
	sendTimeout     time.Duration
	pollInterval    time.Duration
	pause           time.Duration
}

type RateLimitingConfig struct {
	MessagesPerMinute int  `yaml:"messages_per_minute"`
	Enabled           bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
}

func (b BrowserConfig) LoginWaitDuration() time.Duration { return b.loginWait }

func (b BrowserConfig) QREnabled() bool { return b.ShowQR == nil || *b.ShowQR }

func (d DispatchConfig) NavigateTimeoutDuration() time.Duration { return d.navigateTimeout }
func (d DispatchConfig) ReadyTimeoutDuration() time.Duration    { return d.readyTimeout }
func (d DispatchConfig) SendTimeoutDuration() time.Duration     { return d.sendTimeout }
func (d DispatchConfig) PollIntervalDuration() time.Duration    { return d.pollInterval }
func (d DispatchConfig) PauseDuration() time.Duration           { return d.pause }

func (d DispatchConfig) ConfirmExitEnabled() bool { return d.ConfirmExit == nil || *d.ConfirmExit }

// LoadConfig reads the YAML file at configPath, applies .env and WA_*
// environment overrides, fills defaults and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A missing .env is normal; only a malformed one is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyEnvOverrides(config *Config) error {
	if v, ok := os.LookupEnv("WA_CREDENTIALS_FILE"); ok {
		config.Source.CredentialsFile = v
	}
	if v, ok := os.LookupEnv("WA_CONTACTS_SPREADSHEET_ID"); ok {
		config.Source.Contacts.SpreadsheetID = v
	}
	if v, ok := os.LookupEnv("WA_CAMPAIGNS_SPREADSHEET_ID"); ok {
		config.Source.Campaigns.SpreadsheetID = v
	}
	if v, ok := os.LookupEnv("WA_LOG_LEVEL"); ok {
		config.Logging.Level = v
	}
	if v, ok := os.LookupEnv("WA_HEADLESS"); ok {
		headless, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("WA_HEADLESS: invalid boolean %q: %w", v, err)
		}
		config.Browser.Headless = headless
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.Source.Kind == "" {
		c.Source.Kind = SourceKindSheets
	}
	if c.Source.Mode == "" {
		c.Source.Mode = SourceModeSingle
	}
	if c.Source.CredentialsFile == "" && c.Source.Kind == SourceKindSheets {
		c.Source.CredentialsFile = "credentials.json"
	}
	if c.Source.Contacts.Sheet == "" {
		c.Source.Contacts.Sheet = "Sheet1"
	}
	if c.Source.Campaigns.Sheet == "" {
		c.Source.Campaigns.Sheet = "Sheet1"
	}

	if c.Browser.Host == "" {
		c.Browser.Host = "web.whatsapp.com"
	}
	if c.Browser.UserDataDir == "" {
		c.Browser.UserDataDir = "./chrome-data"
	}
	absPath, err := filepath.Abs(c.Browser.UserDataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve user data directory path: %w", err)
	}
	c.Browser.UserDataDir = absPath
	if c.Browser.ChromePath == "" {
		c.Browser.ChromePath = findChromePath()
	}

	if c.Dispatch.SendMechanism == "" {
		c.Dispatch.SendMechanism = SendMechanismClick
	}

	if c.Browser.loginWait, err = parseDurationOrDefault("browser.login_wait", c.Browser.LoginWait, 120*time.Second); err != nil {
		return err
	}
	if c.Dispatch.navigateTimeout, err = parseDurationOrDefault("dispatch.navigate_timeout", c.Dispatch.NavigateTimeout, 30*time.Second); err != nil {
		return err
	}
	if c.Dispatch.readyTimeout, err = parseDurationOrDefault("dispatch.ready_timeout", c.Dispatch.ReadyTimeout, 60*time.Second); err != nil {
		return err
	}
	if c.Dispatch.sendTimeout, err = parseDurationOrDefault("dispatch.send_timeout", c.Dispatch.SendTimeout, 10*time.Second); err != nil {
		return err
	}
	if c.Dispatch.pollInterval, err = parseDurationOrDefault("dispatch.poll_interval", c.Dispatch.PollInterval, 500*time.Millisecond); err != nil {
		return err
	}
	// Zero is a legitimate pause, so only an empty value takes the default.
	if strings.TrimSpace(c.Dispatch.Pause) == "" {
		c.Dispatch.pause = 5 * time.Second
	} else if c.Dispatch.pause, err = parseDurationField("dispatch.pause", c.Dispatch.Pause); err != nil {
		return err
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Source.Kind {
	case SourceKindSheets:
		if c.Source.Contacts.SpreadsheetID == "" {
			return errors.New("source.contacts.spreadsheet_id is required for sheets source")
		}
		if c.Source.Mode == SourceModeCampaign && c.Source.Campaigns.SpreadsheetID == "" {
			return errors.New("source.campaigns.spreadsheet_id is required in campaign mode")
		}
	case SourceKindCSV:
		if c.Source.Contacts.Path == "" {
			return errors.New("source.contacts.path is required for csv source")
		}
		if c.Source.Mode == SourceModeCampaign && c.Source.Campaigns.Path == "" {
			return errors.New("source.campaigns.path is required in campaign mode")
		}
	default:
		return fmt.Errorf("source.kind: unknown kind %q (want %q or %q)", c.Source.Kind, SourceKindSheets, SourceKindCSV)
	}

	if c.Source.Mode != SourceModeSingle && c.Source.Mode != SourceModeCampaign {
		return fmt.Errorf("source.mode: unknown mode %q (want %q or %q)", c.Source.Mode, SourceModeSingle, SourceModeCampaign)
	}
	if c.Dispatch.SendMechanism != SendMechanismClick && c.Dispatch.SendMechanism != SendMechanismType {
		return fmt.Errorf("dispatch.send_mechanism: unknown mechanism %q (want %q or %q)", c.Dispatch.SendMechanism, SendMechanismClick, SendMechanismType)
	}
	if c.RateLimiting.Enabled && c.RateLimiting.MessagesPerMinute <= 0 {
		return errors.New("rate_limiting.messages_per_minute must be > 0 when enabled")
	}
	return nil
}

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// findChromePath attempts to locate Chrome executable on the system
func findChromePath() string {
	if runtime.GOOS == "windows" {
		paths := []string{
			"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
			"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("LOCALAPPDATA") + "\\Google\\Chrome\\Application\\chrome.exe",
		}

		for _, path := range paths {
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	// Empty means chromedp picks the browser itself.
	return ""
}
