package config

import (
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
)

// AppName is the application name used for XDG directory paths.
const AppName = "drivercatalog"

// Browser engines.
const (
	EngineChrome  = "chrome"
	EngineFirefox = "firefox"
)

// Scope values for languages and operating systems.
const (
	// LanguagePrimary keeps only the primary language at the leaf level.
	LanguagePrimary = "en"
	// OSWindows keeps only operating systems whose label contains "windows".
	OSWindows = "windows"
	// ScopeAll disables the corresponding filter.
	ScopeAll = "all"
)

// Sources of the option tree for a scrape.
const (
	// SourceCache reuses the persisted tree when one exists.
	SourceCache = "cache"
	// SourceOnline always walks the vendor page again.
	SourceOnline = "online"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Default configuration values.
const (
	// DefaultStartURL is the driver configurator page walked by discovery.
	DefaultStartURL = "https://www.nvidia.com/Download/index.aspx"

	// DefaultResolverURL answers one combination with a download path.
	DefaultResolverURL = "https://www.nvidia.com/Download/processDriver.aspx"

	// DefaultDownloadRoot is prepended to resolver bodies that carry a relative path.
	DefaultDownloadRoot = "https://www.nvidia.com/Download/"

	// DefaultVendorMarker tells absolute (protocol-relative) bodies apart from relative ones.
	DefaultVendorMarker = "nvidia"

	// DefaultPrimaryLanguage is the only language label kept when the
	// language scope is LanguagePrimary.
	DefaultPrimaryLanguage = "English (US)"

	// DefaultChunkSize is the number of keys dispatched together.
	DefaultChunkSize = 20

	// DefaultMaxInFlight is the run-wide ceiling on concurrent requests.
	// It is independent of the chunk size.
	DefaultMaxInFlight = 20

	// DefaultMinDelay and DefaultMaxDelay bound the random pause before each chunk.
	DefaultMinDelay = 1 * time.Second
	DefaultMaxDelay = 7 * time.Second

	// DefaultRequestTimeout bounds one resolver request.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultCheckpointEvery is the number of chunks between checkpoint saves.
	DefaultCheckpointEvery = 10

	// DefaultSettleDelay is the pause after selecting an option so the page
	// can populate the next dropdown.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultBrowserTimeout bounds a single browser call.
	DefaultBrowserTimeout = 30 * time.Second

	// DefaultWebDriverURL is the remote end used by the firefox engine.
	DefaultWebDriverURL = "http://localhost:4444"

	// DefaultSnapshotsKept is how many sqlite snapshots survive a save.
	DefaultSnapshotsKept = 5

	// DefaultStoreFile is the blob file name inside the data directory.
	DefaultStoreFile = "catalog.gob"

	// DefaultLegacyJSONPath is where older releases wrote the nested JSON catalog.
	DefaultLegacyJSONPath = "data/nvidia-dropdown-values.json"

	// DefaultS3Key is the object key used by the s3 backend.
	DefaultS3Key = "drivercatalog/catalog.gob"

	// DefaultUserAgent identifies the tool in resolver requests.
	DefaultUserAgent = "drivercatalog/1.0 (+https://github.com/nao1215/drivercatalog)"
)

// DefaultConsumerTypes are the product-type label substrings kept when
// ConsumerOnly is set.
var DefaultConsumerTypes = []string{"geforce", "titan", "quadro"}

// ControlIDs names the page element bound to each tree level, root first.
type ControlIDs struct {
	ProductType   string `yaml:"product_type"`
	ProductSeries string `yaml:"product_series"`
	Product       string `yaml:"product"`
	OS            string `yaml:"os"`
	DownloadType  string `yaml:"download_type"`
	Language      string `yaml:"language"`
}

// DefaultControlIDs returns the element ids of the vendor configurator.
func DefaultControlIDs() ControlIDs {
	return ControlIDs{
		ProductType:   "selProductSeriesType",
		ProductSeries: "selProductSeries",
		Product:       "selProductFamily",
		OS:            "selOperatingSystem",
		DownloadType:  "ddlDownloadTypeCrdGrd",
		Language:      "ddlLanguage",
	}
}

// Slice returns the ids in level order.
func (c ControlIDs) Slice() []string {
	return []string{c.ProductType, c.ProductSeries, c.Product, c.OS, c.DownloadType, c.Language}
}

// Config holds every option of a run. It is populated from defaults, the
// configuration file and CLI flags, in that order, and then passed down
// explicitly to the components that need it.
type Config struct {
	// Engine selects the browser backend: "chrome" or "firefox".
	Engine string `yaml:"engine"`

	// LanguageScope is "en" to keep only PrimaryLanguage, or "all".
	LanguageScope string `yaml:"language_scope"`

	// OSScope is "windows" to keep only Windows systems, or "all".
	OSScope string `yaml:"os_scope"`

	// Source is "cache" to reuse the persisted tree, or "online".
	Source string `yaml:"source"`

	// ConsumerOnly keeps only product types matching ConsumerTypes.
	ConsumerOnly bool `yaml:"consumer_only"`

	// ConsumerTypes are case-insensitive product-type label substrings.
	ConsumerTypes []string `yaml:"consumer_types"`

	// PrimaryLanguage is the language label kept under LanguagePrimary.
	PrimaryLanguage string `yaml:"primary_language"`

	// StartURL is the configurator page.
	StartURL string `yaml:"start_url"`

	// Controls are the dropdown element ids, one per level.
	Controls ControlIDs `yaml:"controls"`

	// SettleDelay is waited after each selection.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// BrowserTimeout bounds one browser call.
	BrowserTimeout time.Duration `yaml:"browser_timeout"`

	// WebDriverURL is the W3C WebDriver endpoint for the firefox engine.
	WebDriverURL string `yaml:"webdriver_url"`

	// Headless runs the browser without a window.
	Headless bool `yaml:"headless"`

	// ResolverURL is the endpoint queried per leaf.
	ResolverURL string `yaml:"resolver_url"`

	// DownloadRoot prefixes relative resolver bodies.
	DownloadRoot string `yaml:"download_root"`

	// VendorMarker marks resolver bodies that already carry the vendor host.
	VendorMarker string `yaml:"vendor_marker"`

	// ChunkSize is the number of keys per chunk.
	ChunkSize int `yaml:"chunk_size"`

	// MaxInFlight is the run-wide ceiling on concurrent requests.
	MaxInFlight int `yaml:"max_in_flight"`

	// MinDelay and MaxDelay bound the random pause before each chunk.
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`

	// RequestTimeout bounds one resolver request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RateLimit caps requests per second across the run. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// ResumeUnresolved makes cleanup also pick up leaves never attempted,
	// e.g. after an interrupted scrape. Off by default.
	ResumeUnresolved bool `yaml:"resume_unresolved"`

	// CheckpointEvery saves the tree after every N resolved chunks so an
	// interrupted run loses little work. Zero saves only at the end.
	CheckpointEvery int `yaml:"checkpoint_every"`

	// UserAgent is sent with resolver and download-page requests.
	UserAgent string `yaml:"user_agent"`

	// StoreBackend is "file", "sqlite" or "s3".
	StoreBackend string `yaml:"store_backend"`

	// StorePath is the blob file used by the file backend.
	StorePath string `yaml:"store_path"`

	// DBDir is the directory holding the sqlite database.
	DBDir string `yaml:"db_dir"`

	// SnapshotsKept is how many sqlite snapshots a save keeps.
	SnapshotsKept int `yaml:"snapshots_kept"`

	// S3Bucket, S3Key, S3Region and S3Endpoint address the s3 backend.
	// S3Endpoint is optional and only needed for S3-compatible services.
	S3Bucket   string `yaml:"s3_bucket"`
	S3Key      string `yaml:"s3_key"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`

	// LegacyJSONPath is read by compress and written by export --format json.
	LegacyJSONPath string `yaml:"legacy_json_path"`

	// MetricsFile receives Prometheus text metrics after a resolve. Empty disables it.
	MetricsFile string `yaml:"metrics_file"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the file the configuration was loaded from, if any.
	ConfigFilePath string `yaml:"-"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Engine:          EngineChrome,
		LanguageScope:   LanguagePrimary,
		OSScope:         OSWindows,
		Source:          SourceCache,
		ConsumerOnly:    true,
		ConsumerTypes:   append([]string(nil), DefaultConsumerTypes...),
		PrimaryLanguage: DefaultPrimaryLanguage,
		StartURL:        DefaultStartURL,
		Controls:        DefaultControlIDs(),
		SettleDelay:     DefaultSettleDelay,
		BrowserTimeout:  DefaultBrowserTimeout,
		WebDriverURL:    DefaultWebDriverURL,
		Headless:        true,
		ResolverURL:     DefaultResolverURL,
		DownloadRoot:    DefaultDownloadRoot,
		VendorMarker:    DefaultVendorMarker,
		ChunkSize:       DefaultChunkSize,
		MaxInFlight:     DefaultMaxInFlight,
		MinDelay:        DefaultMinDelay,
		MaxDelay:        DefaultMaxDelay,
		RequestTimeout:  DefaultRequestTimeout,
		CheckpointEvery: DefaultCheckpointEvery,
		UserAgent:       DefaultUserAgent,
		StoreBackend:    BackendFile,
		StorePath:       filepath.Join(XDGDataDir(), DefaultStoreFile),
		DBDir:           XDGDataDir(),
		SnapshotsKept:   DefaultSnapshotsKept,
		S3Key:           DefaultS3Key,
		LegacyJSONPath:  DefaultLegacyJSONPath,
	}
}

// Merge copies every non-zero field of override into c.
// It is used to layer CLI flags over file and default values; a zero value
// in override never clears a field.
func (c *Config) Merge(override *Config) error {
	if override == nil {
		return nil
	}
	return mergo.Merge(c, override, mergo.WithOverride)
}

// XDGDataDir returns the XDG data directory for drivercatalog.
// On Linux: ~/.local/share/drivercatalog
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for drivercatalog.
// On Linux: ~/.config/drivercatalog
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineChrome, EngineFirefox:
	default:
		return ErrInvalidEngine
	}
	if c.LanguageScope != LanguagePrimary && c.LanguageScope != ScopeAll {
		return ErrInvalidLanguageScope
	}
	if c.OSScope != OSWindows && c.OSScope != ScopeAll {
		return ErrInvalidOSScope
	}
	if c.Source != SourceCache && c.Source != SourceOnline {
		return ErrInvalidSource
	}
	for _, id := range c.Controls.Slice() {
		if id == "" {
			return ErrMissingControlID
		}
	}

	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.MaxInFlight <= 0 {
		return ErrInvalidMaxInFlight
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return ErrInvalidDelayWindow
	}
	if c.RequestTimeout <= 0 || c.BrowserTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.CheckpointEvery < 0 {
		return ErrInvalidCheckpointEvery
	}

	switch c.StoreBackend {
	case BackendFile:
		if c.StorePath == "" {
			return ErrMissingStorePath
		}
	case BackendSQLite:
		if c.DBDir == "" {
			return ErrMissingStorePath
		}
		if c.SnapshotsKept <= 0 {
			return ErrInvalidSnapshotsKept
		}
	case BackendS3:
		if c.S3Bucket == "" || c.S3Key == "" {
			return ErrMissingS3Location
		}
	default:
		return ErrInvalidStoreBackend
	}
	return nil
}

// SkipNonPrimaryLanguages reports whether only PrimaryLanguage is kept.
func (c *Config) SkipNonPrimaryLanguages() bool {
	return c.LanguageScope == LanguagePrimary
}

// WindowsOnly reports whether only Windows systems are kept.
func (c *Config) WindowsOnly() bool {
	return c.OSScope == OSWindows
}
