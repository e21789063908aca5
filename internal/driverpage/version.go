package driverpage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/nao1215/drivercatalog/internal/config"
)

const (
	versionSelector     = "#tdVersion"
	releaseDateSelector = "#tdReleaseDate"
)

// versionPattern matches a dotted version that forms a whole path element or
// prefixes a file name, as in /Windows/551.86/551.86-desktop.exe.
var versionPattern = regexp.MustCompile(`(?:^|/)(\d+\.\d+)(?:/|-|$)`)

// Source tells where a Version was read.
type Source string

const (
	// SourceURL means the version was parsed from the URL alone.
	SourceURL Source = "url"
	// SourcePage means the version was read from the download page.
	SourcePage Source = "page"
)

// Version is the current driver of a download page.
type Version struct {
	Version     string
	ReleaseDate string
	Source      Source
}

// Client looks up driver versions.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
	logger    *slog.Logger
}

// WithTimeout sets the page request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithTransport sets the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	o := options{
		timeout:   config.DefaultRequestTimeout,
		userAgent: config.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	hc := &http.Client{}
	if o.transport != nil {
		hc.Transport = o.transport
	}
	return &Client{
		client: resty.NewWithClient(hc).
			SetTimeout(o.timeout).
			SetHeader("User-Agent", o.userAgent),
		logger: o.logger,
	}
}

// CurrentVersion returns the driver version offered at pageURL.
func (c *Client) CurrentVersion(ctx context.Context, pageURL string) (Version, error) {
	if v, ok := VersionFromURL(pageURL); ok {
		c.logger.Debug("version read from url", "url", pageURL, "version", v)
		return Version{Version: v, Source: SourceURL}, nil
	}

	res, err := c.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return Version{}, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if res.StatusCode() >= http.StatusBadRequest {
		return Version{}, fmt.Errorf("%w: %d from %s", ErrPageStatus, res.StatusCode(), pageURL)
	}
	c.logger.Debug("download page fetched", "url", pageURL, "status", res.StatusCode(), "html", res.String())

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return Version{}, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	version := cleanVersion(doc.Find(versionSelector).First().Text())
	if version == "" {
		return Version{}, fmt.Errorf("%w: %s", ErrVersionNotFound, pageURL)
	}
	return Version{
		Version:     version,
		ReleaseDate: strings.TrimSpace(doc.Find(releaseDateSelector).First().Text()),
		Source:      SourcePage,
	}, nil
}

// VersionFromURL extracts a dotted driver version from the path of u.
func VersionFromURL(u string) (string, bool) {
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[i:]
	} else {
		return "", false
	}
	m := versionPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// cleanVersion drops the certification suffix, "551.86  WHQL" -> "551.86".
func cleanVersion(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(s), "WHQL", ""))
}
