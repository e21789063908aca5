package resolver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"golang.org/x/net/html"
)

// Markers searched for in resolver bodies.
const (
	MarkerNoDownloads  = "No certified downloads"
	MarkerAccessDenied = "Access Denied"
	MarkerHTMLDocument = "DOCTYPE html"
)

// Classifier maps a resolver answer to an outcome.
type Classifier struct {
	// DownloadRoot is prepended to bodies that do not mention VendorMarker.
	DownloadRoot string
	// VendorMarker marks bodies that are already protocol-relative URLs.
	VendorMarker string
}

// DefaultClassifier uses the vendor's download root and marker.
var DefaultClassifier = Classifier{
	DownloadRoot: "https://www.nvidia.com/Download/",
	VendorMarker: "nvidia",
}

// Classify maps a response with DefaultClassifier.
func Classify(status int, body string, err error) catalog.Outcome {
	return DefaultClassifier.Classify(status, body, err)
}

// Classify maps the status, body and transport error of one request to an
// outcome. The rules are applied in order:
//
//  1. a transport error (timeout, reset, unreadable body) is TransientError
//  2. status 401 or 403 is AccessDenied
//  3. a body containing "No certified downloads" or "DOCTYPE html" is NotFound
//  4. a body containing "Access Denied" is AccessDenied
//  5. any other HTML document instead of a bare path is NotFound
//  6. any other error status or an empty body is TransientError
//  7. a body without VendorMarker is DownloadRoot + body
//  8. otherwise "https:" + body
//
// A doctype page mentioning "Access Denied" is therefore NotFound, while a
// bare <HTML> refusal page is AccessDenied.
//
// Rules 7 and 8 join strings without normalising slashes, so a body of
// "/Windows/x.exe" becomes "https://www.nvidia.com/Download//Windows/x.exe".
func (c Classifier) Classify(status int, body string, err error) catalog.Outcome {
	if err != nil {
		return catalog.TransientOutcome(err.Error())
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return catalog.AccessDeniedOutcome(fmt.Sprintf("status %d", status))
	}

	body = strings.TrimSpace(body)
	switch {
	case strings.Contains(body, MarkerNoDownloads):
		return catalog.NotFoundOutcome("no certified downloads")
	case strings.Contains(body, MarkerHTMLDocument):
		return catalog.NotFoundOutcome("html document")
	case strings.Contains(body, MarkerAccessDenied):
		return catalog.AccessDeniedOutcome("access denied page")
	case isHTMLDocument(body):
		return catalog.NotFoundOutcome("html document")
	case status >= http.StatusBadRequest:
		return catalog.TransientOutcome(fmt.Sprintf("status %d", status))
	case body == "":
		return catalog.TransientOutcome("empty body")
	case !strings.Contains(body, c.VendorMarker):
		return catalog.ResolvedURL(c.DownloadRoot + body)
	default:
		return catalog.ResolvedURL("https:" + body)
	}
}

// isHTMLDocument reports whether body is a full HTML page: its first token is
// a doctype or an <html> start tag.
func isHTMLDocument(body string) bool {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return true
		case html.StartTagToken:
			name, _ := z.TagName()
			return string(name) == "html"
		case html.CommentToken:
			continue
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) != "" {
				return false
			}
		default:
			return false
		}
	}
}
