package catalog

// OutcomeKind tags the state of a leaf.
type OutcomeKind uint8

const (
	// Unresolved means the leaf was never attempted.
	Unresolved OutcomeKind = iota

	// Resolved means the vendor returned a download location.
	Resolved

	// NotFound means the vendor confirmed there is no certified download for
	// the combination. It is terminal and never retried.
	NotFound

	// AccessDenied means the vendor refused the request. Recoverable.
	AccessDenied

	// TransientError means the request failed before a usable answer arrived
	// (timeout, connection reset, unreadable body). Recoverable.
	TransientError
)

// Sentinel values written into download_url fields of the legacy JSON format.
const (
	LegacyNotFound       = "not_found"
	LegacyAccessDenied   = "access_denied"
	LegacyTransientError = "transient_error"
)

// String returns the outcome kind name.
func (k OutcomeKind) String() string {
	switch k {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	case AccessDenied:
		return "access_denied"
	case TransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// OutcomeKinds lists every kind in display order.
var OutcomeKinds = []OutcomeKind{Resolved, NotFound, AccessDenied, TransientError, Unresolved}

// Outcome is the resolution result stored on a leaf.
// URL is set only for Resolved. Reason is a short free-form note for failed
// kinds (the transport error, the status code) and is informational only.
type Outcome struct {
	Kind   OutcomeKind
	URL    string
	Reason string
}

// ResolvedURL returns a Resolved outcome for u.
func ResolvedURL(u string) Outcome {
	return Outcome{Kind: Resolved, URL: u}
}

// NotFoundOutcome returns a NotFound outcome.
func NotFoundOutcome(reason string) Outcome {
	return Outcome{Kind: NotFound, Reason: reason}
}

// AccessDeniedOutcome returns an AccessDenied outcome.
func AccessDeniedOutcome(reason string) Outcome {
	return Outcome{Kind: AccessDenied, Reason: reason}
}

// TransientOutcome returns a TransientError outcome.
func TransientOutcome(reason string) Outcome {
	return Outcome{Kind: TransientError, Reason: reason}
}

// Recoverable reports whether a later reconciliation pass should retry the leaf.
func (o Outcome) Recoverable() bool {
	return o.Kind == AccessDenied || o.Kind == TransientError
}

// String renders the outcome for logs and tables.
func (o Outcome) String() string {
	if o.Kind == Resolved {
		return o.URL
	}
	if o.Reason != "" {
		return o.Kind.String() + " (" + o.Reason + ")"
	}
	return o.Kind.String()
}

// LegacyValue returns the download_url value used by the legacy JSON format.
// The second result is false for unresolved leaves, which carry no value.
func (o Outcome) LegacyValue() (string, bool) {
	switch o.Kind {
	case Resolved:
		return o.URL, true
	case NotFound:
		return LegacyNotFound, true
	case AccessDenied:
		return LegacyAccessDenied, true
	case TransientError:
		return LegacyTransientError, true
	default:
		return "", false
	}
}
