package discovery

import (
	"strings"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/config"
	"golang.org/x/text/cases"
)

// Filter decides which dropdown options are followed.
type Filter struct {
	// ConsumerOnly keeps product types whose label contains one of ConsumerTypes.
	ConsumerOnly  bool
	ConsumerTypes []string
	// WindowsOnly keeps operating systems whose label contains "windows".
	WindowsOnly bool
	// PrimaryLanguageOnly keeps only the language labelled PrimaryLanguage.
	PrimaryLanguageOnly bool
	PrimaryLanguage     string
}

// FilterFromConfig builds the filter selected by cfg.
func FilterFromConfig(cfg *config.Config) Filter {
	return Filter{
		ConsumerOnly:        cfg.ConsumerOnly,
		ConsumerTypes:       cfg.ConsumerTypes,
		WindowsOnly:         cfg.WindowsOnly(),
		PrimaryLanguageOnly: cfg.SkipNonPrimaryLanguages(),
		PrimaryLanguage:     cfg.PrimaryLanguage,
	}
}

// Keep reports whether the option labelled label at level is walked.
// Substring matches ignore case; the primary language label must match exactly.
func (f Filter) Keep(level catalog.Level, label string) bool {
	switch level {
	case catalog.ProductType:
		if !f.ConsumerOnly {
			return true
		}
		folded := fold(label)
		for _, t := range f.ConsumerTypes {
			if t != "" && strings.Contains(folded, fold(t)) {
				return true
			}
		}
		return false
	case catalog.OperatingSystem:
		return !f.WindowsOnly || strings.Contains(fold(label), "windows")
	case catalog.Language:
		return !f.PrimaryLanguageOnly || label == f.PrimaryLanguage
	default:
		return true
	}
}

func fold(s string) string {
	return cases.Fold().String(s)
}
