package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/titanous/json5"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// Keys of the legacy nested JSON format.
const (
	legacyNameKey = "verbose_name"
	legacyURLKey  = "download_url"
)

// Raw response fragments that older runs stored verbatim as download_url.
const (
	legacyNoDownloads  = "No certified downloads"
	legacyAccessDenied = "Access Denied"
	legacyHTMLDocument = "DOCTYPE html"
)

// LegacyOutcome maps a legacy download_url value to an outcome.
//
// Besides the sentinels written by EncodeLegacyJSON, older files hold raw
// response bodies: "No certified downloads" is NotFound, "Access Denied" is
// AccessDenied, and an HTML error page is TransientError so that the next
// cleanup retries it. An empty value is Unresolved.
func LegacyOutcome(value string) catalog.Outcome {
	switch {
	case value == "":
		return catalog.Outcome{}
	case value == catalog.LegacyNotFound:
		return catalog.NotFoundOutcome("")
	case strings.Contains(value, legacyNoDownloads):
		return catalog.NotFoundOutcome("no certified downloads")
	case value == catalog.LegacyAccessDenied:
		return catalog.AccessDeniedOutcome("")
	case strings.Contains(value, legacyAccessDenied):
		return catalog.AccessDeniedOutcome("access denied page")
	case value == catalog.LegacyTransientError:
		return catalog.TransientOutcome("")
	case strings.Contains(value, legacyHTMLDocument):
		return catalog.TransientOutcome("html document")
	default:
		return catalog.ResolvedURL(value)
	}
}

// DecodeLegacyJSON reads a catalog in the legacy nested JSON format.
// Interior nodes left without children are pruned.
func DecodeLegacyJSON(r io.Reader) (*catalog.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	tree := catalog.NewTree()
	if len(strings.TrimSpace(string(data))) == 0 {
		return tree, nil
	}

	var root map[string]any
	if err := json5.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLegacyFormat, err)
	}
	if err := decodeLegacyLevel(tree, root, nil); err != nil {
		return nil, err
	}
	tree.Prune()
	return tree, nil
}

func decodeLegacyLevel(tree *catalog.Tree, obj map[string]any, path []string) error {
	for id, raw := range obj {
		if id == legacyNameKey {
			continue
		}
		child, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q under %q is not an object", ErrLegacyFormat, id, strings.Join(path, "/"))
		}
		name, _ := child[legacyNameKey].(string) //nolint:errcheck // a missing label is empty

		next := append(path[:len(path):len(path)], id)
		if err := tree.SetNode(next, name); err != nil {
			return fmt.Errorf("%w: %w", ErrLegacyFormat, err)
		}
		if len(next) < catalog.Depth {
			if err := decodeLegacyLevel(tree, child, next); err != nil {
				return err
			}
			continue
		}

		value, _ := child[legacyURLKey].(string) //nolint:errcheck // absent means unresolved
		outcome := LegacyOutcome(value)
		if outcome.Kind == catalog.Unresolved {
			continue
		}
		key, err := catalog.KeyFromPath(next)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLegacyFormat, err)
		}
		if err := tree.SetLeafOutcome(key, outcome); err != nil {
			return fmt.Errorf("%w: %w", ErrLegacyFormat, err)
		}
	}
	return nil
}

// LegacyDocument returns tree as the nested legacy document. Failed outcomes
// are written as their sentinel strings and unresolved leaves carry no
// download_url.
func LegacyDocument(tree *catalog.Tree) map[string]any {
	root := make(map[string]any)
	if tree != nil {
		encodeLegacyLevel(root, tree.Roots, 0)
	}
	return root
}

// EncodeLegacyJSON writes tree in the legacy nested JSON format.
func EncodeLegacyJSON(w io.Writer, tree *catalog.Tree) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(LegacyDocument(tree)); err != nil {
		return fmt.Errorf("failed to encode legacy catalog: %w", err)
	}
	return nil
}

func encodeLegacyLevel(out map[string]any, children map[string]*catalog.Node, depth int) {
	for id, n := range children {
		obj := map[string]any{legacyNameKey: n.Name}
		if catalog.Level(depth).IsLeaf() {
			if v, ok := n.Outcome.LegacyValue(); ok {
				obj[legacyURLKey] = v
			}
		} else {
			encodeLegacyLevel(obj, n.Children, depth+1)
		}
		out[id] = obj
	}
}

// Migrate converts the legacy JSON file at jsonPath and saves the result to
// st. An empty legacy file leaves st untouched.
func Migrate(ctx context.Context, jsonPath string, st Store) (*catalog.Tree, error) {
	f, err := os.Open(jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLegacyNotFound, jsonPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreIO, jsonPath, err)
	}
	defer f.Close()

	tree, err := DecodeLegacyJSON(f)
	if err != nil {
		return nil, err
	}
	if tree.IsEmpty() {
		return tree, nil
	}
	if err := st.Save(ctx, tree); err != nil {
		return nil, err
	}
	return tree, nil
}
