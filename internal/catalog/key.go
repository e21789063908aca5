package catalog

import "strings"

// LookupKey addresses one leaf of the tree and forms one resolver request.
type LookupKey struct {
	ProductType   string
	ProductSeries string
	Product       string
	OS            string
	DownloadType  string
	Language      string
}

// KeyFromPath builds a LookupKey from a full six-element path.
func KeyFromPath(path []string) (LookupKey, error) {
	if err := checkPath("key", path, Depth); err != nil {
		return LookupKey{}, err
	}
	return LookupKey{
		ProductType:   path[0],
		ProductSeries: path[1],
		Product:       path[2],
		OS:            path[3],
		DownloadType:  path[4],
		Language:      path[5],
	}, nil
}

// Path returns the ids from the root down to the leaf.
func (k LookupKey) Path() []string {
	return []string{k.ProductType, k.ProductSeries, k.Product, k.OS, k.DownloadType, k.Language}
}

// ID returns the id stored at the given level.
func (k LookupKey) ID(l Level) string {
	if !l.Valid() {
		return ""
	}
	return k.Path()[l]
}

// String renders the key as a slash-separated path.
func (k LookupKey) String() string {
	return strings.Join(k.Path(), "/")
}

// checkPath validates that path has exactly want non-empty ids.
func checkPath(op string, path []string, want int) error {
	if len(path) != want {
		return pathError(op, path, "expected %d ids, got %d", want, len(path))
	}
	for i, id := range path {
		if id == "" {
			return pathError(op, path, "empty id at level %s", Level(i))
		}
	}
	return nil
}
