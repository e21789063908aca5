package driverpage

import "github.com/nao1215/drivercatalog/internal/catalog"

// DownloadLink returns the legacy download_url value stored for key: the URL
// of a resolved leaf, or the sentinel of a failed one. Leaves never resolved
// report catalog.LegacyNotFound. A key that does not address a leaf returns
// an error wrapping catalog.ErrInvalidPath.
func DownloadLink(tree *catalog.Tree, key catalog.LookupKey) (string, error) {
	leaf, err := tree.Leaf(key)
	if err != nil {
		return "", err
	}
	if v, ok := leaf.Outcome.LegacyValue(); ok {
		return v, nil
	}
	return catalog.LegacyNotFound, nil
}
