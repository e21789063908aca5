package store

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"golang.org/x/crypto/sha3"
)

// Encode serializes tree into the blob format shared by every backend.
func Encode(tree *catalog.Tree) ([]byte, error) {
	if tree == nil {
		tree = catalog.NewTree()
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tree); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. An empty blob is an empty tree.
func Decode(blob []byte) (*catalog.Tree, error) {
	tree := catalog.NewTree()
	if len(blob) == 0 {
		return tree, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if tree.Roots == nil {
		tree.Roots = make(map[string]*catalog.Node)
	}
	return tree, nil
}

// Digest returns the hex SHA3-256 digest of blob.
func Digest(blob []byte) string {
	sum := sha3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
