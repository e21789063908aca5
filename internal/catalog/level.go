package catalog

// Level identifies one of the six hierarchy levels of the option tree.
type Level int

const (
	// ProductType is the top level (e.g. "GeForce", "Quadro").
	ProductType Level = iota
	// ProductSeries groups products of one generation.
	ProductSeries
	// Product is a single card or family member.
	Product
	// OperatingSystem is the target OS of the driver.
	OperatingSystem
	// DownloadType distinguishes driver branches (Game Ready, Studio, ...).
	DownloadType
	// Language is the leaf level; its nodes hold resolution outcomes.
	Language
)

// Depth is the number of levels in the tree.
const Depth = 6

// Levels lists every level from the root down.
var Levels = [Depth]Level{ProductType, ProductSeries, Product, OperatingSystem, DownloadType, Language}

// String returns the level name.
func (l Level) String() string {
	switch l {
	case ProductType:
		return "product_type"
	case ProductSeries:
		return "product_series"
	case Product:
		return "product"
	case OperatingSystem:
		return "os"
	case DownloadType:
		return "download_type"
	case Language:
		return "language"
	default:
		return "unknown"
	}
}

// Param returns the resolver query parameter bound to the level.
func (l Level) Param() string {
	switch l {
	case ProductType:
		return "dtcid"
	case ProductSeries:
		return "psid"
	case Product:
		return "pfid"
	case OperatingSystem:
		return "osid"
	case DownloadType:
		return "dtid"
	case Language:
		return "lid"
	default:
		return ""
	}
}

// Valid reports whether l is one of the six levels.
func (l Level) Valid() bool {
	return l >= ProductType && l <= Language
}

// IsLeaf reports whether nodes at this level hold outcomes instead of children.
func (l Level) IsLeaf() bool {
	return l == Language
}
