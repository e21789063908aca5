// Package main provides the entry point for the drivercatalog CLI.
//
// drivercatalog builds a catalog of NVIDIA driver downloads: it walks the
// vendor's configurator page for every product, operating system, download
// type and language combination, then asks the vendor's resolver for the
// download behind each one.
//
// Usage:
//
//	drivercatalog init [chrome|firefox] [en|all] [windows|all] [cache|online] [no]
//	drivercatalog scrape
//	drivercatalog cleanup
//	drivercatalog shell
//
// See --help for all available commands.
package main

// main is the entry point for drivercatalog.
func main() {
	Execute()
}
