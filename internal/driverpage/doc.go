// Package driverpage answers questions about a single catalog entry: the
// stored download link of a leaf, and the driver version currently offered
// on a download page.
//
// The version is read from the URL when it already names one
// (".../Windows/551.86/551.86-desktop-...exe"), otherwise the page is fetched
// and the #tdVersion cell is parsed.
package driverpage
