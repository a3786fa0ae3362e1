// Package npm implements the Package Index for the npm registry
// (https://registry.npmjs.org).
//
// # Usage
//
//	client := npm.NewClient(backend, 24*time.Hour)
//	meta, err := client.Fetch(ctx, "@types/node")
//	fmt.Println(meta.Name, meta.Version)
//
// # Packuments
//
// Fetch and FetchVersions share one cached packument per package. The
// latest version is the "latest" dist-tag. Scoped names are escaped as
// "@scope%2fname" as the registry expects.
//
// # Checksums
//
// The Subresource Integrity string of the tarball ("sha512-<base64>") is
// reported as "sha512:<hex>". Old packages without integrity fall back to
// the legacy shasum as "sha1:<hex>".
//
// # Extra Keys
//
//   - "bin": executable names the package installs
//   - "engines": the engines constraint map
//   - "deprecated": the deprecation message, if any
//
// Deprecated versions are reported with Yanked set. The npm catalog is
// unbounded, so FetchAll returns UNSUPPORTED.
package npm
