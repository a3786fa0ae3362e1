// Package opensuse implements the Package Index for openSUSE Tumbleweed and
// Leap, read from the RPM-MD metadata of the official repositories.
//
// For each configured repository the client downloads repodata/repomd.xml,
// follows it to the primary metadata (usually primary.xml.zst) and decodes
// that with [archive.ParsePrimary]. Repositories load in parallel; a failing
// repository is logged and skipped.
//
// Repository names combine distribution and component:
//
//	tumbleweed-oss  tumbleweed-non-oss  tumbleweed-update
//	leap-15.6-oss   leap-15.6-non-oss   leap-15.6-update  leap-15.6-update-non-oss
//
// Stable() selects the three Tumbleweed repositories.
package opensuse
