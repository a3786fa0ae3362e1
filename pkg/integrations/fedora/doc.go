// Package fedora implements the Package Index for Fedora and EPEL using
// mdapi (https://mdapi.fedoraproject.org), which answers single-package
// queries against the repository metadata of one release branch.
//
// A client is configured with an ordered list of branches ("rawhide",
// "f41", "epel9", ...). Fetch returns the package from the first branch that
// has it. FetchVersions asks every branch in parallel and reports one entry
// per distinct version, in branch order; branches that do not carry the
// package are skipped and branches that fail are logged.
//
// Search uses the Fedora Packages fcomm_connector endpoint.
//
// # Extra Keys
//
//   - "release": the branch the record came from
//   - "repo": the mdapi repository within the branch (release, updates, ...)
//   - "arch": package architecture
//   - "provides": capabilities the package provides
//   - "co_packages": other binary packages built from the same source
//
// mdapi has no catalog listing, so FetchAll returns UNSUPPORTED.
package fedora
