// Package void implements the Package Index for Void Linux, read from the
// XBPS repository index (<arch>-repodata) of each configured repository.
//
// A client is bound to one architecture and C library. Repositories are
// named after the mirror subdirectory they live in: "main", "nonfree",
// "multilib" and "multilib-nonfree". The multilib repositories only exist
// for x86_64 with glibc.
package void
