// Package pacman implements the Package Index for pacman-based
// distributions: Arch Linux, Artix, CachyOS, EndeavourOS and Manjaro.
//
// All five publish the same repository database format, a compressed tar of
// per-package desc files decoded by [archive.ParseRepoDB]. They differ only
// in mirror layout and in which repositories exist, which a [Distro] value
// describes:
//
//	b, err := pacman.Arch.New(backend, 24*time.Hour, pacman.Options{
//	    Repos: pacman.Arch.Stable(),
//	})
//	meta, err := b.Fetch(ctx, "ripgrep")
//
// # Lookup Order
//
// Fetch loads every configured repository database in parallel and returns
// the match from the first repository in configuration order. For Arch Linux
// it then falls back to the archweb package search and to the AUR before
// reporting NOT_FOUND. A repository that cannot be downloaded or decoded is
// logged and skipped.
//
// Decoded databases are memoized in memory, so repeated lookups within one
// process decompress each database once.
//
// # Extra Keys
//
// Records carry the keys written by [archive.ParseRepoDB], including
// "source_repo" naming the repository they came from. AUR records use
// source_repo "aur" and add "votes" and "popularity".
package pacman
