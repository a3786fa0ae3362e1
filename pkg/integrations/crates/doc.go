// Package crates implements the Package Index for crates.io, the Rust
// community's package registry.
//
// # Usage
//
//	client := crates.NewClient(backend, 24*time.Hour)
//	meta, err := client.Fetch(ctx, "serde")
//	fmt.Println(meta.Name, meta.Version, meta.Dependencies)
//
// # Latest Version
//
// Fetch reports max_stable_version when crates.io has one and falls back to
// max_version for crates that only publish pre-releases.
//
// # Dependency Filtering
//
// Only "normal" dependencies are included. Development dependencies,
// build dependencies, and optional dependencies are filtered out.
// A failing dependencies call leaves Dependencies empty rather than failing
// Fetch.
//
// # Extra Keys
//
//   - "msrv": the rust_version declared by the latest version
//   - "recent_downloads": downloads over the last 90 days
//   - "crate_size": size of the .crate archive in bytes
//
// The crates.io catalog is unbounded, so FetchAll returns UNSUPPORTED.
package crates
