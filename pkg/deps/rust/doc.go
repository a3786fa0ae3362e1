// Package rust reads Cargo projects.
//
// Dependencies come from Cargo.toml, including every workspace member and
// [workspace.dependencies] inheritance. Trees come from Cargo.lock, rooted at
// the workspace members; edges are the lockfile's "name version" entries.
// Audit shells out to `cargo audit --json`.
package rust
