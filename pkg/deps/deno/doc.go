// Package deno reads Deno projects.
//
// Dependencies are the jsr:, npm: and pinned deno.land targets of the
// import map in deno.json or deno.jsonc. Trees come from deno.lock; versions
// 3 and 4 resolve specifiers through the lockfile's specifier table, while
// version 2 lockfiles only record remote URLs and npm packages, so their
// deno.land modules become leaves deduplicated by name.
//
// Package names keep their scheme ("jsr:@std/path", "npm:chalk") so they
// can be looked up in the Deno package index, which tries JSR and then npm.
package deno
