// Package jsr implements the Package Index for JSR, the JavaScript Registry
// (https://jsr.io) that Deno resolves "jsr:" specifiers against.
//
// Names are always scoped ("@std/path"); a leading "jsr:" is accepted and
// stripped. Metadata comes from the management API at api.jsr.io.
//
// Dependencies of the latest version are listed by name. Dependencies on
// npm packages keep an "npm:" prefix ("npm:chalk") so callers can route
// them to the npm index.
//
// # Extra Keys
//
//   - "score": the JSR package score (0-100)
//   - "runtimes": runtimes the package declares compatibility with
//
// JSR has no bulk catalog download, so FetchAll returns UNSUPPORTED.
package jsr
