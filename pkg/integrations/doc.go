// Package integrations provides the shared HTTP client and the Package Index
// backends for remote registries and Linux distribution mirrors.
//
// # Overview
//
// Each backend lives in its own subpackage and implements [index.PackageIndex]:
//
//   - [crates]: Rust crates.io
//   - [npm]: the npm registry
//   - [jsr]: the JavaScript Registry used by Deno
//   - [maven]: Maven Central plus arbitrary Maven repositories
//   - [fedora]: Fedora mdapi and the packages search service
//   - [pacman]: Arch Linux and its derivatives (Artix, CachyOS, EndeavourOS, Manjaro)
//   - [opensuse]: openSUSE RPM repositories
//   - [void]: Void Linux XBPS repositories
//
// # Client Pattern
//
// All backends embed [Client], which fronts every request with the response
// cache:
//
//	c := integrations.NewClient(backend, "crates", 24*time.Hour, integrations.DefaultHeaders())
//	body, cached, err := c.FetchWithCache(ctx, "serde", "https://crates.io/api/v1/crates/serde")
//
// Status codes map onto the depscope error surface: 404 and 410 become
// NOT_FOUND and every other non-2xx status or transport failure becomes
// NETWORK_ERROR. Nothing is retried.
//
// [index.PackageIndex]: github.com/matzehuels/depscope/pkg/index.PackageIndex
// [crates]: github.com/matzehuels/depscope/pkg/integrations/crates
// [npm]: github.com/matzehuels/depscope/pkg/integrations/npm
// [jsr]: github.com/matzehuels/depscope/pkg/integrations/jsr
// [maven]: github.com/matzehuels/depscope/pkg/integrations/maven
// [fedora]: github.com/matzehuels/depscope/pkg/integrations/fedora
// [pacman]: github.com/matzehuels/depscope/pkg/integrations/pacman
// [opensuse]: github.com/matzehuels/depscope/pkg/integrations/opensuse
// [void]: github.com/matzehuels/depscope/pkg/integrations/void
package integrations
