// Package archive decodes the repository databases published by Linux
// distribution mirrors into [index.PackageMeta] records.
//
// Three formats are supported, sharing one decompression front end
// ([Decompress] sniffs gzip and zstd by magic bytes and passes anything else
// through as-is):
//
//   - pacman sync databases (Arch, Artix, CachyOS, EndeavourOS, Manjaro):
//     a tar of per-package "desc" files made of %KEY% stanzas ([ParseRepoDB])
//   - RPM-MD repositories (openSUSE, Fedora): repomd.xml pointing at a
//     compressed primary.xml ([ParseRepomd], [ParsePrimary])
//   - XBPS repositories (Void): a tar holding an index.plist dictionary
//     ([ParseXBPSIndex])
//
// Every decoder tags each record with Extra["source_repo"] so merged results
// from several repositories stay attributable.
//
// [index.PackageMeta]: github.com/matzehuels/depscope/pkg/index.PackageMeta
package archive

// ExtraSourceRepo is the Extra key naming the repository a record came from.
const ExtraSourceRepo = "source_repo"
