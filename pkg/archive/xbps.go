package archive

import (
	"path"
	"sort"
	"strings"
	"time"

	"howett.net/plist"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
)

// Extra keys produced by the XBPS decoder.
const (
	ExtraShlibRequires = "shlib_requires"
)

type xbpsEntry struct {
	PkgVer         string   `plist:"pkgver"`
	ShortDesc      string   `plist:"short_desc"`
	Homepage       string   `plist:"homepage"`
	License        string   `plist:"license"`
	Maintainer     string   `plist:"maintainer"`
	Architecture   string   `plist:"architecture"`
	BuildDate      string   `plist:"build-date"`
	RunDepends     []string `plist:"run_depends"`
	ShlibRequires  []string `plist:"shlib-requires"`
	Provides       []string `plist:"provides"`
	FilenameSHA256 string   `plist:"filename-sha256"`
	FilenameSize   uint64   `plist:"filename-size"`
	InstalledSize  uint64   `plist:"installed_size"`
}

// xbpsBuildDateLayouts are the build-date formats xbps-create has written.
var xbpsBuildDateLayouts = []string{
	"2006-01-02 15:04 MST",
	"2006-01-02 15:04:05 MST",
}

// ParseXBPSIndex decodes a Void Linux repodata archive: a compressed tar
// holding index.plist, a dictionary keyed by package name.
//
// pkgver ("name-1.2.3_1") is split at its last '-' into name and version.
// The archive URL is <repoURL>/<pkgver>.<arch>.xbps.
func ParseXBPSIndex(data []byte, repo, repoURL string) ([]index.PackageMeta, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}

	var plistData []byte
	err = walkTar(raw, func(name string, body []byte) error {
		if path.Base(name) == "index.plist" {
			plistData = body
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if plistData == nil {
		return nil, errors.New(errors.ErrCodeParse, "repodata for %s has no index.plist", repo)
	}
	return ParseXBPSPlist(plistData, repo, repoURL)
}

// ParseXBPSPlist decodes an uncompressed index.plist.
func ParseXBPSPlist(data []byte, repo, repoURL string) ([]index.PackageMeta, error) {
	var entries map[string]xbpsEntry
	if _, err := plist.Unmarshal(data, &entries); err != nil {
		return nil, errors.Parse(err, "decode index.plist")
	}

	pkgs := make([]index.PackageMeta, 0, len(entries))
	for key, e := range entries {
		name, version := SplitPkgVer(e.PkgVer)
		if name == "" {
			name = key
		}
		if version == "" {
			continue
		}

		meta := index.PackageMeta{
			Name:         name,
			Version:      version,
			Description:  e.ShortDesc,
			Homepage:     e.Homepage,
			License:      e.License,
			Dependencies: StripConstraints(e.RunDepends),
		}
		if e.Maintainer != "" {
			meta.Maintainers = []string{e.Maintainer}
		}
		if e.FilenameSHA256 != "" {
			meta.Checksum = "sha256:" + e.FilenameSHA256
		}
		if e.Architecture != "" {
			meta.ArchiveURL = joinURL(repoURL, e.PkgVer+"."+e.Architecture+".xbps")
		}
		for _, layout := range xbpsBuildDateLayouts {
			if t, err := time.Parse(layout, e.BuildDate); err == nil {
				t = t.UTC()
				meta.Published = &t
				break
			}
		}

		meta.SetExtra(ExtraSourceRepo, repo)
		if e.Architecture != "" {
			meta.SetExtra(ExtraArch, e.Architecture)
		}
		if e.FilenameSize > 0 {
			meta.SetExtra(ExtraCompressedSize, e.FilenameSize)
		}
		if e.InstalledSize > 0 {
			meta.SetExtra(ExtraInstalledSize, e.InstalledSize)
		}
		if len(e.Provides) > 0 {
			meta.SetExtra(ExtraProvides, e.Provides)
		}
		if len(e.ShlibRequires) > 0 {
			meta.SetExtra(ExtraShlibRequires, e.ShlibRequires)
		}
		pkgs = append(pkgs, meta)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

// SplitPkgVer splits an XBPS "name-version_revision" string at its last '-'.
//
//	SplitPkgVer("python3-requests-2.31.0_1") == ("python3-requests", "2.31.0_1")
func SplitPkgVer(pkgver string) (name, version string) {
	i := strings.LastIndex(pkgver, "-")
	if i <= 0 || i == len(pkgver)-1 {
		return pkgver, ""
	}
	return pkgver[:i], pkgver[i+1:]
}
