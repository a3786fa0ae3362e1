package archive

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
)

// Extra keys produced by the RPM decoder.
const (
	ExtraRPMGroup   = "rpm_group"
	ExtraSourceRPM  = "source_rpm"
	ExtraInstallLen = "installed_size"
)

// Repomd is the index of an RPM-MD repository (repodata/repomd.xml).
type Repomd struct {
	Revision string       `xml:"revision"`
	Data     []RepomdData `xml:"data"`
}

// RepomdData is one metadata file listed in repomd.xml.
type RepomdData struct {
	Type     string `xml:"type,attr"`
	Checksum struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"checksum"`
	Location struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Size int64 `xml:"size"`
}

// ParseRepomd decodes repomd.xml.
func ParseRepomd(data []byte) (*Repomd, error) {
	var r Repomd
	if err := xml.Unmarshal(data, &r); err != nil {
		return nil, errors.Parse(err, "decode repomd.xml")
	}
	return &r, nil
}

// Location returns the href of the metadata file of the given type
// (usually "primary").
func (r *Repomd) Location(typ string) (string, bool) {
	for _, d := range r.Data {
		if d.Type == typ && d.Location.Href != "" {
			return d.Location.Href, true
		}
	}
	return "", false
}

type rpmPackage struct {
	Name    string `xml:"name"`
	Arch    string `xml:"arch"`
	Version struct {
		Epoch string `xml:"epoch,attr"`
		Ver   string `xml:"ver,attr"`
		Rel   string `xml:"rel,attr"`
	} `xml:"version"`
	Checksum struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"checksum"`
	Summary     string `xml:"summary"`
	Description string `xml:"description"`
	Packager    string `xml:"packager"`
	URL         string `xml:"url"`
	Time        struct {
		Build int64 `xml:"build,attr"`
	} `xml:"time"`
	Size struct {
		Package   uint64 `xml:"package,attr"`
		Installed uint64 `xml:"installed,attr"`
	} `xml:"size"`
	Location struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Format struct {
		License   string     `xml:"license"`
		Group     string     `xml:"group"`
		SourceRPM string     `xml:"sourcerpm"`
		Provides  []rpmEntry `xml:"provides>entry"`
		Requires  []rpmEntry `xml:"requires>entry"`
	} `xml:"format"`
}

type rpmEntry struct {
	Name string `xml:"name,attr"`
}

// ParsePrimary stream-decodes a (possibly compressed) primary.xml.
//
// Source packages (arch "src") are skipped. Requirements on files, rpmlib
// features and virtual capabilities in parentheses are dropped from
// Dependencies. Provides are kept under Extra["provides"].
func ParsePrimary(data []byte, repo, baseURL string) ([]index.PackageMeta, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	var pkgs []index.PackageMeta
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Parse(err, "decode primary.xml")
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "package" {
			continue
		}

		var p rpmPackage
		if err := dec.DecodeElement(&p, &se); err != nil {
			return nil, errors.Parse(err, "decode primary.xml package")
		}
		if p.Name == "" || p.Version.Ver == "" || p.Arch == "src" {
			continue
		}
		pkgs = append(pkgs, rpmToMeta(p, repo, baseURL))
	}
	return pkgs, nil
}

func rpmToMeta(p rpmPackage, repo, baseURL string) index.PackageMeta {
	meta := index.PackageMeta{
		Name:        p.Name,
		Version:     RPMVersion(p.Version.Epoch, p.Version.Ver, p.Version.Rel),
		Description: strings.TrimSpace(p.Summary),
		Homepage:    p.URL,
		License:     p.Format.License,
		ArchiveURL:  joinURL(baseURL, p.Location.Href),
	}
	if p.Packager != "" {
		meta.Maintainers = []string{p.Packager}
	}
	if p.Checksum.Value != "" {
		typ := p.Checksum.Type
		if typ == "sha" {
			typ = "sha1"
		}
		meta.Checksum = typ + ":" + strings.TrimSpace(p.Checksum.Value)
	}
	if p.Time.Build > 0 {
		t := time.Unix(p.Time.Build, 0).UTC()
		meta.Published = &t
	}

	seen := make(map[string]bool)
	for _, r := range p.Format.Requires {
		name := r.Name
		if seen[name] || !IsPackageRequire(name) {
			continue
		}
		seen[name] = true
		meta.Dependencies = append(meta.Dependencies, name)
	}

	meta.SetExtra(ExtraSourceRepo, repo)
	meta.SetExtra(ExtraArch, p.Arch)
	if p.Size.Package > 0 {
		meta.SetExtra(ExtraCompressedSize, p.Size.Package)
	}
	if p.Size.Installed > 0 {
		meta.SetExtra(ExtraInstallLen, p.Size.Installed)
	}
	if p.Format.Group != "" {
		meta.SetExtra(ExtraRPMGroup, p.Format.Group)
	}
	if p.Format.SourceRPM != "" {
		meta.SetExtra(ExtraSourceRPM, p.Format.SourceRPM)
	}
	if len(p.Format.Provides) > 0 {
		provides := make([]string, 0, len(p.Format.Provides))
		for _, e := range p.Format.Provides {
			provides = append(provides, e.Name)
		}
		meta.SetExtra(ExtraProvides, provides)
	}
	return meta
}

// IsPackageRequire reports whether an RPM requirement names a package rather
// than a file path, an rpmlib feature or a virtual capability such as
// "libc.so.6()(64bit)" or "python3dist(requests)".
func IsPackageRequire(name string) bool {
	return name != "" && !strings.HasPrefix(name, "/") && !strings.Contains(name, "(")
}

// RPMVersion formats epoch:version-release, omitting a zero epoch.
func RPMVersion(epoch, ver, rel string) string {
	v := ver
	if rel != "" {
		v += "-" + rel
	}
	if epoch != "" && epoch != "0" {
		v = epoch + ":" + v
	}
	return v
}
