package archive

import (
	"bufio"
	"bytes"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/depscope/pkg/index"
)

// Extra keys produced by the pacman decoder.
const (
	ExtraCompressedSize = "csize"
	ExtraInstalledSize  = "isize"
	ExtraArch           = "arch"
	ExtraPackageBase    = "base"
	ExtraProvides       = "provides"
	ExtraOptDepends     = "optdepends"
	ExtraGroups         = "groups"
)

// Stanzas is one decoded desc file: %KEY% mapped to its value lines.
type Stanzas map[string][]string

// First returns the first value of key or "".
func (s Stanzas) First(key string) string {
	if v := s[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ParseDesc decodes the %KEY% stanza format of a pacman desc file.
//
// A stanza starts with a line "%KEY%" and continues with one trimmed value
// per line up to the next stanza header or the end of the file. Blank lines
// are skipped.
func ParseDesc(data []byte) Stanzas {
	out := make(Stanzas)
	var key string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case len(line) > 2 && line[0] == '%' && line[len(line)-1] == '%':
			key = line[1 : len(line)-1]
			if _, ok := out[key]; !ok {
				out[key] = nil
			}
		case line == "":
		case key != "":
			out[key] = append(out[key], line)
		}
	}
	return out
}

// ParseRepoDB decodes a pacman sync database (a gzip, zstd or plain tar).
//
// Entries ending in "/desc" are decoded; legacy databases that keep
// dependencies in a sibling "/depends" file are merged by directory.
// Records lacking NAME or VERSION are dropped. FILENAME is joined onto
// mirrorURL to form the archive URL. Every record carries
// Extra["source_repo"] = repo. Output is sorted by name for stable results.
func ParseRepoDB(data []byte, repo, mirrorURL string) ([]index.PackageMeta, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Stanzas)
	err = walkTar(raw, func(name string, body []byte) error {
		base := path.Base(name)
		if base != "desc" && base != "depends" {
			return nil
		}
		dir := path.Dir(name)
		st := entries[dir]
		if st == nil {
			st = make(Stanzas)
			entries[dir] = st
		}
		for k, v := range ParseDesc(body) {
			st[k] = append(st[k], v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pkgs := make([]index.PackageMeta, 0, len(entries))
	for _, st := range entries {
		meta, ok := stanzasToMeta(st, repo, mirrorURL)
		if !ok {
			continue
		}
		pkgs = append(pkgs, meta)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

func stanzasToMeta(st Stanzas, repo, mirrorURL string) (index.PackageMeta, bool) {
	name, version := st.First("NAME"), st.First("VERSION")
	if name == "" || version == "" {
		return index.PackageMeta{}, false
	}

	meta := index.PackageMeta{
		Name:         name,
		Version:      version,
		Description:  st.First("DESC"),
		Homepage:     st.First("URL"),
		License:      strings.Join(st["LICENSE"], " AND "),
		Maintainers:  st["PACKAGER"],
		Dependencies: StripConstraints(st["DEPENDS"]),
		ArchiveURL:   joinURL(mirrorURL, st.First("FILENAME")),
	}

	switch {
	case st.First("SHA256SUM") != "":
		meta.Checksum = "sha256:" + st.First("SHA256SUM")
	case st.First("MD5SUM") != "":
		meta.Checksum = "md5:" + st.First("MD5SUM")
	}

	if ts, err := strconv.ParseInt(st.First("BUILDDATE"), 10, 64); err == nil && ts > 0 {
		t := time.Unix(ts, 0).UTC()
		meta.Published = &t
	}

	meta.SetExtra(ExtraSourceRepo, repo)
	if n, err := strconv.ParseUint(st.First("CSIZE"), 10, 64); err == nil {
		meta.SetExtra(ExtraCompressedSize, n)
	}
	if n, err := strconv.ParseUint(st.First("ISIZE"), 10, 64); err == nil {
		meta.SetExtra(ExtraInstalledSize, n)
	}
	if v := st.First("ARCH"); v != "" {
		meta.SetExtra(ExtraArch, v)
	}
	if v := st.First("BASE"); v != "" && v != name {
		meta.SetExtra(ExtraPackageBase, v)
	}
	if v := st["PROVIDES"]; len(v) > 0 {
		meta.SetExtra(ExtraProvides, v)
	}
	if v := st["OPTDEPENDS"]; len(v) > 0 {
		meta.SetExtra(ExtraOptDepends, StripConstraints(v))
	}
	if v := st["GROUPS"]; len(v) > 0 {
		meta.Keywords = v
		meta.SetExtra(ExtraGroups, v)
	}
	return meta, true
}
