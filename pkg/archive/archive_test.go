package archive

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/depscope/pkg/errors"
)

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestDecompress(t *testing.T) {
	payload := []byte("hello repository")

	tests := []struct {
		name string
		in   []byte
		want Compression
	}{
		{"gzip", gzipBytes(t, payload), Gzip},
		{"zstd", zstdBytes(t, payload), Zstd},
		{"raw", payload, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.in); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
			out, err := Decompress(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(out, payload) {
				t.Errorf("Decompress() = %q", out)
			}
		})
	}
}

func TestDecompress_Errors(t *testing.T) {
	xz := []byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 1, 2, 3}
	if _, err := Decompress(xz); !errors.Is(err, errors.ErrCodeDecompress) {
		t.Errorf("xz: err = %v, want DECOMPRESS_ERROR", err)
	}

	truncated := gzipBytes(t, bytes.Repeat([]byte("abc"), 1000))[:20]
	if _, err := Decompress(truncated); !errors.Is(err, errors.ErrCodeDecompress) {
		t.Errorf("truncated gzip: err = %v, want DECOMPRESS_ERROR", err)
	}
}

func TestStripConstraint(t *testing.T) {
	tests := map[string]string{
		"bar>=1.0":            "bar",
		"glibc":               "glibc",
		"sh<2":                "sh",
		"libfoo.so=1-64":      "libfoo.so",
		"python: for scripts": "python",
		"  spaced  ":          "spaced",
	}
	for in, want := range tests {
		if got := StripConstraint(in); got != want {
			t.Errorf("StripConstraint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDesc(t *testing.T) {
	desc := "%NAME%\nfoo\n\n%VERSION%\n1.0-1\n\n%DEPENDS%\nbar>=1.0\nbaz\n\n%LICENSE%\nMIT\nApache\n"
	st := ParseDesc([]byte(desc))

	want := Stanzas{
		"NAME":    {"foo"},
		"VERSION": {"1.0-1"},
		"DEPENDS": {"bar>=1.0", "baz"},
		"LICENSE": {"MIT", "Apache"},
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("ParseDesc mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDesc_TrimsAndSpansBlankLines(t *testing.T) {
	desc := "%NAME%\n foo \r\n\n%DEPENDS%\nbar\n\n\tbaz\n%DESC%\n\n  a tool\n"
	st := ParseDesc([]byte(desc))

	want := Stanzas{
		"NAME":    {"foo"},
		"DEPENDS": {"bar", "baz"},
		"DESC":    {"a tool"},
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("ParseDesc mismatch (-want +got):\n%s", diff)
	}
}

const fooDesc = `%FILENAME%
foo-1.0-1-x86_64.pkg.tar.zst

%NAME%
foo

%VERSION%
1.0-1

%DESC%
The foo utility

%CSIZE%
12345

%ISIZE%
40000

%SHA256SUM%
abc123

%MD5SUM%
d41d8

%URL%
https://foo.example

%LICENSE%
MIT

%ARCH%
x86_64

%BUILDDATE%
1700000000

%PACKAGER%
Jane Doe <jane@example.org>

%DEPENDS%
bar>=1.0
`

func TestParseRepoDB(t *testing.T) {
	db := gzipBytes(t, buildTar(t, map[string]string{
		"foo-1.0-1/desc":  fooDesc,
		"broken-1/desc":   "%NAME%\nbroken\n",
		"baz-2.0-3/desc":  "%NAME%\nbaz\n\n%VERSION%\n2.0-3\n\n%MD5SUM%\nffff\n",
		"baz-2.0-3/files": "%FILES%\nusr/bin/baz\n",
	}))

	pkgs, err := ParseRepoDB(db, "core", "https://mirror.example/core/os/x86_64")
	if err != nil {
		t.Fatalf("ParseRepoDB: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2 (record without VERSION dropped)", len(pkgs))
	}

	baz, foo := pkgs[0], pkgs[1]
	if baz.Name != "baz" || baz.Checksum != "md5:ffff" {
		t.Errorf("baz = %+v", baz)
	}

	if foo.Name != "foo" || foo.Version != "1.0-1" {
		t.Errorf("foo name/version = %s/%s", foo.Name, foo.Version)
	}
	if diff := cmp.Diff([]string{"bar"}, foo.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if foo.Checksum != "sha256:abc123" {
		t.Errorf("Checksum = %q, sha256 should win over md5", foo.Checksum)
	}
	if foo.ArchiveURL != "https://mirror.example/core/os/x86_64/foo-1.0-1-x86_64.pkg.tar.zst" {
		t.Errorf("ArchiveURL = %q", foo.ArchiveURL)
	}
	if foo.Description != "The foo utility" || foo.Homepage != "https://foo.example" || foo.License != "MIT" {
		t.Errorf("text fields = %+v", foo)
	}
	if foo.Extra[ExtraSourceRepo] != "core" {
		t.Errorf("source_repo = %v", foo.Extra[ExtraSourceRepo])
	}
	if foo.Extra[ExtraCompressedSize] != uint64(12345) {
		t.Errorf("csize = %v (%T)", foo.Extra[ExtraCompressedSize], foo.Extra[ExtraCompressedSize])
	}
	if foo.Published == nil || foo.Published.Unix() != 1700000000 {
		t.Errorf("Published = %v", foo.Published)
	}
	if len(foo.Maintainers) != 1 {
		t.Errorf("Maintainers = %v", foo.Maintainers)
	}
}

func TestParseRepoDB_LegacyDependsFile(t *testing.T) {
	db := buildTar(t, map[string]string{
		"foo-1.0-1/desc":    "%NAME%\nfoo\n\n%VERSION%\n1.0-1\n",
		"foo-1.0-1/depends": "%DEPENDS%\nglibc\nzlib>=1.3\n",
	})

	pkgs, err := ParseRepoDB(db, "extra", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages", len(pkgs))
	}
	if diff := cmp.Diff([]string{"glibc", "zlib"}, pkgs[0].Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if pkgs[0].ArchiveURL != "" {
		t.Errorf("ArchiveURL = %q, want empty without mirror", pkgs[0].ArchiveURL)
	}
}

func TestParseRepoDB_Zstd(t *testing.T) {
	db := zstdBytes(t, buildTar(t, map[string]string{"foo-1.0-1/desc": fooDesc}))
	pkgs, err := ParseRepoDB(db, "cachyos-v3", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 || pkgs[0].Extra[ExtraSourceRepo] != "cachyos-v3" {
		t.Errorf("pkgs = %+v", pkgs)
	}
}

func TestParseRepoDB_Garbage(t *testing.T) {
	_, err := ParseRepoDB(bytes.Repeat([]byte("garbage!"), 100), "core", "")
	if err == nil {
		t.Fatal("expected error")
	}
}

const repomdXML = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo" xmlns:rpm="http://linux.duke.edu/metadata/rpm">
  <revision>1712345678</revision>
  <data type="filelists">
    <location href="repodata/abc-filelists.xml.zst"/>
  </data>
  <data type="primary">
    <checksum type="sha256">deadbeef</checksum>
    <location href="repodata/def-primary.xml.zst"/>
    <size>1024</size>
  </data>
</repomd>`

func TestParseRepomd(t *testing.T) {
	r, err := ParseRepomd([]byte(repomdXML))
	if err != nil {
		t.Fatal(err)
	}
	href, ok := r.Location("primary")
	if !ok || href != "repodata/def-primary.xml.zst" {
		t.Errorf("Location(primary) = %q, %v", href, ok)
	}
	if _, ok := r.Location("other"); ok {
		t.Error("unexpected location for missing type")
	}
}

const primaryXML = `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="3">
<package type="rpm">
  <name>curl</name>
  <arch>x86_64</arch>
  <version epoch="0" ver="8.9.1" rel="1.1"/>
  <checksum type="sha256" pkgid="YES">c0ffee</checksum>
  <summary>A Tool for Transferring Data from URLs</summary>
  <description>Long text</description>
  <packager>https://bugs.opensuse.org</packager>
  <url>https://curl.se</url>
  <time file="1712000000" build="1711000000"/>
  <size package="250000" installed="500000" archive="510000"/>
  <location href="x86_64/curl-8.9.1-1.1.x86_64.rpm"/>
  <format>
    <rpm:license>curl</rpm:license>
    <rpm:group>Productivity/Networking/Web/Utilities</rpm:group>
    <rpm:sourcerpm>curl-8.9.1-1.1.src.rpm</rpm:sourcerpm>
    <rpm:provides>
      <rpm:entry name="curl" flags="EQ" epoch="0" ver="8.9.1" rel="1.1"/>
    </rpm:provides>
    <rpm:requires>
      <rpm:entry name="libcurl4" flags="EQ" epoch="0" ver="8.9.1"/>
      <rpm:entry name="/bin/sh"/>
      <rpm:entry name="rpmlib(PayloadIsZstd)"/>
      <rpm:entry name="libc.so.6(GLIBC_2.34)(64bit)"/>
      <rpm:entry name="libcurl4"/>
    </rpm:requires>
  </format>
</package>
<package type="rpm">
  <name>curl</name>
  <arch>src</arch>
  <version epoch="0" ver="8.9.1" rel="1.1"/>
</package>
<package type="rpm">
  <name>vim</name>
  <arch>x86_64</arch>
  <version epoch="2" ver="9.1" rel="3"/>
  <checksum type="sha">0123</checksum>
</package>
</metadata>`

func TestParsePrimary(t *testing.T) {
	pkgs, err := ParsePrimary(zstdBytes(t, []byte(primaryXML)), "tumbleweed-oss", "https://download.example/tumbleweed/repo/oss")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2 (src skipped)", len(pkgs))
	}

	curl := pkgs[0]
	if curl.Version != "8.9.1-1.1" {
		t.Errorf("Version = %q", curl.Version)
	}
	if curl.Checksum != "sha256:c0ffee" {
		t.Errorf("Checksum = %q", curl.Checksum)
	}
	if curl.License != "curl" || curl.Homepage != "https://curl.se" {
		t.Errorf("License/Homepage = %q/%q", curl.License, curl.Homepage)
	}
	if diff := cmp.Diff([]string{"libcurl4"}, curl.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if curl.ArchiveURL != "https://download.example/tumbleweed/repo/oss/x86_64/curl-8.9.1-1.1.x86_64.rpm" {
		t.Errorf("ArchiveURL = %q", curl.ArchiveURL)
	}
	if diff := cmp.Diff([]string{"curl"}, curl.Extra[ExtraProvides]); diff != "" {
		t.Errorf("provides mismatch (-want +got):\n%s", diff)
	}
	if curl.Extra[ExtraSourceRepo] != "tumbleweed-oss" {
		t.Errorf("source_repo = %v", curl.Extra[ExtraSourceRepo])
	}

	vim := pkgs[1]
	if vim.Version != "2:9.1-3" {
		t.Errorf("vim Version = %q, want epoch prefix", vim.Version)
	}
	if vim.Checksum != "sha1:0123" {
		t.Errorf("vim Checksum = %q", vim.Checksum)
	}
}

const indexPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple Computer//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>python3-requests</key>
	<dict>
		<key>pkgver</key>
		<string>python3-requests-2.31.0_1</string>
		<key>short_desc</key>
		<string>HTTP library for Python</string>
		<key>homepage</key>
		<string>https://requests.readthedocs.io</string>
		<key>license</key>
		<string>Apache-2.0</string>
		<key>maintainer</key>
		<string>Someone &lt;someone@example.org&gt;</string>
		<key>architecture</key>
		<string>noarch</string>
		<key>build-date</key>
		<string>2024-01-15 10:30 UTC</string>
		<key>filename-sha256</key>
		<string>feedface</string>
		<key>filename-size</key>
		<integer>123456</integer>
		<key>run_depends</key>
		<array>
			<string>python3&gt;=3.8_1</string>
			<string>python3-urllib3&gt;=0</string>
		</array>
	</dict>
	<key>zlib</key>
	<dict>
		<key>pkgver</key>
		<string>zlib-1.3.1_1</string>
		<key>architecture</key>
		<string>x86_64</string>
	</dict>
</dict>
</plist>`

func TestParseXBPSIndex(t *testing.T) {
	repodata := zstdBytes(t, buildTar(t, map[string]string{
		"index-meta.plist": "<plist/>",
		"index.plist":      indexPlist,
	}))

	pkgs, err := ParseXBPSIndex(repodata, "current", "https://repo.example/current")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages", len(pkgs))
	}

	req := pkgs[0]
	if req.Name != "python3-requests" || req.Version != "2.31.0_1" {
		t.Errorf("name/version = %s/%s", req.Name, req.Version)
	}
	if diff := cmp.Diff([]string{"python3", "python3-urllib3"}, req.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if req.ArchiveURL != "https://repo.example/current/python3-requests-2.31.0_1.noarch.xbps" {
		t.Errorf("ArchiveURL = %q", req.ArchiveURL)
	}
	if req.Checksum != "sha256:feedface" {
		t.Errorf("Checksum = %q", req.Checksum)
	}
	if req.Published == nil || req.Published.Year() != 2024 {
		t.Errorf("Published = %v", req.Published)
	}
	if pkgs[1].Name != "zlib" || pkgs[1].Extra[ExtraSourceRepo] != "current" {
		t.Errorf("zlib = %+v", pkgs[1])
	}
}

func TestParseXBPSIndex_MissingPlist(t *testing.T) {
	_, err := ParseXBPSIndex(buildTar(t, map[string]string{"other": "x"}), "current", "")
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("err = %v, want PARSE_ERROR", err)
	}
}

func TestSplitPkgVer(t *testing.T) {
	tests := []struct{ in, name, version string }{
		{"python3-requests-2.31.0_1", "python3-requests", "2.31.0_1"},
		{"zlib-1.3.1_1", "zlib", "1.3.1_1"},
		{"noversion", "noversion", ""},
		{"trailing-", "trailing-", ""},
	}
	for _, tt := range tests {
		name, version := SplitPkgVer(tt.in)
		if name != tt.name || version != tt.version {
			t.Errorf("SplitPkgVer(%q) = %q, %q", tt.in, name, version)
		}
	}
}
