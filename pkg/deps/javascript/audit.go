package javascript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

// advisory is the npm v6 advisory shape, still emitted by pnpm audit and by
// yarn classic's auditAdvisory events.
type advisory struct {
	ID              int      `json:"id"`
	ModuleName      string   `json:"module_name"`
	Severity        string   `json:"severity"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	CVEs            []string `json:"cves"`
	PatchedVersions string   `json:"patched_versions"`
	Findings        []struct {
		Version string `json:"version"`
	} `json:"findings"`
}

func (a advisory) vulnerabilities() []deps.Vulnerability {
	v := deps.Vulnerability{
		Package:  a.ModuleName,
		Severity: a.Severity,
		Title:    a.Title,
		URL:      a.URL,
		FixedIn:  a.PatchedVersions,
	}
	if v.FixedIn == "<0.0.0" {
		v.FixedIn = ""
	}
	if len(a.CVEs) > 0 {
		v.CVE = a.CVEs[0]
	}
	if len(a.Findings) == 0 {
		return []deps.Vulnerability{v}
	}
	out := make([]deps.Vulnerability, 0, len(a.Findings))
	seen := make(map[string]bool)
	for _, f := range a.Findings {
		if seen[f.Version] {
			continue
		}
		seen[f.Version] = true
		v.Version = f.Version
		out = append(out, v)
	}
	return out
}

// parsePnpmAudit decodes `pnpm audit --json`.
func parsePnpmAudit(data []byte) ([]deps.Vulnerability, error) {
	var r struct {
		Advisories map[string]advisory `json:"advisories"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "decode pnpm audit output")
	}
	var out []deps.Vulnerability
	for _, id := range sortedKeys(r.Advisories) {
		out = append(out, r.Advisories[id].vulnerabilities()...)
	}
	return out, nil
}

// parseYarnAudit decodes the newline-delimited events of
// `yarn audit --json`, keeping auditAdvisory events.
func parseYarnAudit(data []byte) ([]deps.Vulnerability, error) {
	var out []deps.Vulnerability
	seen := make(map[int]bool)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev struct {
			Type string `json:"type"`
			Data struct {
				Advisory advisory `json:"advisory"`
			} `json:"data"`
		}
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "decode yarn audit output")
		}
		if ev.Type != "auditAdvisory" || seen[ev.Data.Advisory.ID] {
			continue
		}
		seen[ev.Data.Advisory.ID] = true
		out = append(out, ev.Data.Advisory.vulnerabilities()...)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "read yarn audit output")
	}
	return out, nil
}

// parseNpmAudit decodes `npm audit --json` (npm 7 and later). Packages that
// are only vulnerable through a dependency carry no advisory of their own and
// are reported with the names of the packages they pull in.
func parseNpmAudit(data []byte, installed func(string) string) ([]deps.Vulnerability, error) {
	var r struct {
		Vulnerabilities map[string]struct {
			Name         string            `json:"name"`
			Severity     string            `json:"severity"`
			Via          []json.RawMessage `json:"via"`
			FixAvailable json.RawMessage   `json:"fixAvailable"`
		} `json:"vulnerabilities"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "decode npm audit output")
	}

	var out []deps.Vulnerability
	for _, name := range sortedKeys(r.Vulnerabilities) {
		entry := r.Vulnerabilities[name]
		v := deps.Vulnerability{Package: name, Severity: entry.Severity}
		if installed != nil {
			v.Version = installed(name)
		}
		var fix struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if json.Unmarshal(entry.FixAvailable, &fix) == nil && fix.Name == name {
			v.FixedIn = fix.Version
		}

		var through []string
		for _, raw := range entry.Via {
			var src struct {
				Source int    `json:"source"`
				Title  string `json:"title"`
				URL    string `json:"url"`
			}
			var dep string
			switch {
			case json.Unmarshal(raw, &dep) == nil:
				through = append(through, dep)
			case json.Unmarshal(raw, &src) == nil && v.Title == "":
				v.Title = src.Title
				v.URL = src.URL
				if v.URL == "" && src.Source != 0 {
					v.URL = "https://github.com/advisories?query=" + strconv.Itoa(src.Source)
				}
			}
		}
		if v.Title == "" && len(through) > 0 {
			sort.Strings(through)
			v.Title = "vulnerable through " + strings.Join(through, ", ")
		}
		out = append(out, v)
	}
	return out, nil
}
