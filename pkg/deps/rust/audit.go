package rust

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
)

type auditReport struct {
	Vulnerabilities struct {
		Found bool `json:"found"`
		List  []struct {
			Advisory struct {
				ID       string   `json:"id"`
				Package  string   `json:"package"`
				Title    string   `json:"title"`
				URL      string   `json:"url"`
				Aliases  []string `json:"aliases"`
				Severity string   `json:"severity"`
			} `json:"advisory"`
			Versions struct {
				Patched []string `json:"patched"`
			} `json:"versions"`
			Package struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"package"`
		} `json:"list"`
	} `json:"vulnerabilities"`
}

func (e *Ecosystem) Audit(ctx context.Context, root string) (*deps.AuditResult, error) {
	out, err := deps.RunAudit(ctx, e.runner, root, "cargo", "audit", "--json")
	if err != nil {
		if errors.Is(err, errors.ErrCodeToolFailed) && errors.GetHint(err) == "" {
			return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "cargo audit").
				WithHint("install it with `cargo install cargo-audit`")
		}
		return nil, err
	}
	return parseAudit(out)
}

func parseAudit(data []byte) (*deps.AuditResult, error) {
	var r auditReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "decode cargo audit output")
	}

	res := &deps.AuditResult{Tool: "cargo-audit", Vulnerabilities: []deps.Vulnerability{}}
	for _, v := range r.Vulnerabilities.List {
		vuln := deps.Vulnerability{
			Package:  v.Package.Name,
			Version:  v.Package.Version,
			Severity: strings.ToLower(v.Advisory.Severity),
			Title:    v.Advisory.Title,
			URL:      v.Advisory.URL,
		}
		if vuln.Package == "" {
			vuln.Package = v.Advisory.Package
		}
		if vuln.URL == "" && v.Advisory.ID != "" {
			vuln.URL = "https://rustsec.org/advisories/" + v.Advisory.ID
		}
		for _, a := range v.Advisory.Aliases {
			if strings.HasPrefix(a, "CVE-") {
				vuln.CVE = a
				break
			}
		}
		if len(v.Versions.Patched) > 0 {
			vuln.FixedIn = v.Versions.Patched[0]
		}
		res.Vulnerabilities = append(res.Vulnerabilities, vuln)
	}
	return res, nil
}
