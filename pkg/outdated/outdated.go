// Package outdated compares a project's locked versions against the latest
// versions its package index reports.
package outdated

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
)

// Package is one dependency whose locked version differs from the latest.
// Installed is "" when the project does not lock the dependency.
type Package struct {
	Name      string `json:"name"`
	Installed string `json:"installed"`
	Latest    string `json:"latest"`
	Dev       bool   `json:"dev,omitempty"`
}

// Failure records a dependency that could not be checked.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string { return f.Name + ": " + f.Err.Error() }

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		Code  string `json:"code,omitempty"`
		Error string `json:"error"`
	}{f.Name, string(errors.GetCode(f.Err)), errors.UserMessage(f.Err)})
}

// Report is the result of a [Check]. Outdated and Errors follow the order of
// the dependencies passed in.
type Report struct {
	Outdated []Package `json:"outdated"`
	Errors   []Failure `json:"errors,omitempty"`
	Checked  int       `json:"checked"`
}

// Options configures a check.
type Options struct {
	Logger *log.Logger
}

// Check looks up every dependency: its installed version in root through eco
// and its latest version through idx. A dependency is outdated when it is
// not installed or when the two version strings differ; versions are not
// parsed. A failure for one dependency is recorded in Report.Errors and
// never stops the others. Only cancellation of ctx aborts the check.
func Check(ctx context.Context, eco deps.Ecosystem, idx index.PackageIndex, root string, dependencies []deps.Dependency, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	report := &Report{Outdated: []Package{}}
	for _, d := range dependencies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkg, err := check(ctx, eco, idx, root, d)
		report.Checked++
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("outdated check failed", "package", d.Name, "err", err)
			report.Errors = append(report.Errors, Failure{Name: d.Name, Err: err})
		case pkg.Installed == "" || pkg.Installed != pkg.Latest:
			report.Outdated = append(report.Outdated, pkg)
		}
	}
	return report, nil
}

func check(ctx context.Context, eco deps.Ecosystem, idx index.PackageIndex, root string, d deps.Dependency) (Package, error) {
	installed, err := eco.InstalledVersion(root, d.Name)
	if err != nil {
		return Package{}, err
	}
	meta, err := idx.Fetch(ctx, d.Name)
	if err != nil {
		return Package{}, err
	}
	return Package{Name: d.Name, Installed: installed, Latest: meta.Version, Dev: d.Dev}, nil
}

// SortByName orders the outdated packages by name.
func (r *Report) SortByName() {
	sort.Slice(r.Outdated, func(i, j int) bool { return r.Outdated[i].Name < r.Outdated[j].Name })
}
