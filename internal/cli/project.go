package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/deps/ecosystems"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index/indexes"
	"github.com/matzehuels/depscope/pkg/outdated"
	"github.com/matzehuels/depscope/pkg/render/dot"
)

// Tree output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// addEcosystemFlag registers --ecosystem on project commands.
func addEcosystemFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "ecosystem", "e", "", "ecosystem to use instead of detecting it ("+strings.Join(ecosystems.Names(), ", ")+")")
	_ = cmd.RegisterFlagCompletionFunc("ecosystem", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return ecosystems.Names(), cobra.ShellCompDirectiveNoFileComp
	})
}

// =============================================================================
// deps
// =============================================================================

func (c *CLI) depsCommand() *cobra.Command {
	var (
		eco    string
		asJSON bool
		noDev  bool
	)
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "List the dependencies a project's manifest declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, root, err := c.openEcosystem(eco, 0)
			if err != nil {
				return err
			}
			list, err := e.ListDependencies(root)
			if err != nil {
				return err
			}
			if noDev {
				list = withoutDev(list)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				printInfo("No dependencies declared")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, d := range list {
				rows = append(rows, []string{d.Name, d.VersionReq, dependencyKind(d)})
			}
			printTable(out, []string{"Package", "Requirement", "Kind"}, rows)
			return nil
		},
	}
	addEcosystemFlag(cmd, &eco)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&noDev, "no-dev", false, "omit development dependencies")
	return cmd
}

func dependencyKind(d deps.Dependency) string {
	switch {
	case d.Dev:
		return "dev"
	case d.Optional:
		return "optional"
	default:
		return "normal"
	}
}

func withoutDev(list []deps.Dependency) []deps.Dependency {
	out := list[:0:0]
	for _, d := range list {
		if !d.Dev {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// tree
// =============================================================================

type treeOptions struct {
	ecosystem string
	format    string
	output    string
	depth     int
	remote    string
	index     string
	maxNodes  int
	detailed  bool
}

func (c *CLI) treeCommand() *cobra.Command {
	var opts treeOptions
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the resolved dependency tree",
		Long: `Print the dependency tree built from the project's lockfile.

With --remote the tree of a published package is crawled from a package index
instead, following each package's latest version.`,
		Example: `  depscope tree
  depscope tree --format svg -o deps.svg
  depscope tree --remote serde --index crates --depth 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd, opts)
		},
	}
	addEcosystemFlag(cmd, &opts.ecosystem)
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format: text, json, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().IntVar(&opts.depth, "depth", deps.DefaultMaxDepth, "maximum tree depth")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "crawl this package from a package index")
	cmd.Flags().StringVarP(&opts.index, "index", "i", "", "package index for --remote (default: the project's)")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", deps.DefaultMaxNodes, "maximum packages fetched by --remote")
	cmd.Flags().BoolVar(&opts.detailed, "versions", true, "show versions in dot and svg output")
	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, opts treeOptions) error {
	ctx := cmd.Context()

	var (
		tree *deps.DependencyTree
		err  error
	)
	if opts.remote != "" {
		tree, err = c.crawlTree(ctx, cmd, opts)
	} else {
		var e deps.Ecosystem
		var root string
		e, root, err = c.openEcosystem(opts.ecosystem, opts.depth)
		if err == nil {
			tree, err = e.DependencyTree(root)
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", opts.output)
		}
		defer f.Close()
		out = f
	}

	switch opts.format {
	case formatText:
		printTree(out, tree.Roots)
	case formatJSON:
		if err := writeJSON(out, tree); err != nil {
			return err
		}
	case formatDOT, formatSVG:
		src := dot.ToDOT(tree.Roots, dot.Options{Detailed: opts.detailed, Title: tree.Lockfile})
		if opts.format == formatDOT {
			_, err = fmt.Fprint(out, src)
			break
		}
		svg, err := dot.RenderSVG(ctx, src)
		if err != nil {
			return err
		}
		if _, err := out.Write(svg); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", opts.format).
			WithHint("use text, json, dot or svg")
	}
	if err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Wrote %s tree", opts.format)
		printFile(opts.output)
	}
	return nil
}

// crawlTree resolves --remote against a package index.
func (c *CLI) crawlTree(ctx context.Context, cmd *cobra.Command, opts treeOptions) (*deps.DependencyTree, error) {
	name := opts.index
	if name == "" {
		e, _, err := c.openEcosystem(opts.ecosystem, opts.depth)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "no package index for --remote").
				WithHint("pass --index, e.g. --index crates")
		}
		name = indexes.ForEcosystem(e.Name())
	}
	idx, err := c.openIndex(ctx, cmd, name)
	if err != nil {
		return nil, err
	}

	spin := newSpinner(ctx, fmt.Sprintf("Crawling %s from %s", opts.remote, idx.Name()))
	spin.Start()
	prog := newProgress(c.Logger)
	graph, err := deps.Crawl(ctx, idx, opts.remote, deps.Options{
		MaxDepth: opts.depth,
		MaxNodes: opts.maxNodes,
		Logger:   c.Logger,
	})
	spin.Stop()
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Crawled %d packages", len(graph)))

	return &deps.DependencyTree{
		Ecosystem: idx.Name(),
		Roots:     graph.Materialize([]string{opts.remote}, opts.depth),
	}, nil
}

// =============================================================================
// installed
// =============================================================================

func (c *CLI) installedCommand() *cobra.Command {
	var eco string
	cmd := &cobra.Command{
		Use:   "installed <package>",
		Short: "Print the locked version of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, root, err := c.openEcosystem(eco, 0)
			if err != nil {
				return err
			}
			v, err := e.InstalledVersion(root, args[0])
			if err != nil {
				return err
			}
			if v == "" {
				printWarning("%s is not in the lockfile", args[0])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	addEcosystemFlag(cmd, &eco)
	return cmd
}

// =============================================================================
// audit
// =============================================================================

func (c *CLI) auditCommand() *cobra.Command {
	var (
		eco    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Scan locked dependencies for known vulnerabilities",
		Long: `Run the ecosystem's vulnerability scanner: cargo audit for Cargo projects,
and npm, pnpm or yarn audit for Node projects depending on the lockfile.
Deno and bun projects report no findings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, root, err := c.openEcosystem(eco, 0)
			if err != nil {
				return err
			}
			spin := newSpinner(cmd.Context(), "Auditing "+e.Name()+" dependencies")
			spin.Start()
			res, err := e.Audit(cmd.Context(), root)
			spin.Stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			if len(res.Vulnerabilities) == 0 {
				if res.Tool == "" {
					printInfo("No audit tool for %s projects", e.Name())
				} else {
					printSuccess("No known vulnerabilities (%s)", res.Tool)
				}
				return nil
			}
			rows := make([][]string, 0, len(res.Vulnerabilities))
			for _, v := range res.Vulnerabilities {
				id := v.CVE
				if id == "" {
					id = v.URL
				}
				rows = append(rows, []string{
					v.Package, v.Version, severityStyle(v.Severity).Render(v.Severity), v.Title, v.FixedIn, id,
				})
			}
			printTable(out, []string{"Package", "Version", "Severity", "Title", "Fixed in", "Advisory"}, rows)
			printWarning("%d vulnerabilities found by %s", len(res.Vulnerabilities), res.Tool)
			return nil
		},
	}
	addEcosystemFlag(cmd, &eco)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// =============================================================================
// outdated
// =============================================================================

func (c *CLI) outdatedCommand() *cobra.Command {
	var (
		eco     string
		idxName string
		asJSON  bool
		noDev   bool
	)
	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "Compare locked versions with the latest published ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, root, err := c.openEcosystem(eco, 0)
			if err != nil {
				return err
			}
			list, err := e.ListDependencies(root)
			if err != nil {
				return err
			}
			if noDev {
				list = withoutDev(list)
			}

			name := idxName
			if name == "" {
				name = indexes.ForEcosystem(e.Name())
			}
			idx, err := c.openIndex(ctx, cmd, name)
			if err != nil {
				return err
			}

			spin := newSpinner(ctx, fmt.Sprintf("Checking %d packages against %s", len(list), idx.Name()))
			spin.Start()
			prog := newProgress(c.Logger)
			report, err := outdated.Check(ctx, e, idx, root, list, outdated.Options{Logger: c.Logger})
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Checked %d packages", report.Checked))
			report.SortByName()

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, report)
			}
			printOutdated(cmd, report)
			return nil
		},
	}
	addEcosystemFlag(cmd, &eco)
	cmd.Flags().StringVarP(&idxName, "index", "i", "", "package index to compare against (default: the ecosystem's registry)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&noDev, "no-dev", false, "omit development dependencies")
	return cmd
}

func printOutdated(cmd *cobra.Command, report *outdated.Report) {
	if len(report.Outdated) == 0 {
		printSuccess("All %d dependencies are up to date", report.Checked-len(report.Errors))
	} else {
		rows := make([][]string, 0, len(report.Outdated))
		for _, p := range report.Outdated {
			installed := p.Installed
			if installed == "" {
				installed = StyleDim.Render("not installed")
			}
			name := p.Name
			if p.Dev {
				name += StyleDim.Render(" (dev)")
			}
			rows = append(rows, []string{name, installed, StyleSuccess.Render(p.Latest)})
		}
		printTable(cmd.OutOrStdout(), []string{"Package", "Installed", "Latest"}, rows)
	}
	for _, f := range report.Errors {
		printError("%s: %s", f.Name, errors.UserMessage(f.Err))
	}
}
