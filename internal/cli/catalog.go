package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/index/indexes"
)

// addIndexFlags registers --index and the per-index repository settings.
// The settings fall back to "<index>.channel" and friends in the config file.
func addIndexFlags(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "index", "i", "", "package index ("+strings.Join(indexes.Names(), ", ")+")")
	cmd.Flags().String("channel", "", `repositories to load: "stable", "all", or a comma-separated list`)
	cmd.Flags().String("mirror", "", "mirror base URL (maven: extra repository roots)")
	cmd.Flags().String("arch", "", "architecture for distribution indexes")
	cmd.Flags().String("libc", "", "glibc or musl (void only)")
	_ = cmd.MarkFlagRequired("index")
	_ = cmd.RegisterFlagCompletionFunc("index", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return indexes.Names(), cobra.ShellCompDirectiveNoFileComp
	})
}

// =============================================================================
// info
// =============================================================================

func (c *CLI) infoCommand() *cobra.Command {
	var (
		idxName string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "info <package>",
		Short: "Show the latest metadata of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := c.openIndex(cmd.Context(), cmd, idxName)
			if err != nil {
				return err
			}
			meta, err := c.fetch(cmd.Context(), idx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), meta)
			}
			printMeta(cmd, meta)
			return nil
		},
	}
	addIndexFlags(cmd, &idxName)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *CLI) fetch(ctx context.Context, idx index.PackageIndex, name string) (*index.PackageMeta, error) {
	spin := newSpinner(ctx, fmt.Sprintf("Fetching %s from %s", name, idx.Name()))
	spin.Start()
	defer spin.Stop()
	return idx.Fetch(ctx, name)
}

func printMeta(cmd *cobra.Command, m *index.PackageMeta) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, StyleTitle.Render(m.Name)+" "+StyleValue.Render(m.Version))
	if m.Description != "" {
		fmt.Fprintln(w, StyleDim.Render(m.Description))
	}
	fmt.Fprintln(w)
	printKeyValue(w, "License", m.License)
	printKeyValue(w, "Homepage", link(m.Homepage))
	printKeyValue(w, "Repository", link(m.Repository))
	printKeyValue(w, "Maintainers", strings.Join(m.Maintainers, ", "))
	printKeyValue(w, "Keywords", strings.Join(m.Keywords, ", "))
	if m.Published != nil {
		printKeyValue(w, "Published", m.Published.Format(time.DateOnly))
	}
	if m.Downloads > 0 {
		printKeyValue(w, "Downloads", strconv.FormatUint(m.Downloads, 10))
	}
	printKeyValue(w, "Archive", m.ArchiveURL)
	printKeyValue(w, "Checksum", m.Checksum)
	printKeyValue(w, "Repo", m.ExtraString("source_repo"))
	if len(m.Dependencies) > 0 {
		printKeyValue(w, "Dependencies", fmt.Sprintf("%d", len(m.Dependencies)))
		for _, d := range m.Dependencies {
			fmt.Fprintln(w, "  "+StyleDim.Render(iconInfo)+" "+d)
		}
	}
}

// =============================================================================
// versions
// =============================================================================

func (c *CLI) versionsCommand() *cobra.Command {
	var (
		idxName string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "versions <package>",
		Short: "List the published versions of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := c.openIndex(ctx, cmd, idxName)
			if err != nil {
				return err
			}
			spin := newSpinner(ctx, fmt.Sprintf("Fetching versions of %s", args[0]))
			spin.Start()
			versions, err := idx.FetchVersions(ctx, args[0])
			spin.Stop()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), versions)
			}
			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				released := ""
				if v.Released != nil {
					released = v.Released.Format(time.DateOnly)
				}
				yanked := ""
				if v.Yanked {
					yanked = StyleWarning.Render("yanked")
				}
				rows = append(rows, []string{v.Version, released, yanked})
			}
			printTable(cmd.OutOrStdout(), []string{"Version", "Released", ""}, rows)
			return nil
		},
	}
	addIndexFlags(cmd, &idxName)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// =============================================================================
// search
// =============================================================================

func (c *CLI) searchCommand() *cobra.Command {
	var (
		idxName     string
		asJSON      bool
		interactive bool
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a package index",
		Long: `Search a package index by name and description.

With --interactive the results open in a picker; the selected package's
metadata is printed on enter.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := c.openIndex(ctx, cmd, idxName)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			spin := newSpinner(ctx, fmt.Sprintf("Searching %s for %q", idx.Name(), query))
			spin.Start()
			results, err := idx.Search(ctx, query)
			spin.Stop()
			if err != nil {
				return err
			}
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			if asJSON {
				if results == nil {
					results = []index.PackageMeta{}
				}
				return writeJSON(cmd.OutOrStdout(), results)
			}
			if len(results) == 0 {
				printInfo("No packages match %q", query)
				return nil
			}
			if interactive {
				return c.pick(cmd, idx, results)
			}
			rows := make([][]string, 0, len(results))
			for _, m := range results {
				rows = append(rows, []string{m.Name, m.Version, truncate(m.Description, 60)})
			}
			printTable(cmd.OutOrStdout(), []string{"Package", "Version", "Description"}, rows)
			return nil
		},
	}
	addIndexFlags(cmd, &idxName)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "I", false, "pick a result interactively")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results shown (0 for all)")
	return cmd
}

// pick runs the interactive picker and prints the chosen package.
func (c *CLI) pick(cmd *cobra.Command, idx index.PackageIndex, results []index.PackageMeta) error {
	final, err := tea.NewProgram(NewPackageListModel(idx.Name(), results), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "run picker")
	}
	m, ok := final.(PackageListModel)
	if !ok || m.Selected == nil {
		return nil
	}
	meta, err := c.fetch(cmd.Context(), idx, m.Selected.Name)
	if err != nil {
		return err
	}
	printMeta(cmd, meta)
	return nil
}

// =============================================================================
// list
// =============================================================================

func (c *CLI) listCommand() *cobra.Command {
	var (
		idxName string
		filter  string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every package of a distribution index",
		Long: `List the full catalog of a bounded index such as a Linux distribution.

Repository databases are downloaded in parallel; a repository that fails to
load is reported and skipped.`,
		Example: `  depscope list -i arch --channel all --filter rust
  depscope list -i void --libc musl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !indexes.SupportsFetchAll(idxName) {
				return index.ErrFetchAllUnsupported(idxName)
			}
			idx, err := c.openIndex(ctx, cmd, idxName)
			if err != nil {
				return err
			}
			spin := newSpinner(ctx, "Loading "+idx.Name()+" repositories")
			spin.Start()
			prog := newProgress(c.Logger)
			pkgs, err := idx.FetchAll(ctx)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Loaded %d packages", len(pkgs)))
			if filter != "" {
				pkgs = index.Filter(pkgs, filter)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, pkgs)
			}
			for _, m := range pkgs {
				fmt.Fprintf(out, "%s %s %s\n", m.Name, StyleValue.Render(m.Version), StyleDim.Render(m.ExtraString("source_repo")))
			}
			return nil
		},
	}
	addIndexFlags(cmd, &idxName)
	cmd.Flags().StringVar(&filter, "filter", "", "only list packages matching this term")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// =============================================================================
// indexes
// =============================================================================

func (c *CLI) indexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "List the available package indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := [][]string{}
			for _, n := range indexes.Names() {
				list := ""
				if indexes.SupportsFetchAll(n) {
					list = iconSuccess
				}
				rows = append(rows, []string{n, list})
			}
			printTable(cmd.OutOrStdout(), []string{"Index", "List"}, rows)
			return nil
		},
	}
}

func link(url string) string {
	if url == "" {
		return ""
	}
	return StyleLink.Render(url)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
