package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/census-mcp/internal/census"
	"github.com/dshills/census-mcp/internal/storage"
	"github.com/dshills/census-mcp/pkg/manifold"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the censuses and whether their catalogs are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd.Context())
		if err != nil {
			return err
		}
		defer reg.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CENSUS\tKIND\tROWS\tDESCRIPTION")
		for _, st := range reg.Status() {
			rows := "unavailable"
			if st.Available {
				rows = fmt.Sprint(st.Length)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Census.ID, st.Census.Kind, rows, st.Census.Description)
		}
		return w.Flush()
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Print the stored triangulation of a manifold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")

		reg, err := openRegistry(cmd.Context())
		if err != nil {
			return err
		}
		defer reg.Close()

		lookup, err := reg.Lookup(census.LookupID(group))
		if err != nil {
			return err
		}
		entry, err := lookup.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := map[string]interface{}{
			"name":       args[0],
			"use_string": entry.UseString,
		}
		if entry.UseString {
			out["triangulation"] = string(entry.Triangulation)
		} else {
			out["triangulation"] = entry.Triangulation
		}
		if entry.Cobs != nil {
			out["peripheral_matrices"] = entry.Cobs
		}
		if entry.Perm != nil {
			out["cusp_permutation"] = entry.Perm
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var getCmd = &cobra.Command{
	Use:   "get [flags] <census> <key>",
	Short: "Print manifolds by index, name or range",
	Long: `Print manifolds of a census. The key is a 0-based index (5), a name (m004),
an index range (3:6, -3:) or a volume range (2.0:2.1).

Flags go before the census, so that keys starting with "-" read as keys:

  census get --betti 1 orientable_cusped -3:`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := census.ParseKey(args[1])
		if err != nil {
			return err
		}

		table, release, err := filteredTable(cmd, args[0])
		if err != nil {
			return err
		}
		defer release()

		found, err := table.Get(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printManifolds(cmd.OutOrStdout(), found)
	},
}

var sliceCmd = &cobra.Command{
	Use:   "slice <census>",
	Short: "Print manifolds by index range or volume range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := rangeFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		table, release, err := filteredTable(cmd, args[0])
		if err != nil {
			return err
		}
		defer release()

		found, err := table.Slice(cmd.Context(), rng)
		if err != nil {
			return err
		}
		return printManifolds(cmd.OutOrStdout(), found)
	},
}

var identifyCmd = &cobra.Command{
	Use:   "identify <source-census> <name> <target-census>",
	Short: "Search a census for a manifold taken from another census",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		extends, _ := cmd.Flags().GetBool("extends-to-link")
		ctx := cmd.Context()

		reg, err := openRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		source, err := reg.Table(census.CensusID(args[0]))
		if err != nil {
			return err
		}
		target, err := reg.Table(census.CensusID(args[2]))
		if err != nil {
			return err
		}

		query, err := source.ByName(ctx, args[1])
		if err != nil {
			return err
		}
		result, err := target.Identify(ctx, query, census.IdentifyOptions{ExtendsToLink: extends})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if result.Outcome == census.Match {
			fmt.Fprintf(out, "%s: match %s\n", args[1], result.Manifold.Name())
			return nil
		}
		fmt.Fprintf(out, "%s: %s in %s\n", args[1], result.Outcome, target)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Create an empty catalog with the census schema",
	Long: `Create a catalog file with every standard census relation, or bring an
existing one up to the current schema. --reset empties the standard relations
of an existing catalog. --relation adds a further relation of the given shape.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reset, _ := cmd.Flags().GetBool("reset")
		extra, _ := cmd.Flags().GetString("relation")
		shapeName, _ := cmd.Flags().GetString("shape")

		shape, err := storage.ParseShape(shapeName)
		if err != nil {
			return err
		}

		w, err := storage.Create(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to create catalog: %w", err)
		}
		if err := provision(ctx, w, reset, storage.Relation{Name: extra, Shape: shape}); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog initialized at %s (schema %s)\n", args[0], storage.CurrentSchemaVersion)
		return nil
	},
}

// provision applies the optional init steps to a freshly opened catalog.
// extra is skipped when it has no name.
func provision(ctx context.Context, w storage.Writer, reset bool, extra storage.Relation) error {
	if reset {
		if err := w.Reset(ctx); err != nil {
			return err
		}
		logger.InfoContext(ctx, "catalog reset")
	}
	if extra.Name != "" {
		if err := w.CreateRelation(ctx, extra); err != nil {
			return err
		}
		logger.InfoContext(ctx, "relation created", "relation", extra.Name, "shape", extra.Shape.String())
	}
	return nil
}

func addQueryCommands(root *cobra.Command) {
	lookupCmd.Flags().String("group", string(census.CuspedManifoldData),
		"Tables to search: cusped, link_exteriors, census_knots, ht_link_exteriors")

	addFilterFlags(getCmd.Flags())
	// Negative ranges such as -3: are keys, not flags
	getCmd.Flags().SetInterspersed(false)
	addFilterFlags(sliceCmd.Flags())
	sliceCmd.Flags().Int("start", 0, "First index, negative counts from the end")
	sliceCmd.Flags().Int("stop", 0, "Index after the last one, negative counts from the end")
	sliceCmd.Flags().Float64("vmin", 0, "Smallest volume (inclusive)")
	sliceCmd.Flags().Float64("vmax", 0, "Largest volume (exclusive)")
	sliceCmd.MarkFlagsMutuallyExclusive("start", "vmin")
	sliceCmd.MarkFlagsMutuallyExclusive("start", "vmax")
	sliceCmd.MarkFlagsMutuallyExclusive("stop", "vmin")
	sliceCmd.MarkFlagsMutuallyExclusive("stop", "vmax")

	identifyCmd.Flags().Bool("extends-to-link", false, "Only accept isometries taking meridians to meridians")

	initCmd.Flags().Bool("reset", false, "Drop every row of the standard relations")
	initCmd.Flags().String("relation", "", "Also create this relation")
	initCmd.Flags().String("shape", storage.CuspedShape.String(), "Layout of --relation: cusped, closed or link")

	root.AddCommand(tablesCmd, lookupCmd, getCmd, sliceCmd, identifyCmd, initCmd)
}

func addFilterFlags(fs *pflag.FlagSet) {
	fs.Int("betti", 0, "Only manifolds with this first Betti number")
	fs.Int("cusps", 0, "Only manifolds with this many cusps")
	fs.Int("tets", 0, "Only manifolds with this many tetrahedra")
	fs.String("filter", "", "Raw SQL predicate, e.g. 'volume > 2.5'")
	fs.Bool("alternating", false, "Link censuses: alternating (true) or non-alternating (false)")
	fs.String("knots-vs-links", "", "Link censuses: knots or links")
	fs.Int("crossings", 0, "Link censuses: number of crossings")
}

// filterFromFlags sets a clause for every filter flag given on the command
// line.
func filterFromFlags(fs *pflag.FlagSet) (census.Filter, error) {
	var f census.Filter
	intFlag := func(name string, dst **int) {
		if fs.Changed(name) {
			n, _ := fs.GetInt(name)
			*dst = &n
		}
	}
	intFlag("betti", &f.Betti)
	intFlag("cusps", &f.Cusps)
	intFlag("tets", &f.Tets)
	intFlag("crossings", &f.Crossings)

	f.Where, _ = fs.GetString("filter")
	if fs.Changed("alternating") {
		b, _ := fs.GetBool("alternating")
		f.Alternating = &b
	}
	f.KnotsVsLinks, _ = fs.GetString("knots-vs-links")
	if f.KnotsVsLinks != "" && f.KnotsVsLinks != "knots" && f.KnotsVsLinks != "links" {
		return census.Filter{}, fmt.Errorf("--knots-vs-links must be knots or links, got %q", f.KnotsVsLinks)
	}
	return f, nil
}

// rangeFromFlags builds an ordinal range from --start/--stop or a volume
// range from --vmin/--vmax. Neither selects every row.
func rangeFromFlags(fs *pflag.FlagSet) (census.Range, error) {
	var start, stop census.Bound
	switch {
	case fs.Changed("start") || fs.Changed("stop"):
		if fs.Changed("start") {
			n, _ := fs.GetInt("start")
			start = census.Ordinal(n)
		}
		if fs.Changed("stop") {
			n, _ := fs.GetInt("stop")
			stop = census.Ordinal(n)
		}
	case fs.Changed("vmin") || fs.Changed("vmax"):
		if fs.Changed("vmin") {
			v, _ := fs.GetFloat64("vmin")
			start = census.Volume(v)
		}
		if fs.Changed("vmax") {
			v, _ := fs.GetFloat64("vmax")
			stop = census.Volume(v)
		}
	}
	return census.NewRange(start, stop)
}

// filteredTable opens the registry and returns the named census narrowed by
// the command's filter flags. release closes everything.
func filteredTable(cmd *cobra.Command, id string) (*census.Table, func(), error) {
	filter, err := filterFromFlags(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	reg, err := openRegistry(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	table, err := reg.Table(census.CensusID(id))
	if err != nil {
		_ = reg.Close()
		return nil, nil, err
	}
	if filter.IsZero() {
		return table, func() { _ = reg.Close() }, nil
	}

	narrowed, err := table.Configure(cmd.Context(), filter)
	if err != nil {
		_ = reg.Close()
		return nil, nil, err
	}
	return narrowed, func() {
		_ = errors.Join(narrowed.Close(), reg.Close())
	}, nil
}

func printManifolds(w io.Writer, ms []manifold.Manifold) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range ms {
		desc := m.Name()
		if s, ok := m.(fmt.Stringer); ok {
			desc = s.String()
		}
		fmt.Fprintf(tw, "%s\t%d cusps\t%s\n", m.Name(), m.NumCusps(), desc)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
