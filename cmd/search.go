package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/filter"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/spatial"
)

var (
	searchFilters filterFlags
	searchFormat  string
	searchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Filter and rank schools from the dataset",
	Long:  "Loads the school dataset (static file or published sheet), applies the filters and prints the matches, nearest first when an origin is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		f, err := searchFilters.filters(cmd)
		if err != nil {
			return err
		}

		schools, err := newLoader(cfg, newGSIClient(cfg)).Load(cmd.Context())
		if err != nil {
			return err
		}

		hits := filter.Apply(schools, f)
		zap.L().Info("search complete",
			zap.Int("total", len(schools)),
			zap.Int("matches", len(hits)),
			zap.Bool("filters_active", f.Active()),
		)
		if searchLimit > 0 && len(hits) > searchLimit {
			hits = hits[:searchLimit]
		}

		switch searchFormat {
		case "json":
			return writeSearchJSON(cmd.OutOrStdout(), hits)
		case "table":
			return writeSearchTable(cmd.OutOrStdout(), hits)
		default:
			return fmt.Errorf("unknown format %q (want json or table)", searchFormat)
		}
	},
}

func writeSearchJSON(w io.Writer, hits []model.SchoolWithDistance) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if hits == nil {
		hits = []model.SchoolWithDistance{}
	}
	return enc.Encode(hits)
}

func writeSearchTable(w io.Writer, hits []model.SchoolWithDistance) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSCORE\tESTABLISHMENT\tTYPE\tAREA\tDISTANCE\tEST. MIN") //nolint:errcheck
	for _, h := range hits {
		score, dist, est := "-", "-", "-"
		if h.Deviation != nil {
			score = strconv.Itoa(*h.Deviation)
		}
		if h.DistanceKm != nil {
			dist = fmt.Sprintf("%.1fkm", *h.DistanceKm)
			est = strconv.Itoa(spatial.EstimateCommuteMinutes(*h.DistanceKm))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", //nolint:errcheck
			h.Key(), h.Name, score, h.Establishment, h.Type, h.Area, dist, est)
	}
	return tw.Flush()
}

func init() {
	searchFilters.register(searchCmd)
	searchCmd.Flags().StringVar(&searchFormat, "format", "table", "output format: table or json")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "print at most this many matches (0 = all)")
	rootCmd.AddCommand(searchCmd)
}
