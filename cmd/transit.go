package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/filter"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/transit"
)

var transitFilters filterFlags

var transitCmd = &cobra.Command{
	Use:   "transit",
	Short: "Compute transit times from an origin to the matching schools",
	Long:  "Applies the search filters around --lat/--lng and asks the Google Distance Matrix for Monday-morning transit durations to every located match, in batches of up to 25.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("transit"); err != nil {
			return err
		}
		agg, err := newAggregator(cfg, newGoogleClient(cfg))
		if err != nil {
			return err
		}

		f, err := transitFilters.filters(cmd)
		if err != nil {
			return err
		}
		schools, err := newLoader(cfg, newGSIClient(cfg)).Load(ctx)
		if err != nil {
			return err
		}
		hits := filter.Apply(schools, f)
		candidates := make([]model.School, len(hits))
		for i, h := range hits {
			candidates[i] = h.School
		}

		log := zap.L().With(zap.String("command", "transit"))
		res := agg.Compute(ctx, f.Origin, candidates, func(r transit.Result) {
			log.Info("transit progress",
				zap.Int("done", r.Progress.Done),
				zap.Int("total", r.Progress.Total),
				zap.Int("resolved", len(r.Results)),
			)
		})
		log.Info("transit complete",
			zap.String("state", string(res.State)),
			zap.Int("candidates", len(candidates)),
			zap.Int("resolved", len(res.Results)),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	},
}

func init() {
	transitFilters.register(transitCmd)
	_ = transitCmd.MarkFlagRequired("lat")
	_ = transitCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(transitCmd)
}
