package main

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/martinjungblut/imp/internal/scenario"
	"github.com/martinjungblut/imp/observe"
)

func runCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all of them by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := scenario.All
			if len(args) > 0 {
				scenarios = nil
				for _, name := range args {
					s, err := scenario.Find(name)
					if err != nil {
						return err
					}
					scenarios = append(scenarios, s)
				}
			}

			registry := prometheus.NewRegistry()
			observer := observe.Chain(
				observe.Logger(log.Log),
				observe.Prometheus(observe.WithRegistry(registry)),
			)

			failed := run(cmd.OutOrStdout(), scenarios, observer)

			if opts.metrics {
				if err := printMetrics(cmd.OutOrStdout(), registry); err != nil {
					return err
				}
			}

			if failed > 0 {
				return errors.Errorf("%d scenario(s) did not behave as documented", failed)
			}
			return nil
		},
	}
}

// run executes scenarios in order, printing each report; it returns how
// many of them failed.
func run(out io.Writer, scenarios []scenario.Scenario, observer observe.Observer) int {
	failed := 0

	for _, s := range scenarios {
		log.Debugf("running %s", s.Name)
		report := s.Run(observer)

		if report.Passed {
			fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), report.Name)
		} else {
			failed++
			fmt.Fprintf(out, "%s %s\n", color.RedString("✗"), report.Name)
		}

		for _, detail := range report.Details {
			fmt.Fprintf(out, "    %s\n", detail)
		}
	}

	return failed
}

func printMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}

	return nil
}
