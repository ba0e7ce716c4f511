// Command impdemo runs the scenarios that show how shared mutable
// handles behave, including the hazard they allow.
package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type options struct {
	verbose bool
	metrics bool
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "impdemo",
		Short: "Run shared mutable handle scenarios",
		Long: `impdemo runs scenarios showing what shared mutable handles do:

  • writes through one handle are visible through every clone
  • identity is about storage, not about equal values
  • storage is torn down once, after the last handle is gone
  • two live mutable views can corrupt a container
  • the checked handle refuses that same interleaving`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetHandler(cli.New(cmd.ErrOrStderr()))
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
				log.Debugf("impdemo version %s", version)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every handle lifecycle event")
	cmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print Prometheus metrics after running")

	cmd.AddCommand(
		runCmd(opts),
		listCmd(),
		versionCmd(),
	)

	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
