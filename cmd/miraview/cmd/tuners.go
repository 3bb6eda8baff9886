package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/internal/termgrid"
)

var tunersCmd = &cobra.Command{
	Use:   "tuners",
	Short: "Show mirakc tuner states",
	Long: `Fetch the tuner list from mirakc and print each tuner's state.

States are free, using, preemptible (held at priority 0 or below, such as
EPG collection), fault and unknown. The mirakc version is printed last,
with a notice when a newer release is known.`,
	Example: `  miraview tuners
  miraview tuners --json | jq '.tuners[] | select(.isFree)'`,
	RunE: runTuners,
}

var tunersOpts struct {
	json    bool
	noColor bool
}

func init() {
	rootCmd.AddCommand(tunersCmd)

	tunersCmd.Flags().BoolVar(&tunersOpts.json, "json", false, "output JSON")
	tunersCmd.Flags().BoolVar(&tunersOpts.noColor, "no-color", false, "disable color output")
	tunersCmd.Flags().String("mirakc", "http://localhost:40772", "mirakc base URL")
}

func runTuners(cmd *cobra.Command, _ []string) error {
	mustBindPFlag("mirakc.uri", cmd.Flags().Lookup("mirakc"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	mirakcClient, _ := newMirakcClient(cfg.Mirakc, logger)
	st, err := service.NewGuideService(mirakcClient, cfg.Mirakc.URI, cfg.Mirakc.StreamProtocol).
		WithLogger(logger).
		Tuners(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if tunersOpts.json {
		return writeJSON(out, st)
	}
	return termgrid.New(out, termgrid.Options{NoColor: tunersOpts.noColor}).PrintTuners(st)
}
