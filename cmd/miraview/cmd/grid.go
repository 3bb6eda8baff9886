package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/internal/service"
	"github.com/jmylchreest/miraview/internal/termgrid"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Fetch the guide once and print a broadcast day",
	Long: `Fetch programs and services from mirakc and print one broadcast day.

Without --day the current broadcast day is printed; before 05:00 that is
the previous calendar date. Use --list to show which days have programs.`,
	Example: `  miraview grid
  miraview grid --day 2024-05-15 --hide-fillers
  miraview grid --list
  miraview grid --json | jq '.channels[].service.name'`,
	RunE: runGrid,
}

var gridOpts struct {
	day         string
	list        bool
	json        bool
	noColor     bool
	hideFillers bool
}

func init() {
	rootCmd.AddCommand(gridCmd)

	gridCmd.Flags().StringVar(&gridOpts.day, "day", "", "broadcast day as YYYY-MM-DD or epoch milliseconds (default: today)")
	gridCmd.Flags().BoolVar(&gridOpts.list, "list", false, "list broadcast days instead of printing one")
	gridCmd.Flags().BoolVar(&gridOpts.json, "json", false, "output JSON")
	gridCmd.Flags().BoolVar(&gridOpts.noColor, "no-color", false, "disable color output")
	gridCmd.Flags().BoolVar(&gridOpts.hideFillers, "hide-fillers", false, "omit filler slots")
	gridCmd.Flags().String("mirakc", "http://localhost:40772", "mirakc base URL")
}

func runGrid(cmd *cobra.Command, _ []string) error {
	mustBindPFlag("mirakc.uri", cmd.Flags().Lookup("mirakc"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx := cmd.Context()

	mirakcClient, _ := newMirakcClient(cfg.Mirakc, logger)
	guideService := service.NewGuideService(mirakcClient, cfg.Mirakc.URI, cfg.Mirakc.StreamProtocol).
		WithLogger(logger)

	if err := guideService.Refresh(ctx); err != nil {
		return err
	}

	now := guideService.Now()
	today := broadcastday.Today(now)
	out := cmd.OutOrStdout()

	printer := termgrid.New(out, termgrid.Options{
		Width:       terminalWidth(),
		Now:         now,
		HideFillers: gridOpts.hideFillers,
		NoColor:     gridOpts.noColor,
	})

	if gridOpts.list {
		days := guideService.Days(now)
		if gridOpts.json {
			return writeJSON(out, days)
		}
		if err := printer.PrintDays(days, today); err != nil {
			return err
		}
		return printer.PrintStatus(guideService.Status(), now)
	}

	key := today
	if gridOpts.day != "" {
		if key, err = broadcastday.ParseKey(gridOpts.day); err != nil {
			return err
		}
	}

	view, err := guideService.Day(key, now)
	if errors.Is(err, service.ErrDayNotFound) {
		return fmt.Errorf("no programs on %s (use --list to see available days)", key)
	}
	if err != nil {
		return err
	}

	if gridOpts.json {
		return writeJSON(out, view)
	}
	if err := printer.PrintDay(view); err != nil {
		return err
	}
	return printer.PrintStatus(guideService.Status(), now)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// terminalWidth returns the stdout width, or termgrid.DefaultWidth when
// stdout is not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
	if err != nil || width <= 0 {
		return termgrid.DefaultWidth
	}
	return width
}
