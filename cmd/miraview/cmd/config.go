package cmd

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/miraview/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing miraview configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

You can redirect this output to a file to create a configuration template:

  miraview config dump > config.yaml

Configuration can be set via:
  - Config file (./config.yaml, /etc/miraview/config.yaml, ~/.miraview/config.yaml)
  - Environment variables (MIRAVIEW_MIRAKC_URI, MIRAVIEW_SERVER_PORT, etc.)
  - Command-line flags (for some options)

Environment variables use the MIRAVIEW_ prefix and underscores for nesting.
Example: mirakc.stream_protocol -> MIRAVIEW_MIRAKC_STREAM_PROTOCOL`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return dumpDefaults(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a config struct to a map keyed by mapstructure tags, with
// durations in their string form.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	typ := val.Type()

	for i := range val.NumField() {
		field := val.Field(i)
		key := typ.Field(i).Tag.Get("mapstructure")
		if key == "" {
			key = typ.Field(i).Name
		}

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = fv.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(fv)
			} else {
				result[key] = fv
			}
		}
	}
	return result
}

func dumpDefaults(w io.Writer) error {
	cfg, err := config.Defaults()
	if err != nil {
		return fmt.Errorf("loading defaults: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	header := `# miraview Configuration File
#
# All values shown below are defaults.
# Duration format: 30s, 5m, 1h
# refresh.cron takes six fields (seconds first) or descriptors like @hourly.
#
# Environment variable overrides:
#   MIRAVIEW_SERVER_HOST, MIRAVIEW_SERVER_PORT
#   MIRAVIEW_MIRAKC_URI, MIRAVIEW_MIRAKC_STREAM_PROTOCOL
#   MIRAVIEW_DATABASE_DRIVER, MIRAVIEW_DATABASE_DSN
#   MIRAVIEW_LOGGING_LEVEL, MIRAVIEW_LOGGING_FORMAT
#   MIRAVIEW_REFRESH_CRON
#

`
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err = w.Write(yamlData)
	return err
}
