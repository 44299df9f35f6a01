package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"evalgo.org/rdfendpoint/internal/helpers"
)

// configDefaults are the settings known to the commands
var configDefaults = map[string]interface{}{
	"debug":               false,
	"store.backend":       "default",
	"store.url":           helpers.DefaultOxigraphURL,
	"store.path":          "",
	"serve.host":          helpers.DefaultHost,
	"serve.port":          helpers.DefaultPort,
	"serve.enable-update": false,
	"serve.title":         helpers.DefaultServiceTitle,
	"serve.description":   "",
	"serve.query-timeout": "0s",
	"serve.api-key-hash":  "",
	"serve.token-secret":  "",
	"serve.update-log":    "",
	"convert.output":      helpers.DefaultConvertOut,
	"compress.output":     helpers.DefaultCompressOut,
	"compress.index":      helpers.DefaultCottasIndex,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the settings after merging defaults, the config file and
RDFENDPOINT_* environment variables (for example RDFENDPOINT_SERVE_PORT).
Secrets are masked.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := yaml.Marshal(effectiveConfig())
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// effectiveConfig nests the dotted keys into sections.
func effectiveConfig() map[string]interface{} {
	keys := make([]string, 0, len(configDefaults))
	for k := range configDefaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := map[string]interface{}{}
	if f := viper.ConfigFileUsed(); f != "" {
		out["config_file"] = f
	}
	for _, key := range keys {
		v := viper.Get(key)
		if v == nil {
			v = configDefaults[key]
		}
		if isSecret(key) && fmt.Sprint(v) != "" {
			v = "********"
		}
		section, name, nested := strings.Cut(key, ".")
		if !nested {
			out[key] = v
			continue
		}
		m, ok := out[section].(map[string]interface{})
		if !ok {
			m = map[string]interface{}{}
			out[section] = m
		}
		m[name] = v
	}
	return out
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "secret") || strings.HasSuffix(key, "hash")
}

func init() {
	rootCmd.AddCommand(configCmd)
}
