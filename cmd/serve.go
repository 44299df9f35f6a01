package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/helpers"
)

var serveCmd = &cobra.Command{
	Use:   "serve [FILES...]",
	Short: "Serve RDF files as a SPARQL endpoint",
	Long: `Load RDF files into a store and serve them as a SPARQL 1.1 endpoint on / and /sparql.

Every argument is a path or a glob pattern; all matches are merged into one dataset.
A single .cottas argument is served directly, read-only, without loading.

Updates are refused unless --enable-update is set. Protect them with
--api-key-hash (see "rdfendpoint auth hash-key") or --token-secret (see
"rdfendpoint auth token"), and record them with --update-log.

Examples:
  rdfendpoint serve data/*.ttl
  rdfendpoint serve --store badger --store-path ./db big.nt
  rdfendpoint serve --store oxigraph --store-url http://localhost:7878 data.trig
  rdfendpoint serve archive.cottas`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindFlags(cmd.Flags(), storeKeys); err != nil {
			return err
		}
		return bindFlags(cmd.Flags(), map[string]string{
			"serve.host":          "host",
			"serve.port":          "port",
			"serve.enable-update": "enable-update",
			"serve.title":         "title",
			"serve.description":   "description",
			"serve.query-timeout": "query-timeout",
			"serve.api-key-hash":  "api-key-hash",
			"serve.token-secret":  "token-secret",
			"serve.update-log":    "update-log",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := storeConfig()
		if err != nil {
			return err
		}

		task := domain.Task{
			Action: domain.ActionServe,
			Files:  args,
			Store:  sc,
			Serve: &domain.ServeConfig{
				Host:         viper.GetString("serve.host"),
				Port:         viper.GetInt("serve.port"),
				EnableUpdate: viper.GetBool("serve.enable-update"),
				Title:        viper.GetString("serve.title"),
				Description:  viper.GetString("serve.description"),
				QueryTimeout: viper.GetDuration("serve.query-timeout"),
				APIKeyHash:   viper.GetString("serve.api-key-hash"),
				TokenSecret:  viper.GetString("serve.token-secret"),
				UpdateLog:    viper.GetString("serve.update-log"),
			},
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = newRegistry().Handle(ctx, task)
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", helpers.DefaultHost, "host to listen on")
	serveCmd.Flags().Int("port", helpers.DefaultPort, "port to listen on")
	serveCmd.Flags().Bool("enable-update", false, "accept SPARQL updates")
	serveCmd.Flags().String("title", helpers.DefaultServiceTitle, "title of the query page and service description")
	serveCmd.Flags().String("description", "", "description of the dataset shown on the query page")
	serveCmd.Flags().Duration("query-timeout", 0, "abort queries and updates running longer than this, 0 disables")
	serveCmd.Flags().String("api-key-hash", "", "bcrypt hash of the API key required for updates")
	serveCmd.Flags().String("token-secret", "", "HMAC secret of bearer tokens accepted for updates")
	serveCmd.Flags().String("update-log", "", "directory of the update journal, disabled when empty")
	storeFlags(serveCmd)
}
