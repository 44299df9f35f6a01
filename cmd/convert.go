package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/helpers"
)

var convertCmd = &cobra.Command{
	Use:   "convert [FILES...]",
	Short: "Merge RDF files and write them in another format",
	Long: `Merge RDF files and write the union in the format picked by the output suffix:
.nt is N-Triples, .xml and .rdf are RDF/XML, .json and .jsonld are JSON-LD,
.trig is TriG, and anything else is Turtle. Triple formats drop graph names.

Examples:
  rdfendpoint convert a.ttl b.ttl --output merged.nt
  rdfendpoint convert "data/*.rdf" --output data.jsonld`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindFlags(cmd.Flags(), storeKeys); err != nil {
			return err
		}
		return bindFlags(cmd.Flags(), map[string]string{"convert.output": "output"})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := storeConfig()
		if err != nil {
			return err
		}
		_, err = newRegistry().Handle(cmd.Context(), domain.Task{
			Action: domain.ActionConvert,
			Files:  args,
			Output: viper.GetString("convert.output"),
			Store:  sc,
		})
		return err
	},
}

var compressCmd = &cobra.Command{
	Use:   "compress [FILES...]",
	Short: "Merge RDF files into a COTTAS file",
	Long: `Merge RDF files and write a COTTAS file: a Parquet table with one row per
quad, sorted by the index order. The index is a permutation of spo, optionally
with g, such as spo, pos or gspo.

Examples:
  rdfendpoint compress data/*.ttl --output data.cottas
  rdfendpoint compress dump.trig --index gspo`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd.Flags(), map[string]string{
			"compress.output": "output",
			"compress.index":  "index",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := newRegistry().Handle(cmd.Context(), domain.Task{
			Action: domain.ActionCompress,
			Files:  args,
			Output: viper.GetString("compress.output"),
			Index:  viper.GetString("compress.index"),
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(compressCmd)

	convertCmd.Flags().StringP("output", "o", helpers.DefaultConvertOut, "output file, its suffix selects the format")
	storeFlags(convertCmd)

	compressCmd.Flags().StringP("output", "o", helpers.DefaultCompressOut, "output COTTAS file")
	compressCmd.Flags().StringP("index", "i", helpers.DefaultCottasIndex, "row sort order")
}
