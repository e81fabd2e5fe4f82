package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grantcore",
	Short: "proposal store and literature index",
	Example: `grantcore serve
grantcore doc create -o <owner-id> -t <title> -s summary=<text>
grantcore doc update -d <doc-id> -e <expected-version-id> -s summary=<text>
grantcore doc transition -d <doc-id> -e <expected-version-id> --state reviewing
grantcore corpus search -f <embedding.json> -k 10 --with-proposals
grantcore ref link -d <doc-id> -e <entry-id> --score 0.8
grantcore trend --window 168 --top 5`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(contextCommand)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(refCmd)
	rootCmd.AddCommand(trendCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	bindContextFlags(rootCmd)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
