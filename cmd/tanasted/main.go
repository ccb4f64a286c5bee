// Command tanasted runs the Tanaste media-library engine: it watches an
// inbox directory, ingests new files, harvests external metadata, and
// keeps the on-disk library organised and sidecar-annotated.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tanasted",
	Short: "Tanaste local-first media library engine",
	Long: `tanasted watches a folder, identifies media files, scores their
metadata across local extraction and external providers, and organises
them into a library tree with XML sidecars.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to tanaste.json (default: search cwd and user config dir)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dryRunCmd)
}
