package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure a fresh SaaS backend installation",
	Long: `Walks through first-run setup against a running server: database connection,
authentication secret and branding. The configuration is written by the server to its
.env file and the database schema is created at the end.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080/api", "Base URL of the server API")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for each request to the server")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
