package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "livematch",
	Short: "Live face identification over streaming video frames",
	Long: `Livematch identifies faces in streaming video frames against a catalogue
of enrolled identities. Clients open a connection, stream frames over HTTP,
and receive per-frame match results on a server-sent event channel. Face
descriptors come from an encoder sidecar service.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
