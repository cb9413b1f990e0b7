package cmd

import (
	"fmt"
	"os"

	"github.com/GridProtectionAlliance/gsf-sub058/cmd/connect"
	"github.com/GridProtectionAlliance/gsf-sub058/cmd/listen"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "gsfclient",
		Short: "GSF-style transport client",
		Long: fmt.Sprintf(`gsfclient (v%s)

A command-line client for GSF-style byte stream transports. It connects to a
server, streams stdin to it and prints everything the server sends back,
optionally wrapped in the marker and length payload framing.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gsfclient",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gsfclient v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(connect.ConnectCmd)
	RootCmd.AddCommand(listen.ListenCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
