// Command sidelinectl drives a running firehose process's Control gRPC
// service: start a sideline from a filter-steps YAML file, stop one by
// request id, or ping for liveness. Grounded in abd-ulbasit-goqueue's
// cmd/goqueue-cli layout (a cobra root command plus one file per
// subcommand), adapted to this repo's three-RPC Control surface instead of
// goqueue's full admin API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host string
	port int
)

var rootCmd = &cobra.Command{
	Use:   "sidelinectl",
	Short: "control-plane client for a firehose process",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "firehose control-plane host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 7080, "firehose control-plane gRPC port")

	rootCmd.AddCommand(pingCmd, startCmd, stopCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
