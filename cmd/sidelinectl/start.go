package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	pb "github.com/mohsanabbas/firehose/api/proto/v1"
	"github.com/mohsanabbas/firehose/internal/transport"
)

var startFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start a sideline from a filter-steps YAML file",
	Long: `start reads a YAML document describing the filter chain steps for a new
sideline request (a "filterSteps" list of {name, args} objects matching one
of the registered filter kinds, e.g. key-equals or key-prefix) and deploys
it to the firehose process, printing the generated request id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(startFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", startFile, err)
		}

		client, err := transport.Dial(host, port)
		if err != nil {
			return fmt.Errorf("dial %s:%d: %w", host, port, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		reply, err := client.DeployPipeline(ctx, &pb.DeployRequest{Yaml: string(raw)})
		if err != nil {
			return err
		}
		fmt.Println(reply.GetId())
		return nil
	},
}

func init() {
	startCmd.Flags().StringVarP(&startFile, "file", "f", "", "path to a filter-steps YAML file (required)")
	_ = startCmd.MarkFlagRequired("file")
}
