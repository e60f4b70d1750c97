package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pb "github.com/mohsanabbas/firehose/api/proto/v1"
	"github.com/mohsanabbas/firehose/internal/transport"
)

var stopCmd = &cobra.Command{
	Use:   "stop <request-id>",
	Short: "stop a running sideline and begin draining its diverted records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := transport.Dial(host, port)
		if err != nil {
			return fmt.Errorf("dial %s:%d: %w", host, port, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		reply, err := client.PausePipeline(ctx, &pb.PauseRequest{Id: args[0]})
		if err != nil {
			return err
		}
		if !reply.GetOk() {
			return fmt.Errorf("stop %s: firehose reported failure", args[0])
		}
		fmt.Printf("stopped %s\n", args[0])
		return nil
	},
}
