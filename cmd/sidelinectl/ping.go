package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pb "github.com/mohsanabbas/firehose/api/proto/v1"
	"github.com/mohsanabbas/firehose/internal/transport"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "check that a firehose process's control plane is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := transport.Dial(host, port)
		if err != nil {
			return fmt.Errorf("dial %s:%d: %w", host, port, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		reply, err := client.Ping(ctx, &pb.PingRequest{})
		if err != nil {
			return err
		}
		fmt.Println(reply.GetStatus())
		return nil
	},
}
