package transport

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/mohsanabbas/firehose/api/proto/v1"
)

// Dial connects to a firehose process's Control service on port.
func Dial(host string, port int) (pb.ControlClient, error) {
	cc, err := grpc.NewClient(fmt.Sprintf("%s:%d", host, port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return pb.NewControlClient(cc), nil
}
