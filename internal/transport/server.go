// Package transport implements the control-plane surface triggers arrive
// on (spec §4.H): gRPC requests to start/stop a sideline, adapted from the
// teacher's internal/transport package and the same control.proto service.
package transport

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	pb "github.com/mohsanabbas/firehose/api/proto/v1"
	"github.com/mohsanabbas/firehose/internal/logging"
	"github.com/mohsanabbas/firehose/internal/sideline"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// sidelineDoc is the YAML shape a DeployPipeline request's payload decodes
// into: the filter steps a new sideline request should be started with.
type sidelineDoc struct {
	FilterSteps []trigger.FilterStepSpec `yaml:"filterSteps"`
}

// Server exposes the Sideline Handler's Start/Stop operations over gRPC.
type Server struct {
	pb.UnimplementedControlServer

	grpc    *grpc.Server
	lis     net.Listener
	handler *sideline.Handler
}

// StartServer binds a TCP listener on port and registers the Control
// service backed by handler.
func StartServer(port int, handler *sideline.Handler) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s := &Server{
		grpc:    grpc.NewServer(),
		lis:     lis,
		handler: handler,
	}
	pb.RegisterControlServer(s.grpc, s)
	return s, nil
}

// Serve blocks, accepting connections until Stop is called.
func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// Ping is a liveness check; it carries no sideline semantics.
func (s *Server) Ping(context.Context, *pb.PingRequest) (*pb.PingReply, error) {
	return &pb.PingReply{Status: "ok"}, nil
}

// DeployPipeline decodes req's YAML payload into filter steps and starts a
// new sideline request, returning its generated id.
func (s *Server) DeployPipeline(_ context.Context, req *pb.DeployRequest) (*pb.DeployReply, error) {
	var doc sidelineDoc
	if err := yaml.Unmarshal([]byte(req.GetYaml()), &doc); err != nil {
		return nil, fmt.Errorf("transport: decode sideline request yaml: %w", err)
	}

	id, err := s.handler.Start(doc.FilterSteps)
	if err != nil {
		return nil, err
	}
	logging.L().Info("transport: deployed sideline request", "requestId", id)
	return &pb.DeployReply{Id: string(id)}, nil
}

// PausePipeline stops the sideline request named by req.Id.
func (s *Server) PausePipeline(_ context.Context, req *pb.PauseRequest) (*pb.PauseReply, error) {
	if err := s.handler.Stop(trigger.ID(req.GetId())); err != nil {
		return &pb.PauseReply{Ok: false}, err
	}
	logging.L().Info("transport: paused sideline request", "requestId", req.GetId())
	return &pb.PauseReply{Ok: true}, nil
}
