// Command firehose is the process entrypoint: it loads the app spec, wires
// the firehose Virtual Consumer, the Coordinator, the Sideline Handler, and
// the gRPC control plane, then runs until an interrupt signal arrives.
// Grounded in the teacher's cmd/engine/main.go (context + signal.NotifyContext,
// a package-level Bootstrap/Run split), adapted to this repo's own
// Coordinator instead of quanta's engine.Engine.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/mohsanabbas/firehose/internal/broker"
	"github.com/mohsanabbas/firehose/internal/config"
	"github.com/mohsanabbas/firehose/internal/coordinator"
	"github.com/mohsanabbas/firehose/internal/deserialize"
	"github.com/mohsanabbas/firehose/internal/logging"
	"github.com/mohsanabbas/firehose/internal/message"
	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/persistence"
	"github.com/mohsanabbas/firehose/internal/sideline"
	"github.com/mohsanabbas/firehose/internal/spout"
	"github.com/mohsanabbas/firehose/internal/telemetry"
	"github.com/mohsanabbas/firehose/internal/transport"
)

func main() {
	appConfigPath := flag.String("config", "config/app.yaml", "path to the app spec YAML")
	controlPort := flag.Int("control-port", 7080, "gRPC control-plane port")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *appConfigPath, *controlPort); err != nil {
		log.Fatalf("firehose: %v", err)
	}
}

func run(ctx context.Context, appConfigPath string, controlPort int) error {
	appSpec, err := config.LoadAppSpec(appConfigPath)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{Level: appSpec.Logging.Level, JSON: appSpec.Logging.JSON})

	brokerCfg, err := config.LoadBrokerConfig(appSpec.BrokerConfigPath)
	if err != nil {
		return err
	}
	persistCfg, err := config.LoadPersistenceConfig(appSpec.PersistenceConfigPath)
	if err != nil {
		return err
	}
	coordCfg, err := appSpec.Coordinator()
	if err != nil {
		return err
	}

	var persist persistence.Manager
	if persistCfg.ZKRoot == "" {
		logging.L().Warn("firehose: persistence.zk_root not configured, falling back to a non-durable in-memory store")
		persist = persistence.NewInMemory()
	} else {
		persist = persistence.NewZK(persistCfg)
	}
	if err := persist.Open(); err != nil {
		return err
	}
	defer persist.Close()

	telemetry.Expose(appSpec.Telemetry.Port)
	metrics := telemetry.NewRecorder()

	firehoseBroker := broker.NewSaramaConsumer(brokerCfg)
	firehose := spout.New(spout.Config{
		ConsumerID:   appSpec.ConsumerID,
		Broker:       firehoseBroker,
		Deserializer: deserialize.UTF8{},
		Persistence:  persist,
	})

	coord := coordinator.New(firehose, metrics, coordCfg)

	handler := sideline.New(firehose, coord, persist, drainFactory(brokerCfg, persist), metrics)
	if err := handler.Resume(); err != nil {
		logging.L().Error("firehose: resume failed", "err", err)
	}

	server, err := transport.StartServer(controlPort, handler)
	if err != nil {
		return err
	}
	go func() {
		if err := server.Serve(); err != nil {
			logging.L().Error("firehose: control server stopped", "err", err)
		}
	}()
	defer server.Stop()

	outputQueue := make(chan *message.Message, brokerCfg.BackPressure.Capacity)
	coord.Open(ctx, outputQueue)
	logging.L().Info("firehose: started", "consumerId", appSpec.ConsumerID, "controlPort", controlPort, "metricsPort", appSpec.Telemetry.Port)

	drain(ctx, coord, outputQueue)

	logging.L().Info("firehose: shutting down")
	coord.Close()
	return nil
}

// drain stands in for the host topology adapter spec §1 treats as an
// external collaborator: it dequeues every emitted message and
// immediately acks it. A real deployment replaces this loop with the host
// topology's nextTuple/ack/fail surface (spec §6).
func drain(ctx context.Context, coord *coordinator.Coordinator, outputQueue <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outputQueue:
			coord.Ack(msg.ID)
		}
	}
}

// drainFactory builds the sideline.ConsumerFactory that constructs a
// bounded Virtual Consumer for draining a stopped sideline, wired here
// (rather than inside internal/sideline) because it needs a real
// broker.Config to derive the drain consumer's own consumer group (spec
// §4.H "construct a new Virtual Consumer ... and hand it to the
// Coordinator"). Seeking the fresh group to startingOffsets is broker-side
// mechanics spec §1 keeps out of core scope; startingOffsets is still
// threaded through so a Consumer implementation that supports seeking can
// use it.
func drainFactory(baseBrokerCfg broker.Config, persist persistence.Manager) sideline.ConsumerFactory {
	return func(consumerID string, startingOffsets, endingOffsets offsetmap.OffsetMap) (*spout.VirtualConsumer, error) {
		cfg := baseBrokerCfg
		cfg.GroupID = baseBrokerCfg.GroupID + "-sideline-" + consumerID
		cfg.Topics = topicsOf(endingOffsets)

		drainBroker := broker.NewSaramaConsumer(cfg)
		end := endingOffsets
		vc := spout.New(spout.Config{
			ConsumerID:    consumerID,
			Broker:        drainBroker,
			Deserializer:  deserialize.UTF8{},
			Persistence:   persist,
			EndingOffsets: &end,
		})
		_ = startingOffsets // see doc comment: seeking is a Consumer-side concern
		return vc, nil
	}
}

func topicsOf(m offsetmap.OffsetMap) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, e := range m.Entries() {
		if !seen[e.Topic] {
			seen[e.Topic] = true
			topics = append(topics, e.Topic)
		}
	}
	return topics
}
