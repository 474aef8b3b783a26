package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sara-star-quant/v2x-go/internal/config"
	"github.com/sara-star-quant/v2x-go/internal/constants"
	"github.com/sara-star-quant/v2x-go/pkg/keystore"
	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
	"github.com/sara-star-quant/v2x-go/pkg/trace"
	"github.com/sara-star-quant/v2x-go/pkg/vehicle"
)

// receiverID is the reserved vehicle id of the roadside receiver.
const receiverID = 0

func newLogger(level, format string) *metrics.Logger {
	f := metrics.FormatText
	if format == "json" {
		f = metrics.FormatJSON
	}
	return metrics.NewLogger(
		metrics.WithOutput(os.Stderr),
		metrics.WithLevel(metrics.ParseLevel(level)),
		metrics.WithFormat(f),
	)
}

func scenarioPort(cfg *config.Config, testMode bool) int {
	if testMode {
		return config.TestPort()
	}
	return cfg.Scenario.Port
}

func vehicleOptions(cfg *config.Config, logger *metrics.Logger) vehicle.Options {
	return vehicle.Options{
		Scheme:          cfg.Scheme(),
		PQFragmentBytes: cfg.Scenario.MLDSA.FragmentBytes,
		Compression:     spdu.Compression(cfg.Scenario.MLDSA.Compression),
		DropProbability: cfg.Scenario.DropProbability,
		Seed:            cfg.Scenario.Seed,
		Logger:          logger,
	}
}

// runTransmitter drives the whole fleet: one goroutine per vehicle, each with
// its own socket, trace, and loss-draw source. The first vehicle error aborts
// the run.
func runTransmitter(configPath string, testMode bool, logLevel, logFormat string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(logLevel, logFormat).Named("transmitter")
	store := keystore.NewFileStore(cfg.Scenario.KeyRoot)
	port := scenarioPort(cfg, testMode)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	logger.Info("starting fleet", metrics.Fields{
		"vehicles": cfg.Scenario.NumVehicles,
		"messages": cfg.Scenario.NumMessages,
		"scheme":   cfg.Scheme().String(),
		"drop":     cfg.Scenario.DropProbability,
		"addr":     addr,
	})

	ctx := context.Background()
	errCh := make(chan error, cfg.Scenario.NumVehicles)
	var wg sync.WaitGroup

	for i := 1; i <= cfg.Scenario.NumVehicles; i++ {
		id := uint8(i)

		tr, err := trace.LoadVehicle(cfg.Scenario.TraceDir, id)
		if err != nil {
			return err
		}
		v, err := vehicle.New(id, store, tr, vehicleOptions(cfg, logger))
		if err != nil {
			return err
		}
		ch, err := vehicle.DialUDP(addr)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer ch.Close()
			if err := v.Transmit(ctx, ch, cfg.Scenario.NumMessages); err != nil {
				errCh <- fmt.Errorf("vehicle %d: %w", v.ID(), err)
			}
		}()
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}

	logger.Info("fleet finished")
	return nil
}

// runReceiver binds the receiver port and blocks until every expected message
// has been reassembled and verified, then prints the run report.
func runReceiver(configPath string, testMode bool, gui, logLevel, logFormat string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(logLevel, logFormat).Named("receiver")
	store := keystore.NewFileStore(cfg.Scenario.KeyRoot)
	port := scenarioPort(cfg, testMode)

	v, err := vehicle.New(receiverID, store, nil, vehicleOptions(cfg, logger))
	if err != nil {
		return err
	}

	ch, err := vehicle.ListenUDP(port)
	if err != nil {
		return err
	}
	defer ch.Close()

	forwarder, err := newForwarder(gui)
	if err != nil {
		return err
	}
	if forwarder != nil {
		defer forwarder.Close()
	}

	expected := cfg.Scenario.NumVehicles * cfg.Scenario.NumMessages
	logger.Info("listening", metrics.Fields{
		"port":     port,
		"expected": expected,
		"scheme":   cfg.Scheme().String(),
	})

	report, err := v.Receive(context.Background(), ch, expected, forwarder)
	if err != nil {
		return err
	}
	report.RunID = os.Getenv(config.EnvMetricsRun)
	report.Note = os.Getenv(config.EnvMetricsNote)

	fmt.Println(report.ConsoleLine())
	if path := os.Getenv(config.EnvMetricsFile); path != "" {
		if err := report.AppendCSV(path); err != nil {
			return err
		}
	}

	snap := v.Collector().Snapshot()
	logger.Info("run summary", metrics.Fields{
		"received":   snap.FragmentsReceived,
		"duplicates": snap.DuplicateFragments,
		"ignored":    snap.IgnoredFragments,
		"completed":  snap.MessagesCompleted,
		"accepted":   snap.MessagesAccepted,
		"rejected":   snap.MessagesRejected,
	})
	return nil
}

// newForwarder opens the visualization channel selected by the -gui flag.
func newForwarder(mode string) (*vehicle.Forwarder, error) {
	var port int
	switch mode {
	case "", "none":
		return nil, nil
	case "tk":
		port = constants.TkGUIPort
	case "web":
		port = constants.WebGUIPort
	default:
		return nil, fmt.Errorf("unknown gui mode %q (want none, tk, or web)", mode)
	}
	ch, err := vehicle.DialUDP(fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, err
	}
	return vehicle.NewForwarder(ch), nil
}

// runKeygen provisions key material for the receiver and each vehicle id and
// writes it out in the on-disk keystore layout.
func runKeygen(vehicles int, root string) error {
	if vehicles < 1 || vehicles > 255 {
		return fmt.Errorf("vehicles %d outside [1, 255]", vehicles)
	}

	store := keystore.NewMemoryStore()
	for i := 0; i <= vehicles; i++ {
		id := uint8(i)
		if err := store.Provision(id); err != nil {
			return err
		}
		if err := store.WriteTo(root, id); err != nil {
			return err
		}

		pub, err := store.MLDSAPublic(id)
		if err != nil {
			return err
		}
		raw, err := pub.MarshalBinary()
		if err != nil {
			return err
		}
		fmt.Printf("vehicle %d: keys written (mldsa44 %s)\n", id, keystore.Fingerprint(raw))
	}
	return nil
}
