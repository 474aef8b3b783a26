package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sara-star-quant/v2x-go/internal/config"
	pkgversion "github.com/sara-star-quant/v2x-go/pkg/version"
)

// Build-time variables (set via -ldflags)
var (
	version   = ""        // Set via -ldflags "-X main.version=x.y.z"
	buildTime = "unknown" // Set via -ldflags "-X main.buildTime=..."
	gitCommit = "unknown" // Set via -ldflags "-X main.gitCommit=..."
)

func getVersion() string {
	if version != "" {
		return version
	}
	return pkgversion.String()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "transmitter":
		transmitterCommand()
	case "receiver":
		receiverCommand()
	case "keygen":
		keygenCommand()
	case "version":
		fmt.Printf("v2x-sim version %s\n", getVersion())
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`v2x-sim - V2V Safety Messaging Simulator

USAGE:
    v2x-sim <command> [options]

COMMANDS:
    transmitter  Run the sending fleet (one goroutine per vehicle)
    receiver     Run the roadside receiver (reassemble, verify, report)
    keygen       Generate key material for a fleet
    version      Print version information
    help         Show this help message

Run 'v2x-sim <command> --help' for more information on a command.

EXAMPLES:
    # Generate keys for 4 vehicles plus the receiver
    v2x-sim keygen --vehicles 4 --root .

    # Terminal 1: Start the receiver
    v2x-sim receiver --config scenario.json

    # Terminal 2: Start the fleet
    v2x-sim transmitter --config scenario.json

    # Post-quantum run with forced loss, deterministic seed
    V2X_SIGNATURE_SCHEME=mldsa V2X_PACKET_LOSS_RATE=0.2 V2X_SEED=42 \
        v2x-sim transmitter --config scenario.json

ENVIRONMENT:
    V2X_SIGNATURE_SCHEME   ecdsa | mldsa (overrides config)
    V2X_PACKET_LOSS_RATE   per-fragment drop probability in [0, 1]
    V2X_FRAGMENT_BYTES     post-quantum chunk size (0 = capacity)
    V2X_COMPRESSION        none | zstd
    V2X_SEED               loss-draw seed (0 = clock)
    V2X_TEST_PORT          port used under --test
    V2X_METRICS_FILE       append a CSV run record to this file
    V2X_METRICS_RUN        run id for the metrics record
    V2X_METRICS_NOTE       free-form note for the metrics record`)
}

func transmitterCommand() {
	fs := flag.NewFlagSet("transmitter", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Scenario configuration file")
	testMode := fs.Bool("test", false, "Use the test port instead of the configured port")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")

	fs.Usage = func() {
		fmt.Println(`USAGE: v2x-sim transmitter [options]

Run the sending side of the simulation: one goroutine per vehicle, each
walking its GPS trace and sending signed messages to the receiver port.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	if err := runTransmitter(*configPath, *testMode, *logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "transmitter: %v\n", err)
		os.Exit(1)
	}
}

func receiverCommand() {
	fs := flag.NewFlagSet("receiver", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Scenario configuration file")
	testMode := fs.Bool("test", false, "Use the test port instead of the configured port")
	gui := fs.String("gui", "none", "Visualization forwarding: none, tk, web")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")

	fs.Usage = func() {
		fmt.Println(`USAGE: v2x-sim receiver [options]

Run the receiving side: listen for fragments, reassemble messages across
all flows, verify each one, and print the run report when every expected
message has arrived.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	if err := runReceiver(*configPath, *testMode, *gui, *logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "receiver: %v\n", err)
		os.Exit(1)
	}
}

func keygenCommand() {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	vehicles := fs.Int("vehicles", 1, "Number of transmitting vehicles (ids 1..N)")
	root := fs.String("root", ".", "Key root directory")

	fs.Usage = func() {
		fmt.Println(`USAGE: v2x-sim keygen [options]

Generate P-256 vehicle and issuer keys plus an ML-DSA-44 key pair for the
receiver (id 0) and each transmitting vehicle, laid out under the key root.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	if err := runKeygen(*vehicles, *root); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path
	}
	return "scenario.json"
}
