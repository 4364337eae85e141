// Package config resolves the accumulator's runtime configuration from
// CLI flags and environment overrides.
package config

import (
	"flag"
	"os"
)

const (
	// DefaultAddr is the IPv4 stream endpoint spec.md §6 mandates.
	DefaultAddr = ":9000"
	// DefaultDataPath is the file-mode backing store location.
	DefaultDataPath = "/var/tmp/aesdsocketdata"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Addr is the listen address, normally DefaultAddr. Overridable via
	// AESD_SOCKET_ADDR for tests that can't bind port 9000.
	Addr string
	// DataPath is the file-mode backing store path. Overridable via
	// AESD_DATA_PATH for the same reason.
	DataPath string
	// UseDevice selects the emulated character-device backend instead
	// of the flat-file backend.
	UseDevice bool
	// Daemonize runs the server detached after a successful bind,
	// corresponding to the -d flag.
	Daemonize bool
	// Metrics enables the atomic-counter telemetry observer, logging a
	// snapshot at shutdown instead of the default no-op observer.
	Metrics bool
}

// Parse parses args (normally os.Args[1:]) and applies environment
// overrides, matching spec.md §6: the only protocol-mandated flag is
// -d; -device and -metrics are additive.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("aesdsocket", flag.ContinueOnError)
	daemonize := fs.Bool("d", false, "run as a background daemon after bind")
	useDevice := fs.Bool("device", false, "use the emulated character device backend instead of a file")
	metrics := fs.Bool("metrics", false, "log a connection/packet counter snapshot at shutdown")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:      DefaultAddr,
		DataPath:  DefaultDataPath,
		UseDevice: *useDevice,
		Daemonize: *daemonize,
		Metrics:   *metrics,
	}

	if v := os.Getenv("AESD_SOCKET_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("AESD_DATA_PATH"); v != "" {
		cfg.DataPath = v
	}

	return cfg, nil
}
