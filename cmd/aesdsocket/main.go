// Command aesdsocket runs the packet-accumulator TCP server: it accepts
// newline-delimited packets on a stream socket, commits each whole
// packet to a backing store (a flat file or an emulated character
// device), and echoes the store's entire contents back to the client
// after every accepted packet.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsaravanan-aesd/aesdsocket/internal/config"
	"github.com/bsaravanan-aesd/aesdsocket/internal/daemon"
	"github.com/bsaravanan-aesd/aesdsocket/internal/device"
	"github.com/bsaravanan-aesd/aesdsocket/internal/logging"
	"github.com/bsaravanan-aesd/aesdsocket/internal/server"
	"github.com/bsaravanan-aesd/aesdsocket/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return 1
	}

	logCfg := logging.DefaultConfig()
	logCfg.Tag = "aesdsocket"
	logger := logging.NewLogger(logCfg)
	logging.SetDefault(logger)

	backend, cleanup, err := newBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize backend", "error", err.Error())
		return 1
	}
	defer cleanup()

	// -metrics swaps in the atomic-counter observer; the default is the
	// no-op observer (server.New's nil-observer behavior).
	var metrics *telemetry.Metrics
	var observer telemetry.Observer
	if cfg.Metrics {
		metrics = telemetry.NewMetrics()
		observer = metrics
	}

	srv := server.New(server.Config{Addr: cfg.Addr}, backend, logger, observer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In a re-exec'd daemon child, take over the inherited listener
	// instead of binding again; the parent already proved the bind
	// succeeds before handing it off.
	if daemon.IsChild() {
		ln, err := daemon.InheritedListener()
		if err != nil {
			logger.Error("failed to adopt inherited listener", "error", err.Error())
			return 1
		}
		srv.UseListener(ln)
	} else {
		if err := srv.Bind(ctx); err != nil {
			logger.Error("failed to bind listener", "error", err.Error())
			return 1
		}

		if cfg.Daemonize {
			lf, err := srv.ListenerFile()
			if err != nil {
				logger.Error("failed to daemonize", "error", err.Error())
				return 1
			}
			if err := daemon.Daemonize(lf); err != nil {
				logger.Error("failed to daemonize", "error", err.Error())
				return 1
			}
			// Daemonize calls os.Exit(0) in the parent on success; this
			// line is unreached except on the already-handled error path.
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	serveErr := srv.Serve(ctx)

	if metrics != nil {
		snap := metrics.Snapshot()
		logger.Info("connection/packet counters at shutdown",
			"conns_accepted", snap.ConnsAccepted,
			"conns_closed", snap.ConnsClosed,
			"packets_stored", snap.PacketsStored,
			"bytes_stored", snap.BytesStored,
			"bytes_echoed", snap.BytesEchoed)
	}

	if serveErr != nil {
		logger.Error("server exited with error", "error", serveErr.Error())
		return 1
	}
	return 0
}

// newBackend constructs the file or device backend per cfg, returning a
// cleanup func that releases its resources on shutdown.
func newBackend(cfg *config.Config, logger *logging.Logger) (server.Backend, func(), error) {
	if cfg.UseDevice {
		dev := device.New(logger)
		b, err := server.NewDeviceBackend(dev)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {}, nil
	}

	b := server.NewFileBackend(cfg.DataPath)
	return b, func() { b.Close() }, nil
}
