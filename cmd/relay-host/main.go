// package main implements a native messaging host that relays each browser
// message to a local daemon and answers with the daemon's reply.
//
// Browsers launch it with the calling extension's origin as the only
// positional argument (Chrome on Windows also passes --parent-window).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/p00ya/native-messaging/internal/logx"
	"github.com/p00ya/native-messaging/internal/nativemsg"
	"github.com/p00ya/native-messaging/internal/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	exitSuccess      = 0
	exitInvalidUsage = 1
	exitFailure      = 2
)

const defaultDaemon = "nmrelay"

type config struct {
	logLevel, logFile, metricsFile string
	daemon                         string
	maxIncoming                    int
}

func main() {
	var c config
	flag.StringVar(&c.logLevel, "log-level", "", "Log level (default from "+logx.EnvLevel+")")
	flag.StringVar(&c.logFile, "log-file", "", "Also log to this file (default from "+logx.EnvFile+")")
	flag.StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	flag.StringVar(&c.daemon, "daemon", defaultDaemon, "Name of the daemon's IPC socket")
	flag.IntVar(&c.maxIncoming, "max-incoming", nativemsg.MaxIncoming, "Largest request payload to accept, in bytes")
	flag.Int("parent-window", 0, "Native window handle of the caller")
	flag.Parse()

	os.Exit(run(c, flag.Args()))
}

func run(c config, args []string) int {
	log, closeLog, err := logx.New(logx.Options{Level: c.logLevel, File: c.logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeLog()
	log, _ = logx.WithSession(log)

	if len(args) < 1 {
		log.Error().Int("args", len(args)).Msg("wanted origin argument")
		return exitInvalidUsage
	}
	origin := args[0]
	if !IsValidOrigin(origin) {
		log.Error().Str("origin", origin).Msg("origin not allowed")
		return exitInvalidUsage
	}
	log = log.With().Str("origin", origin).Logger()

	client, err := relay.Dial(c.daemon, log)
	if err != nil {
		log.Error().Err(err).Str("daemon", c.daemon).Msg("connecting to daemon")
		return exitFailure
	}
	defer client.Close()

	reg := prometheus.NewRegistry()
	host := nativemsg.NewHost(os.Stdin, os.Stdout,
		nativemsg.WithMaxIncoming(c.maxIncoming),
		nativemsg.WithLogger(log),
		nativemsg.WithMetrics(nativemsg.NewMetrics(reg)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// The host ends when the daemon goes away.
	go func() {
		select {
		case <-client.Done():
			log.Warn().Err(client.Err()).Msg("daemon connection ended")
			stop()
		case <-ctx.Done():
		}
	}()

	err = host.Run(ctx, forward(client, origin, log))

	if c.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(c.metricsFile, reg); werr != nil {
			log.Error().Err(werr).Str("path", c.metricsFile).Msg("writing metrics")
		}
	}
	if err != nil {
		return exitFailure
	}
	return exitSuccess
}

// forward returns a handler relaying each message through client.
func forward(client *relay.Client, origin string, log zerolog.Logger) nativemsg.Handler {
	return nativemsg.HandlerFunc(func(ctx context.Context, msg nativemsg.Message, reply nativemsg.Sender) error {
		ans, err := client.Send(ctx, origin, msg.Raw())
		if err != nil {
			return fmt.Errorf("relaying to daemon: %w", err)
		}
		if !json.Valid(ans) {
			return fmt.Errorf("daemon replied with invalid JSON (%d bytes)", len(ans))
		}
		log.Debug().Int("bytes", len(ans)).Msg("relayed reply")
		return reply.Send(ctx, json.RawMessage(ans))
	})
}
