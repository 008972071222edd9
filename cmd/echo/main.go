// package main implements a native messaging host that echoes requests back
// to the browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/p00ya/native-messaging/internal/logx"
	"github.com/p00ya/native-messaging/internal/nativemsg"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	exitSuccess = 0
	exitFailure = 2
)

func main() {
	logLevel := flag.String("log-level", "", "Log level (default from "+logx.EnvLevel+")")
	logFile := flag.String("log-file", "", "Also log to this file (default from "+logx.EnvFile+")")
	metricsFile := flag.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
	maxIncoming := flag.Int("max-incoming", nativemsg.MaxIncoming, "Largest request payload to accept, in bytes")
	// Chrome passes this on Windows; the caller origin follows as an argument.
	flag.Int("parent-window", 0, "Native window handle of the caller")
	flag.Parse()

	os.Exit(run(*logLevel, *logFile, *metricsFile, *maxIncoming))
}

func run(logLevel, logFile, metricsFile string, maxIncoming int) int {
	log, closeLog, err := logx.New(logx.Options{Level: logLevel, File: logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeLog()
	log, _ = logx.WithSession(log)
	log.Info().Strs("args", flag.Args()).Msg("echo host started")

	reg := prometheus.NewRegistry()
	host := nativemsg.NewHost(os.Stdin, os.Stdout,
		nativemsg.WithMaxIncoming(maxIncoming),
		nativemsg.WithLogger(log),
		nativemsg.WithMetrics(nativemsg.NewMetrics(reg)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = host.Run(ctx, nativemsg.HandlerFunc(func(ctx context.Context, msg nativemsg.Message, reply nativemsg.Sender) error {
		return reply.Send(ctx, msg.Raw())
	}))

	if metricsFile != "" {
		if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
			log.Error().Err(werr).Str("path", metricsFile).Msg("writing metrics")
		}
	}
	if err != nil {
		return exitFailure
	}
	return exitSuccess
}
