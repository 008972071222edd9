// package main implements a command-line utility that plays the browser's
// side of native messaging: it launches a host, sends it one message and
// prints the reply.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/p00ya/native-messaging/internal/nativemsg"
)

const (
	exitSuccess      = 0
	exitInvalidUsage = 1
	exitFailure      = 2
)

const (
	argHost    = 0
	argMessage = 1
)

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n"+
		"%s [-origin ORIGIN] [-timeout DURATION] HOST_BINARY JSON\n\n"+
		"JSON may be \"-\" to read the message from standard input.\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	originFlag := flag.String("origin", "chrome-extension://knldjmfmopnpolahpmmgbagdohdnhkik/",
		"Caller origin passed to the host")
	timeoutFlag := flag.Duration("timeout", 5*time.Second, "How long to wait for the reply")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: expected 2 arguments, got %d\n", flag.NArg())
		printUsage()
		os.Exit(exitInvalidUsage)
	}

	request, err := readRequest(flag.Arg(argMessage), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(exitInvalidUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()
	reply, err := call(ctx, flag.Arg(argHost), *originFlag, request)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}
	fmt.Println(string(reply))
}

// readRequest returns the JSON message given on the command line, or read
// from stdin when arg is "-".
func readRequest(arg string, stdin io.Reader) (json.RawMessage, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("reading message: %w", err)
		}
	}
	if !json.Valid(data) {
		return nil, errors.New("message is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// call launches the host binary the way a browser would and exchanges one
// message with it.
func call(ctx context.Context, binary, origin string, request json.RawMessage) (nativemsg.Message, error) {
	cmd := exec.CommandContext(ctx, binary, origin)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting host: %w", err)
	}

	reply, err := exchange(ctx, stdin, stdout, request)
	// Closing stdin is how the browser tells the host to exit.
	stdin.Close()
	if werr := cmd.Wait(); err == nil && werr != nil {
		err = fmt.Errorf("host exited: %w", werr)
	}
	return reply, err
}

// exchange writes request to the host and reads one reply.  Replies are
// subject to the host's outgoing cap.
func exchange(ctx context.Context, w io.Writer, r io.Reader, request json.RawMessage) (nativemsg.Message, error) {
	frame, err := nativemsg.EncodeRequest(request)
	if err != nil {
		return "", err
	}
	if err := nativemsg.WriteFrame(w, frame); err != nil {
		return "", err
	}

	type result struct {
		msg nativemsg.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := nativemsg.ReadMessage(r, nativemsg.MaxOutgoing)
		ch <- result{msg, err}
	}()

	select {
	case res := <-ch:
		return res.msg, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
