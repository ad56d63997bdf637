package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/pkg/types"
)

func newReplCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat with the webhook from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), cmd, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			// Ctrl-C cancels the in-flight exchange and ends the loop
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runREPL(ctx, a.chat, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

const replHelp = `/history  print the transcript
/clear    forget the transcript
/test     run the connectivity self-test
/quit     exit`

func runREPL(ctx context.Context, c *chat.Controller, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "Chat with the webhook (/help for commands, Ctrl-C to quit)")
	for {
		fmt.Fprint(out, "\u001b[94mYou\u001b[0m: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting...")
			return nil
		case l, ok := <-inputCh:
			if !ok {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, replHelp)
			continue
		case "/history":
			printTranscript(out, c.History())
			continue
		case "/clear":
			c.Clear()
			fmt.Fprintln(out, "history cleared")
			continue
		case "/test":
			if _, err := c.CheckConnectivity(ctx); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if h := c.History(); len(h) > 0 {
				printMessage(out, h[len(h)-1])
			}
			continue
		}

		turn, err := c.Send(ctx, line)
		if err != nil {
			if errors.Is(err, chat.ErrInvalidInput) {
				fmt.Fprintf(out, "message must be %d-%d characters\n", types.MinTextLen, types.MaxTextLen)
				continue
			}
			return err
		}
		if turn.Reply != nil {
			fmt.Fprintf(out, "\u001b[93mBot\u001b[0m: %s\n", turn.Reply.Text)
			continue
		}
		fmt.Fprintln(out, describeFailure(turn.Result))
	}
}

func describeFailure(res exchange.Result) string {
	switch v := res.(type) {
	case exchange.HTTPFailure:
		return fmt.Sprintf("webhook error: HTTP %d: %s\n%s", v.Status, v.StatusText, v.RawBody)
	case exchange.NetworkFailure:
		return "connection error: " + v.Reason
	case exchange.MalformedResponse:
		return "unrecognized webhook response:\n" + v.RawBody
	}
	return string(res.Kind())
}

func printTranscript(out io.Writer, msgs []types.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, "(no messages)")
		return
	}
	for _, m := range msgs {
		printMessage(out, m)
	}
}

func printMessage(out io.Writer, m types.Message) {
	fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format(types.TimestampLayout), m.Sender, m.Text)
}
