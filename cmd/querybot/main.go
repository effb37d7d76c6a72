package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/querybot/cmd/querybot/ask"
	chatcmder "github.com/papercomputeco/querybot/cmd/querybot/chat"
	configcmder "github.com/papercomputeco/querybot/cmd/querybot/configcmd"
)

const rootLongDesc string = `QueryBot is a terminal client for a QueryBot server.

Questions are POSTed to the server's /ask endpoint and the summary it
returns is shown as a chat reply.

Run without a subcommand to open the interactive chat.`

func newRootCmd() *cobra.Command {
	chat := chatcmder.NewChatCmd()

	cmd := &cobra.Command{
		Use:           "querybot",
		Short:         "Chat with a QueryBot server",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          chat.RunE,
	}

	// The root command runs chat, so it takes chat's flags too.
	cmd.Flags().AddFlagSet(chat.Flags())

	cmd.AddCommand(chat)
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
