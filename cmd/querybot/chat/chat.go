package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/querybot/cmd/querybot/session"
	"github.com/papercomputeco/querybot/pkg/config"
	"github.com/papercomputeco/querybot/tui"
)

const chatLongDesc string = `Open the interactive chat.

Type a question and press enter. While the server is working the input is
locked and a spinner is shown; the reply is rendered as markdown.

Keys:
  enter         send
  alt+enter     newline
  ctrl+l        clear the conversation
  ctrl+t        show the SQL the server ran for each reply
  pgup/pgdn     scroll
  esc, ctrl+c   quit

Logs are written to the configured log_file (~/.querybot/querybot.log).
Edits to the config file are picked up for the next question.

Examples:
  querybot chat
  querybot chat --base-url http://10.0.0.5:5000`

const chatShortDesc string = "Open the interactive chat"

type chatCommander struct {
	opts    session.Options
	watch   bool
	noColor bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmder.opts.Bind(cmd.Flags())
	cmd.Flags().BoolVar(&cmder.watch, "watch", true, "Reload the config file when it changes")
	cmd.Flags().BoolVar(&cmder.noColor, "no-color", false, "Disable colors")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("chat needs an interactive terminal; use 'querybot ask' for pipes")
	}

	sess, err := c.opts.Open(nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	style := sess.Config.GlamourStyle
	if c.noColor || sess.Config.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
		style = "notty"
	}
	renderer := tui.NewRenderer(style)

	if c.watch {
		c.watchConfig(ctx, sess)
	}

	if err := tui.Run(ctx, sess.Store, renderer, tui.Options{Endpoint: sess.Config.BaseURL}); err != nil {
		return fmt.Errorf("chat exited: %w", err)
	}
	return nil
}

// watchConfig applies config file edits to the running session. A config
// file in a directory that does not exist yet is simply not watched.
func (c *chatCommander) watchConfig(ctx context.Context, sess *session.Session) {
	w, err := config.NewWatcher(sess.ConfigPath, sess.Logger)
	if err != nil {
		sess.Logger.Debug("config watching disabled", zap.Error(err))
		return
	}

	go func() {
		_ = w.Run(ctx, c.opts.Apply, func(cfg *config.Config) {
			if err := sess.Client.Reconfigure(session.ClientConfig(cfg)); err != nil {
				sess.Logger.Warn("could not apply config change", zap.Error(err))
				return
			}
			sess.Store.SetTimeout(cfg.Timeout.Duration)
		})
	}()
}
