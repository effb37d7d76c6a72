package askcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/querybot/cmd/querybot/session"
	"github.com/papercomputeco/querybot/conversation"
	"github.com/papercomputeco/querybot/tui"
)

const askLongDesc string = `Ask one or more questions without the interactive chat.

With arguments, the arguments are joined into a single question. Without
arguments, one question is read per line from stdin. Each reply is printed
as it arrives; replies are rendered as markdown when stdout is a terminal.

The command exits non-zero if any question failed to get an answer.

Examples:
  querybot ask which suppliers provide laptops?
  printf 'list all brands\ncheapest laptop\n' | querybot ask
  querybot ask --show-sql --raw "most expensive product"`

const askShortDesc string = "Ask questions from the command line"

var errAskFailed = errors.New("one or more questions failed")

type askCommander struct {
	opts    session.Options
	showSQL bool
	raw     bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmder.opts.Bind(cmd.Flags())
	cmd.Flags().BoolVar(&cmder.showSQL, "show-sql", false, "Print the SQL the server ran")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	queries, err := c.queries(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return errors.New("no question given")
	}

	var logTo io.Writer
	if c.opts.Debug {
		logTo = cmd.ErrOrStderr()
	}
	sess, err := c.opts.Open(logTo)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()

	var renderer *tui.Renderer
	if width, ok := terminalWidth(out); ok && !c.raw {
		renderer = tui.NewRenderer(sess.Config.GlamourStyle)
		if err := renderer.SetWidth(width); err != nil {
			return err
		}
	}

	failed := 0
	for i, q := range queries {
		if len(queries) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "> %s\n", q)
		}

		if err := sess.Store.Ask(ctx, q); err != nil {
			return fmt.Errorf("could not ask %q: %w", q, err)
		}

		reply := lastReply(sess.Store.State())
		if reply.Failed {
			failed++
		}

		if renderer != nil {
			fmt.Fprintln(out, renderer.Markdown(reply.Hash, reply.Text))
		} else {
			fmt.Fprintln(out, reply.Text)
		}

		if c.showSQL && reply.DebugInfo != nil && reply.DebugInfo.SQLQuery != "" {
			fmt.Fprintf(out, "-- %s (%d rows)\n", reply.DebugInfo.SQLQuery, reply.RowCount)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errAskFailed, failed, len(queries))
	}
	return nil
}

// queries joins args into one question, or reads one per non-blank line of
// in when there are no args and in is not a terminal.
func (c *askCommander) queries(in io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil
	}

	var queries []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read questions: %w", err)
	}
	return queries, nil
}

func lastReply(state conversation.State) conversation.Message {
	if len(state.Messages) == 0 {
		return conversation.Message{}
	}
	return state.Messages[len(state.Messages)-1]
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return width, true
}
