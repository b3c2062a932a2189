package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chat-relay/internal/chatstore"
	"chat-relay/internal/logging"
	"chat-relay/internal/relayclient"
)

const (
	commandQuit  = "/quit"
	commandClear = "/clear"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running relay from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = cfg.ChatAPIURL
			}
			log, err := logging.NewConsole(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}

			client, err := relayclient.New(baseURL)
			if err != nil {
				return err
			}
			store, err := chatstore.New(client)
			if err != nil {
				return err
			}
			log.Debug().Str("url", baseURL).Msg("relay client ready")
			return runChat(cmd.Context(), store, cmd.InOrStdin(), cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "relay API base URL (default CHAT_API_URL)")
	return cmd
}

// runChat reads one message per line until EOF or /quit.
func runChat(ctx context.Context, store *chatstore.Store, in io.Reader, out io.Writer, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintf(out, "Ask about JavaScript, HTML or CSS. %s exits, %s clears the last error.\n", commandQuit, commandClear)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case commandQuit:
			return nil
		case commandClear:
			store.ClearError()
			continue
		}

		err := store.Submit(ctx, line)
		switch {
		case errors.Is(err, chatstore.ErrEmptyMessage):
			continue
		case err != nil:
			log.Debug().Err(err).Msg("submit failed")
			fmt.Fprintf(out, "error> %s\n", store.Err())
			continue
		}

		turns := store.Turns()
		fmt.Fprintf(out, "tutor> %s\n", turns[len(turns)-1].Content)
	}
}
