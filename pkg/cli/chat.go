package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/usecase/chat"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session ID to continue a saved conversation",
			Sources:     cli.EnvVars("MNEMO_SESSION_ID"),
			Destination: &sessionID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, profileFlags(&cfg)...)
	flags = append(flags, historyFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)
			w := c.Root().Writer

			// Initialize dependencies
			a, err := cfg.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			storage, closeStorage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage()

			id := model.SessionID(sessionID)
			if id == "" {
				id = model.NewSessionID()
			}

			session, err := chat.New(ctx, chat.NewInput{
				Router:    a.router,
				Store:     a.store,
				Profiles:  a.profiles,
				Generator: a.generator,
				Locator:   a.locator,
				Storage:   storage,
				SessionID: &id,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create chat session")
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     filepath.Join(cfg.dataDir, "readline_history"),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          w,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintf(w, "Chat session %s started. Type 'exit' to quit.\n", id)

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if len(line) == 0 {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" || message == "quit" {
					break
				}
				if message == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.Root().ErrWriter))
				sp.Suffix = " thinking..."
				sp.Start()
				resp, err := session.Send(ctx, message)
				sp.Stop()

				if err != nil {
					logging.From(ctx).Error("failed to answer", "error", err)
					continue
				}

				fmt.Fprintf(w, "[%s] %s\n", resp.Reply.Source, resp.Reply.Text)
				if resp.ProfileUpdate != nil {
					fmt.Fprintf(w, "(profile updated: %s)\n", resp.ProfileUpdate.Text())
				}
			}

			fmt.Fprintf(w, "\nConversation saved as session %s\n", session.History().ID)
			return nil
		},
	}
}
