package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/urfave/cli/v3"
)

func rememberCommand() *cli.Command {
	var (
		cfg  config
		role string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "role",
			Aliases:     []string{"r"},
			Usage:       "Role of the turn (user, assistant)",
			Value:       string(model.RoleUser),
			Destination: &role,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "remember",
		Usage:     "Store a conversation turn in memory",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return goerr.New("text is required")
			}

			a, err := cfg.newRetrieval(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.store.Add(ctx, text, model.Role(role), time.Now())
			if err != nil {
				return goerr.Wrap(err, "failed to store turn")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", rec.ID)
			return nil
		},
	}
}
