package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, profileFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Route a single query and print the reply without storing it",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			a, err := cfg.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.router.Route(ctx, query, nil)
			if err != nil {
				return goerr.Wrap(err, "failed to route query")
			}

			fmt.Fprintf(c.Root().Writer, "[%s/%s] %s\n", reply.Intent, reply.Source, reply.Text)
			return nil
		},
	}
}
