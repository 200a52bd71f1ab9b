package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg   config
		query string
		limit int64
		role  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Text to search for in stored turns",
			Sources:     cli.EnvVars("MNEMO_SEARCH_QUERY"),
			Destination: &query,
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of turns to return",
			Value:       5,
			Sources:     cli.EnvVars("MNEMO_SEARCH_LIMIT"),
			Destination: &limit,
		},
		&cli.StringFlag{
			Name:        "role",
			Aliases:     []string{"r"},
			Usage:       "Restrict results to a role (user, assistant)",
			Destination: &role,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Search stored turns by semantic similarity",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			var opts []repository.SearchOption
			if role != "" {
				r := model.Role(role)
				if err := r.Validate(); err != nil {
					return err
				}
				opts = append(opts, repository.WithRole(r))
			}

			a, err := cfg.newRetrieval(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.store.Search(ctx, query, int(limit), opts...)
			if err != nil {
				return goerr.Wrap(err, "failed to search memory")
			}

			if len(results) == 0 {
				fmt.Fprintf(c.Root().Writer, "No stored turns found\n")
				return nil
			}

			for _, r := range results {
				fmt.Fprintf(c.Root().Writer, "%.3f\t%s\t%s\t%s\n",
					r.Score,
					r.Timestamp.Format(time.DateTime),
					r.Role,
					r.Content,
				)
			}

			return nil
		},
	}
}
