package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/usecase/rag"
	"github.com/urfave/cli/v3"
)

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage the user's long-term profile",
		Commands: []*cli.Command{
			profileListCommand(),
			profileSetCommand(),
			profileQueryCommand(),
		},
	}
}

func profileListCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, profileFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List profile facts",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			profile, err := cfg.newProfiles().GetProfile(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to load profile")
			}

			if len(profile.Facts) == 0 {
				fmt.Fprintf(c.Root().Writer, "Profile is empty\n")
				return nil
			}
			for _, f := range profile.Facts {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\n", f.Key, f.Value)
			}
			return nil
		},
	}
}

func profileSetCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, profileFlags(&cfg)...)

	return &cli.Command{
		Name:      "set",
		Usage:     "Set a profile fact",
		ArgsUsage: "<key> <value>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			if c.Args().Len() < 2 {
				return goerr.New("key and value are required")
			}
			fact := model.ProfileFact{
				Key:   c.Args().First(),
				Value: strings.Join(c.Args().Tail(), " "),
			}

			if err := cfg.newProfiles().PutFact(ctx, fact); err != nil {
				return goerr.Wrap(err, "failed to update profile")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", fact.Text())
			return nil
		},
	}
}

func profileQueryCommand() *cli.Command {
	var (
		cfg       config
		topK      int64
		threshold float64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of facts to retrieve",
			Value:       3,
			Destination: &topK,
		},
		&cli.FloatFlag{
			Name:        "threshold",
			Usage:       "Minimum similarity of the best fact",
			Value:       0.7,
			Destination: &threshold,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, profileFlags(&cfg)...)

	return &cli.Command{
		Name:      "query",
		Usage:     "Answer a question from the profile only",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			embedder, err := cfg.newEmbedder(ctx)
			if err != nil {
				return err
			}
			defer embedder.Close()

			answer, err := rag.New(cfg.newProfiles(), embedder).Query(ctx, question,
				rag.WithTopK(int(topK)),
				rag.WithThreshold(threshold),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to query profile")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", answer.String())
			return nil
		},
	}
}
