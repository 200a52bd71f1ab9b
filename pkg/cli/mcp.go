package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/service/mcp"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, profileFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve memory tools over MCP on stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol, so logs go to stderr
			ctx = cfg.withLogger(ctx, c.Root().ErrWriter)

			a, err := cfg.newRetrieval(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			server := mcp.NewServer(mcp.Deps{
				Store:   a.store,
				Recall:  a.recall,
				Profile: a.rag,
			}, Version)

			logging.From(ctx).Info("serving MCP on stdio", "store", cfg.store)
			if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
				return goerr.Wrap(err, "MCP server stopped")
			}
			return nil
		},
	}
}
