package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is the binary version reported to MCP clients
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "mnemo",
		Usage:   "Conversational memory and retrieval routing for a personal assistant",
		Version: Version,
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			rememberCommand(),
			searchCommand(),
			profileCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
