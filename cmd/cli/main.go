package main

import (
	"fmt"
	"os"

	"github.com/jorenkoyen/swarmgate/api"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "swarmctl",
		Usage: "CLI tool for swarmgate, a domain based reverse proxy for Docker Swarm deployments.",
		Commands: []*cli.Command{
			// [swarmctl] route ls
			// [swarmctl] route add :domain :backend
			// [swarmctl] route rm :domain
			route(),
			// [swarmctl] certificate request :domain
			// [swarmctl] certificate status :domain
			certificate(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// clientFromContext will create the client for communicating with the swarmgate daemon based on the CLI context.
func clientFromContext(c *cli.Context) (*api.Client, error) {
	client := api.NewClientFromEnv()
	return client, nil
}
