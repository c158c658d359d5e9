package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

func route() *cli.Command {
	return &cli.Command{
		Name:    "route",
		Aliases: []string{"rt"},
		Usage:   "Manage routing table entries",
		Subcommands: []*cli.Command{
			{
				Name:   "ls",
				Usage:  "List all registered routes",
				Action: listRouteHandler,
			},
			{
				Name:      "add",
				Usage:     "Register or overwrite the route for a domain",
				Action:    addRouteHandler,
				Args:      true,
				ArgsUsage: "[domain] [backend]",
			},
			{
				Name:      "rm",
				Usage:     "Remove the route for a domain",
				Action:    removeRouteHandler,
				Args:      true,
				ArgsUsage: "[domain]",
			},
		},
	}
}

func listRouteHandler(c *cli.Context) error {
	client, err := clientFromContext(c)
	if err != nil {
		return err
	}

	mappings, err := client.RouteList(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	// write routing table output
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"DOMAIN", "BACKEND"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	for _, mapping := range mappings {
		table.Append([]string{mapping.From, mapping.To})
	}

	table.Render()
	return nil
}

func addRouteHandler(c *cli.Context) error {
	domain := c.Args().Get(0)
	backend := c.Args().Get(1)
	if domain == "" || backend == "" {
		return errors.New("domain and backend arguments are required")
	}

	client, err := clientFromContext(c)
	if err != nil {
		return err
	}

	if err = client.RouteApply(c.Context, domain, backend); err != nil {
		return fmt.Errorf("failed to register route: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Route %s -> %s registered\n", domain, backend)
	return nil
}

func removeRouteHandler(c *cli.Context) error {
	domain := c.Args().First()
	if domain == "" {
		return errors.New("domain argument is required")
	}

	client, err := clientFromContext(c)
	if err != nil {
		return err
	}

	if err = client.RouteRemove(c.Context, domain); err != nil {
		return fmt.Errorf("failed to remove route: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Route for %s removed\n", domain)
	return nil
}
