package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jorenkoyen/swarmgate/api"
	"github.com/urfave/cli/v2"
)

func certificate() *cli.Command {
	return &cli.Command{
		Name:    "certificate",
		Aliases: []string{"cert"},
		Usage:   "Manage certificates",
		Subcommands: []*cli.Command{
			{
				Name:      "request",
				Usage:     "Request or renew the certificate for the specified domain",
				Action:    requestCertificateHandler,
				Args:      true,
				ArgsUsage: "[domain]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Contact email address for the certificate authority",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "staging",
						Usage: "Use the staging certificate authority",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Renew even when a valid certificate exists",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show the lifecycle state of a domain's certificate",
				Action:    statusCertificateHandler,
				Args:      true,
				ArgsUsage: "[domain]",
			},
		},
	}
}

func requestCertificateHandler(c *cli.Context) error {
	domain := c.Args().First()
	if domain == "" {
		return errors.New("domain argument is required")
	}

	client, err := clientFromContext(c)
	if err != nil {
		return err
	}

	record, err := client.CertificateRequest(c.Context, api.CertificateRequest{
		Domain:     domain,
		Email:      c.String("email"),
		Staging:    c.Bool("staging"),
		ForceRenew: c.Bool("force"),
	})
	if err != nil {
		return fmt.Errorf("failed to request certificate: %w", err)
	}

	return printCertificateRecord(record)
}

func statusCertificateHandler(c *cli.Context) error {
	domain := c.Args().First()
	if domain == "" {
		return errors.New("domain argument is required")
	}

	client, err := clientFromContext(c)
	if err != nil {
		return err
	}

	record, err := client.CertificateStatus(c.Context, domain)
	if err != nil {
		return fmt.Errorf("failed to retrieve certificate status: %w", err)
	}

	return printCertificateRecord(record)
}

func printCertificateRecord(record *api.CertificateRecord) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "%s:\t%s\n", "Domain", record.Domain)
	fmt.Fprintf(writer, "%s:\t%s\n", "Status", record.Status)
	if record.Expiry != "" {
		fmt.Fprintf(writer, "%s:\t%s\n", "Expiry", record.Expiry)
	}
	if record.CertPath != "" {
		fmt.Fprintf(writer, "%s:\t%s\n", "Certificate", record.CertPath)
		fmt.Fprintf(writer, "%s:\t%s\n", "Private Key", record.KeyPath)
	}
	if record.Error != "" {
		fmt.Fprintf(writer, "%s:\t%s\n", "Error", record.Error)
	}

	return writer.Flush()
}
