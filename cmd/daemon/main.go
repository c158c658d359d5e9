package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager"
	"github.com/jorenkoyen/swarmgate/manager/db"
	"github.com/jorenkoyen/swarmgate/manager/docker"
	"github.com/jorenkoyen/swarmgate/manager/store"
	"github.com/jorenkoyen/swarmgate/proxy"
	"github.com/jorenkoyen/swarmgate/resolver"
	"github.com/jorenkoyen/swarmgate/server"
)

func run(ctx context.Context, args []string) error {
	// parse CLI options
	opts, err := Parse(args)
	if err != nil {
		return err
	}

	file, err := os.Open(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to open configuration file: %w", err)
	}

	config, err := ReadConfig(file)
	_ = file.Close()
	if err != nil {
		return err
	}

	if opts.ValidateConfig {
		fmt.Fprintf(os.Stdout, "Configuration file %s is valid\n", opts.Config)
		return nil
	}

	var formatter logger.Formatter = logger.NewTextFormatter()
	if config.LogPretty {
		// override formatter with pretty formatter
		formatter = logger.NewPrettyFormatter()
	}
	log.SetDefaultLogger(logger.NewWithOptions(logger.Options{
		Writer:    os.Stdout,
		Formatter: formatter,
		Level:     *config.Level(),
	}))

	// listen for ctrl+c notifies
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// create database client
	database, err := db.NewClient(config.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	// create routing table
	routes := manager.NewRouteManager(store.NewFile(config.RouteStorePath()))

	// create certificate manager
	certificates := manager.NewCertificateManager(database, config.Certificates.CertbotDirectory, config.Certificates.OutputDirectory)
	certificates.WebrootDir = config.Proxy.WebrootDirectory
	certificates.PublicIP = config.Certificates.PublicIP
	certificates.DummyMode = config.Certificates.DummyMode
	certificates.AllowPrivateNetworks = config.Certificates.AllowPrivateNetworks

	// create reverse proxy
	dispatcher := proxy.NewServer()
	dispatcher.Routes = routes
	dispatcher.Resolver = resolver.NewResolver()
	dispatcher.Certificates = certificates
	dispatcher.DefaultBackendAddress = config.Proxy.DefaultBackend
	dispatcher.WebrootDir = config.Proxy.WebrootDirectory

	// create management server
	srv := server.NewServer(config.ListenAddress)
	srv.Routes = routes
	srv.Certificates = certificates

	// start service discovery when enabled
	if config.Discovery.Enabled {
		dckr, err := docker.NewClient(config.Discovery.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to connect to orchestrator: %w", err)
		}
		defer dckr.Close()

		discovery := manager.NewDiscovery(routes, dckr)
		discovery.Interval = config.DiscoveryInterval()
		go discovery.Run(ctx)
	}

	failures := make(chan error, 3)
	listen := func(name string, fn func(context.Context) error) {
		go func() {
			if err := fn(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				failures <- fmt.Errorf("%s listener failed: %w", name, err)
			} else {
				failures <- nil
			}
		}()
	}

	listen("proxy-http", func(ctx context.Context) error {
		return dispatcher.ListenForHTTP(ctx, config.Proxy.HttpListenAddress)
	})
	listen("management", srv.Listen)

	// the HTTPS listener only starts when a routed domain has usable
	// certificate files backing it
	listeners := 2
	if usable := certificates.UsableDomains(routes.Domains()); len(usable) > 0 {
		listeners++
		listen("proxy-https", func(ctx context.Context) error {
			return dispatcher.ListenForHTTPS(ctx, config.Proxy.HttpsListenAddress)
		})
	} else {
		log.WithName("daemon").Warning("No usable certificates found, HTTPS listener disabled")
	}

	for i := 0; i < listeners; i++ {
		if err := <-failures; err != nil {
			cancel()
			return err
		}
	}

	return nil
}

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
