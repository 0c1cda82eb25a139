package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/viper"

	"github.com/mamaar/merak/internal/cli"
	"github.com/mamaar/merak/internal/config"
	"github.com/mamaar/merak/internal/mcp"
	"github.com/mamaar/merak/pkg/build"
)

func main() {
	var (
		configFlag   = flag.String("config", "", "Config file (default .merak.toml in the working or home directory)")
		portFlag     = flag.Int("port", 0, "TCP port to listen on (0 for stdio)")
		sessionsFlag = flag.Int("sessions", mcp.DefaultSessions, "Number of packages kept in memory")
		debugFlag    = flag.Bool("debug", false, "Enable debug logging")
		versionFlag  = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("merak-mcp v%s\n", cli.Version)
		fmt.Println("Model Context Protocol server for Python package flattening")
		os.Exit(0)
	}

	v := viper.New()
	if err := config.Init(v, *configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr.
	verbose := max(cfg.Verbose, 1)
	if *debugFlag {
		verbose = 2
	}
	logger := cli.NewLogger(os.Stderr, verbose, cfg.Color).With(cli.LoggerKey, "merak.mcp")

	state, err := mcp.NewMCPServer(build.Options{
		Suffixes: cfg.Suffixes,
		Exclude:  cfg.Exclude,
		Sep:      cfg.Sep,
		Prefix:   cfg.Prefix,
		PyCmd:    cfg.PyCmd,
	}, *sessionsFlag, logger)
	if err != nil {
		logger.Error("failed to create server", "err", err)
		os.Exit(1)
	}
	srv := mcp.NewServer(state, cli.Version)

	if *portFlag == 0 {
		logger.Info("serving on stdio")
		if err := server.ServeStdio(srv); err != nil {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(srv)
	addr := fmt.Sprintf(":%d", *portFlag)
	logger.Info("starting HTTP server", "addr", addr)
	if err := httpServer.Start(addr); err != nil {
		logger.Error("HTTP server failed", "err", err)
		os.Exit(1)
	}
}
