package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pari-ranasaria28/Document-Signature-App/server"
)

// ServeCommand implements the 'serve' command.
func ServeCommand(args []string) {
	serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)

	configFile := serveFlags.String("config", "", "YAML configuration file")
	addr := serveFlags.String("addr", "", "Listen address (overrides the configuration)")

	serveFlags.Usage = func() {
		fmt.Printf("Usage: %s serve [options]\n\n", os.Args[0])
		fmt.Println("Run the HTTP signing API until interrupted.")
		fmt.Println("")
		fmt.Println("Options:")
		serveFlags.PrintDefaults()
	}

	if err := serveFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, *configFile, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func serve(ctx context.Context, configFile, addr string) error {
	cfg, logger, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	srv, err := server.New(cfg, nil, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
