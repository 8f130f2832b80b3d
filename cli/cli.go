// Package cli provides the command-line interface for stamping signed
// documents and serving the signing API.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pari-ranasaria28/Document-Signature-App/config"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "stamp":
		StampCommand(args)
	case "typed":
		TypedCommand(args)
	case "serve":
		ServeCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
		osExit(2)
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("docsign - place signature images into PDF documents\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  stamp    Stamp signed fields into a PDF file")
	fmt.Println("  typed    Render a typed signature to a PNG file")
	fmt.Println("  serve    Run the HTTP signing API")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s stamp input.pdf fields.json output.pdf\n", os.Args[0])
	fmt.Printf("  %s typed -name \"Jane Roe\" -email jane@example.com -text \"Jane Roe\" sig.png\n", os.Args[0])
	fmt.Printf("  %s serve -config docsign.yaml\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("docsign version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}

// loadConfig reads the configuration file, if any, and builds its logger.
func loadConfig(path string) (*config.AppConfig, *slog.Logger, error) {
	cfg, err := config.LoadAppConfig(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
