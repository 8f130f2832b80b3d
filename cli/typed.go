package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pari-ranasaria28/Document-Signature-App/capture"
)

// TypedOptions contains options for the typed command.
type TypedOptions struct {
	ConfigFile string
	Text       string
	Name       string
	Email      string
}

// TypedCommand implements the 'typed' command.
func TypedCommand(args []string) {
	typedFlags := flag.NewFlagSet("typed", flag.ExitOnError)

	var opts TypedOptions

	typedFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	typedFlags.StringVar(&opts.Text, "text", "", "Text to render (defaults to the signer name)")
	typedFlags.StringVar(&opts.Name, "name", "", "Name of the signer")
	typedFlags.StringVar(&opts.Email, "email", "", "Email address of the signer")

	typedFlags.Usage = func() {
		fmt.Printf("Usage: %s typed [options] <output.png>\n\n", os.Args[0])
		fmt.Println("Render a typed signature with the configured canvas size.")
		fmt.Println("")
		fmt.Println("Options:")
		typedFlags.PrintDefaults()
	}

	if err := typedFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(typedFlags.Args()) < 1 {
		typedFlags.Usage()
		osExit(1)
		return
	}

	if err := typedFile(context.Background(), typedFlags.Arg(0), &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}
	fmt.Printf("Wrote typed signature: %s\n", typedFlags.Arg(0))
}

func typedFile(ctx context.Context, outputPath string, opts *TypedOptions) error {
	cfg, _, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	captureOpts, err := capture.OptionsFromConfig(cfg.Capture)
	if err != nil {
		return err
	}

	text := opts.Text
	if text == "" {
		text = opts.Name
	}
	pad := capture.NewTypedPad(captureOpts, nil)
	pad.SetText(text)
	sig, err := pad.Complete(ctx, capture.Signer{Name: opts.Name, Email: opts.Email})
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, sig.PNG, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
