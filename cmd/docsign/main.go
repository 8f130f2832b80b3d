// Command docsign places captured signature images into PDF documents.
//
// Usage:
//
//	docsign <command> [options] <args>
//
// Commands:
//
//	stamp    Stamp signed fields into a PDF file
//	typed    Render a typed signature to a PNG file
//	serve    Run the HTTP signing API
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Stamp the signed fields of fields.json into a copy of input.pdf
//	docsign stamp input.pdf fields.json output.pdf
//
//	# Serve the API with a configuration file
//	docsign serve -config docsign.yaml
package main

import (
	"os"

	"github.com/pari-ranasaria28/Document-Signature-App/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/docsign
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime
	cli.Run(os.Args)
}
