package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/stamp"
)

// StampOptions contains options for the stamp command.
type StampOptions struct {
	ConfigFile     string
	PointsPerPixel float64
	ScaleMode      string
	Report         bool
}

// StampCommand implements the 'stamp' command.
func StampCommand(args []string) {
	stampFlags := flag.NewFlagSet("stamp", flag.ExitOnError)

	var opts StampOptions

	stampFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	stampFlags.Float64Var(&opts.PointsPerPixel, "ppp", 0, "PDF points per stored pixel (overrides the configuration)")
	stampFlags.StringVar(&opts.ScaleMode, "scale-mode", "", "Image scaling inside the field box: stretch, fit, fill")
	stampFlags.BoolVar(&opts.Report, "report", false, "Print the placement report as JSON")

	stampFlags.Usage = func() {
		fmt.Printf("Usage: %s stamp [options] <input.pdf> <fields.json> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Stamp the images of signed fields into a PDF file.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  input.pdf    Original PDF file")
		fmt.Println("  fields.json  JSON array of field records")
		fmt.Println("  output.pdf   Output file for the stamped PDF")
		fmt.Println("")
		fmt.Println("Options:")
		stampFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s stamp input.pdf fields.json output.pdf\n", os.Args[0])
		fmt.Printf("  %s stamp -ppp 0.75 -scale-mode fit input.pdf fields.json output.pdf\n", os.Args[0])
	}

	if err := stampFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(stampFlags.Args()) < 3 {
		stampFlags.Usage()
		osExit(1)
		return
	}

	report, err := stampFile(stampFlags.Arg(0), stampFlags.Arg(1), stampFlags.Arg(2), &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	if opts.Report {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			osExit(1)
		}
		return
	}
	fmt.Printf("Stamped %d field(s) into %s (%d skipped)\n", len(report.Placements), stampFlags.Arg(2), len(report.Skipped))
}

// stampReport is the JSON form of a stamp.Report.
type stampReport struct {
	PageCount      int              `json:"pageCount"`
	Eligible       int              `json:"eligible"`
	ImagesEmbedded int              `json:"imagesEmbedded"`
	Placements     []placementEntry `json:"placements"`
	Skipped        []skipEntry      `json:"skipped,omitempty"`
}

type placementEntry struct {
	FieldID    string     `json:"fieldId"`
	PageNumber int        `json:"pageNumber"`
	Resource   string     `json:"resource"`
	Rect       [4]float64 `json:"rect"`
}

type skipEntry struct {
	FieldID    string `json:"fieldId"`
	PageNumber int    `json:"pageNumber"`
	Reason     string `json:"reason"`
}

func newStampReport(r *stamp.Report) *stampReport {
	out := &stampReport{
		PageCount:      r.PageCount,
		Eligible:       r.Eligible,
		ImagesEmbedded: r.ImagesEmbedded,
		Placements:     make([]placementEntry, 0, len(r.Placements)),
	}
	for _, p := range r.Placements {
		out.Placements = append(out.Placements, placementEntry{
			FieldID:    p.FieldID,
			PageNumber: p.PageNumber,
			Resource:   p.Resource,
			Rect:       [4]float64{p.Box.X, p.Box.Y, p.Box.Width, p.Box.Height},
		})
	}
	for _, s := range r.Skipped {
		out.Skipped = append(out.Skipped, skipEntry{FieldID: s.FieldID, PageNumber: s.PageNumber, Reason: s.Err.Error()})
	}
	return out
}

// stampFile stamps the fields described in fieldsPath into inputPath.
func stampFile(inputPath, fieldsPath, outputPath string, opts *StampOptions) (*stampReport, error) {
	cfg, logger, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.PointsPerPixel > 0 {
		cfg.Stamp.PointsPerPixel = opts.PointsPerPixel
	}
	if opts.ScaleMode != "" {
		cfg.Stamp.ScaleMode = opts.ScaleMode
	}
	stampOpts, err := stamp.OptionsFromConfig(cfg.Stamp, logger)
	if err != nil {
		return nil, err
	}

	original, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	recordData, err := os.ReadFile(fieldsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read fields file: %w", err)
	}
	fields, err := field.DecodeRecords(recordData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}

	snapshot := make([]field.SignedField, 0, len(fields))
	for _, f := range fields {
		snapshot = append(snapshot, f.Snapshot())
	}

	out, report, err := stamp.New(stampOpts).StampWithReport(original, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp PDF: %w", err)
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	return newStampReport(report), nil
}
