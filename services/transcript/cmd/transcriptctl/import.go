package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/lecture-platform/services/transcript/internal/ingest"
	"github.com/example/lecture-platform/services/transcript/internal/store"
)

// Manifest lists caption files to import in one run.
//
//	lectures:
//	  - lecture: 123
//	    format: srt
//	    file: captions/123.srt
type Manifest struct {
	Lectures []ManifestEntry `yaml:"lectures"`
}

type ManifestEntry struct {
	Lecture int64  `yaml:"lecture"`
	Format  string `yaml:"format,omitempty"`
	File    string `yaml:"file"`
}

// LoadManifest reads a manifest; relative file paths resolve against its directory.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Lectures) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s lists no lectures", path)
	}
	base := filepath.Dir(path)
	for i, e := range m.Lectures {
		if e.Lecture <= 0 {
			return Manifest{}, fmt.Errorf("manifest entry %d: lecture must be positive", i)
		}
		if e.File == "" {
			return Manifest{}, fmt.Errorf("manifest entry %d: file is required", i)
		}
		if !filepath.IsAbs(e.File) {
			m.Lectures[i].File = filepath.Join(base, e.File)
		}
	}
	return m, nil
}

// formatFor picks the explicit format or infers it from the file extension.
func formatFor(explicit, file string) (ingest.Format, error) {
	if explicit != "" {
		return ingest.ParseFormat(explicit)
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".srt":
		return ingest.FormatSRT, nil
	case ".xml":
		return ingest.FormatTimedText, nil
	case ".json":
		return ingest.FormatJSON, nil
	}
	return "", fmt.Errorf("cannot infer format of %s; pass --format", file)
}

func newImportCmd(a *app) *cobra.Command {
	var (
		lecture  int64
		format   string
		manifest string
	)
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import caption files into the store",
		Long: `Import one caption file for --lecture, or every entry of a YAML --manifest.
Formats: srt, timedtext (YouTube XML), json (array of transcript lines).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []ManifestEntry
			switch {
			case manifest != "" && len(args) > 0:
				return errors.New("pass either a file or --manifest, not both")
			case manifest != "":
				m, err := LoadManifest(manifest)
				if err != nil {
					return err
				}
				entries = m.Lectures
			case len(args) == 1:
				if lecture <= 0 {
					return errors.New("--lecture must be a positive id")
				}
				entries = []ManifestEntry{{Lecture: lecture, Format: format, File: args[0]}}
			default:
				return errors.New("nothing to import")
			}

			return a.withStore(cmd.Context(), func(s store.Store) error {
				svc := ingest.NewService(s, a.log)
				for _, e := range entries {
					f, err := formatFor(e.Format, e.File)
					if err != nil {
						return err
					}
					data, err := os.ReadFile(e.File)
					if err != nil {
						return err
					}
					lines, err := svc.IngestPayload(cmd.Context(), e.Lecture, f, data)
					if err != nil {
						return fmt.Errorf("lecture %d (%s): %w", e.Lecture, e.File, err)
					}
					fmt.Fprintf(a.out, "lecture %d: imported %d lines from %s\n", e.Lecture, len(lines), e.File)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&lecture, "lecture", 0, "Lecture id the file belongs to")
	cmd.Flags().StringVar(&format, "format", "", "srt, timedtext or json (default: from extension)")
	cmd.Flags().StringVar(&manifest, "manifest", "", "YAML manifest of files to import")
	return cmd
}
