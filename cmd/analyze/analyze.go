// Package analyze implements the offline analysis commands. Files are run
// through the same core as the HTTP API, without the service collaborators.
package analyze

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/myaudio"
	"github.com/cardoc/cardoc-go/internal/service"
)

// Analyzer is the analysis core as used by the CLI.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, data []byte, contentType, filename string) (*diagnosis.AudioResult, error)
	AnalyzeImage(ctx context.Context, data []byte) (*diagnosis.ImageResult, error)
}

// Command creates the analyze command and its audio, image and batch
// subcommands.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze engine sound clips and dashboard photos",
	}

	newAnalyzer := func() Analyzer {
		return service.NewAnalyzer(ctx.Settings, nil)
	}

	cmd.AddCommand(
		audioCommand(newAnalyzer),
		imageCommand(newAnalyzer),
		batchCommand(ctx, newAnalyzer),
	)
	return cmd
}

func audioCommand(newAnalyzer func() Analyzer) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "audio [clip]",
		Short: "Analyze an engine sound clip",
		Long:  `Analyze a wav, flac, mp3, m4a or ogg recording of a running engine and print the result as JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := analyzeAudioFile(cmd.Context(), newAnalyzer(), args[0], contentType)
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Override the content type derived from the file extension")
	return cmd
}

func imageCommand(newAnalyzer func() Analyzer) *cobra.Command {
	return &cobra.Command{
		Use:   "image [photo]",
		Short: "Analyze a dashboard photo",
		Long:  `Analyze a jpeg or png photo of an instrument cluster and print the result as JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := analyzeImageFile(cmd.Context(), newAnalyzer(), args[0])
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}

func analyzeAudioFile(ctx context.Context, a Analyzer, path, contentType string) (*diagnosis.AudioResult, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = myaudio.ContentTypeForFile(path)
	}
	return a.AnalyzeAudio(ctx, data, contentType, filepath.Base(path))
}

func analyzeImageFile(ctx context.Context, a Analyzer, path string) (*diagnosis.ImageResult, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeImage(ctx, data)
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("cli").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
