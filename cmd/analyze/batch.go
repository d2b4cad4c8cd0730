package analyze

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/cpuspec"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/myaudio"
)

// imageExtensions are the photo types batch mode picks up.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// BatchEntry is the outcome for one file of a batch run.
type BatchEntry struct {
	Path       string  `json:"path"`
	Kind       string  `json:"kind"` // "audio" or "image"
	Successful bool    `json:"successful"`
	Urgency    string  `json:"urgency_level"`
	Confidence float64 `json:"overall_confidence"`
	Findings   int     `json:"findings"` // faults or warning lights
	Error      string  `json:"error,omitempty"`
	Result     any     `json:"result,omitempty"`
}

func batchCommand(ctx *conf.Context, newAnalyzer func() Analyzer) *cobra.Command {
	var format string
	var workers int
	cmd := &cobra.Command{
		Use:   "batch [directory]",
		Short: "Analyze every clip and photo in a directory",
		Long: `Walk a directory and analyze every supported audio clip and dashboard
photo in parallel. The worker count defaults to the number of performance
cores.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers <= 0 {
				workers = cpuspec.GetCPUSpec().WorkerCount(ctx.Settings.Analysis.Workers)
			}
			entries, err := RunBatch(cmd.Context(), newAnalyzer(), args[0], workers)
			if err != nil {
				return err
			}
			if err := writeBatch(cmd.OutOrStdout(), format, entries); err != nil {
				return err
			}
			return batchOutcome(entries)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel analyses, 0 derives the count from the CPU")
	return cmd
}

// CollectFiles returns the supported clips and photos under dir in lexical
// order.
func CollectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if myaudio.ContentTypeForFile(path) != "" || isImage(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("cli").
			Category(errors.CategoryFileIO).
			Context("directory", dir).
			Build()
	}
	return files, nil
}

// RunBatch analyses the supported files under dir with at most workers
// analyses in flight. Per-file failures are reported in the entries; only
// cancellation and directory errors fail the run.
func RunBatch(ctx context.Context, a Analyzer, dir string, workers int) ([]BatchEntry, error) {
	log := logger.Global().Module("cli")
	files, err := CollectFiles(dir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries := make([]BatchEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = analyzeFile(gctx, a, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("batch analysis completed",
		logger.String("directory", dir),
		logger.Int("files", len(files)),
		logger.Int("workers", workers),
		logger.Duration("elapsed", time.Since(start)))
	return entries, nil
}

func analyzeFile(ctx context.Context, a Analyzer, path string) BatchEntry {
	if isImage(path) {
		entry := BatchEntry{Path: path, Kind: "image"}
		result, err := analyzeImageFile(ctx, a, path)
		if result != nil {
			entry.Successful = result.Successful()
			entry.Urgency = string(result.UrgencyLevel)
			entry.Confidence = result.OverallConfidence
			entry.Findings = len(result.DetectedLights)
			entry.Result = result
		}
		if err != nil {
			entry.Error = err.Error()
		}
		return entry
	}

	entry := BatchEntry{Path: path, Kind: "audio"}
	result, err := analyzeAudioFile(ctx, a, path, "")
	if result != nil {
		entry.Successful = result.AnalysisSuccessful
		entry.Urgency = string(result.UrgencyLevel)
		entry.Confidence = result.OverallConfidence
		entry.Findings = len(result.DetectedFaults)
		entry.Result = result
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

func writeBatch(w io.Writer, format string, entries []BatchEntry) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, entries)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tKIND\tURGENCY\tCONFIDENCE\tFINDINGS\tERROR")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%d\t%s\n",
				e.Path, e.Kind, e.Urgency, e.Confidence, e.Findings, e.Error)
		}
		return tw.Flush()
	default:
		return errors.ValidationError("unsupported output format " + format + ", use table or json")
	}
}

// batchOutcome fails the command when any file could not be analysed.
func batchOutcome(entries []BatchEntry) error {
	failed := 0
	for _, e := range entries {
		if !e.Successful {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return errors.Newf("%d of %d files could not be analysed", failed, len(entries)).
		Component("cli").
		Category(errors.CategoryValidation).
		Build()
}

func isImage(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}
