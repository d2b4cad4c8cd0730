package myaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// FFmpegTimeout bounds a single external decode when the caller's context
// has no deadline.
const FFmpegTimeout = 60 * time.Second

// validateFFmpegPath checks if FFmpeg is available
func validateFFmpegPath(ffmpegPath string) error {
	if ffmpegPath == "" {
		return errors.Newf("FFmpeg is not available").
			Component("myaudio").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_ffmpeg_path").
			Build()
	}
	return nil
}

// ffmpegDecodeArgs builds the command line that converts input to raw
// little-endian float32 mono at the analysis rate on stdout.
func ffmpegDecodeArgs(inputPath string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", inputPath,
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"pipe:1",
	}
}

// decodeExternal stages data in a temporary file and decodes it with
// ffmpeg. The file is removed on every return path.
func (d *Decoder) decodeExternal(ctx context.Context, data []byte, ext string) ([]float64, error) {
	if err := validateFFmpegPath(d.ffmpegPath); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(d.tempDir, "cardoc-*"+ext)
	if err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp_file").
			Build()
	}
	tmpPath := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			d.log.Warn("failed to remove temporary audio file",
				logger.String("path", tmpPath),
				logger.Error(rmErr))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			Context("operation", "write_temp_file").
			Build()
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			Context("operation", "close_temp_file").
			Build()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, FFmpegTimeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	stderr := newTailWriter(stderrTailSize)
	cmd := exec.CommandContext(ctx, d.ffmpegPath, ffmpegDecodeArgs(tmpPath)...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		if ctx.Err() != nil {
			err = fmt.Errorf("ffmpeg canceled: %w", ctx.Err())
		} else if tail != "" {
			err = fmt.Errorf("ffmpeg failed: %w: %s", err, tail)
		}
		return nil, err
	}

	d.log.Debug("external decode completed",
		logger.String("extension", ext),
		logger.Int("input_bytes", len(data)),
		logger.Int("output_bytes", stdout.Len()),
		logger.Duration("duration", time.Since(start)))

	return parseFloat32LE(stdout.Bytes()), nil
}

// parseFloat32LE converts raw f32le PCM into float64 samples. A trailing
// partial sample is ignored.
func parseFloat32LE(raw []byte) []float64 {
	out := make([]float64, len(raw)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out
}
