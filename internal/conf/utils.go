// conf/utils.go various util functions for configuration package
package conf

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// When one of them already holds a config file only that one is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get_home_directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategorySystem).
				Context("operation", "get_executable_path").
				Build()
		}
		configPaths = []string{
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "cardoc"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "cardoc"),
			"/etc/cardoc",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}

// ResolveFfmpegPath returns the configured ffmpeg binary, falling back to PATH.
// An empty result means compressed formats cannot be decoded.
func ResolveFfmpegPath(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name = "ffmpeg.exe"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// moveFile copies src to dst and removes src
func moveFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Context("path", src).Build()
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Context("path", dst).Build()
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Context("path", dst).Build()
	}
	if err := out.Close(); err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Context("path", dst).Build()
	}
	return os.Remove(src)
}
