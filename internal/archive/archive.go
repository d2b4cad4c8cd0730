// Package archive keeps the raw uploads behind each diagnosis on a local
// directory, an FTP server or an SFTP server.
package archive

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// Buckets group archived uploads by diagnosis type.
const (
	BucketEngineSounds    = "engine-sounds"
	BucketDashboardImages = "dashboard-images"
)

// Target stores opaque blobs under slash-separated keys.
type Target interface {
	Name() string
	Store(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// New builds the target selected in settings.
func New(settings *conf.ArchiveSettings) (Target, error) {
	switch settings.Target {
	case conf.ArchiveTargetLocal, "":
		return NewLocalTarget(settings.Path)
	case conf.ArchiveTargetFTP:
		return NewFTPTarget(&FTPConfig{
			Host:     settings.FTP.Host,
			Port:     settings.FTP.Port,
			Username: settings.FTP.Username,
			Password: settings.FTP.Password,
			BasePath: settings.FTP.Path,
			Timeout:  settings.FTP.Timeout,
		})
	case conf.ArchiveTargetSFTP:
		return NewSFTPTarget(&SFTPConfig{
			Host:           settings.SFTP.Host,
			Port:           settings.SFTP.Port,
			Username:       settings.SFTP.Username,
			Password:       settings.SFTP.Password,
			KeyFile:        settings.SFTP.KeyFile,
			KnownHostsFile: settings.SFTP.KnownHostsFile,
			BasePath:       settings.SFTP.Path,
			Timeout:        settings.SFTP.Timeout,
		})
	default:
		return nil, configError("unknown archive target " + settings.Target)
	}
}

// Key builds the archive key "<bucket>/<user>/<id><ext>". Characters
// outside [A-Za-z0-9._-] in the user id are replaced so a user id can
// never escape its directory.
func Key(bucket, userID, id, ext string) (string, error) {
	user := sanitizeSegment(userID)
	name := sanitizeSegment(id)
	if user == "" || name == "" {
		return "", errors.Newf("archive key needs a user id and a record id").
			Component("archive").
			Category(errors.CategoryValidation).
			Build()
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(bucket, user, name+strings.ToLower(ext)), nil
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	if strings.Trim(s, ".") == "" {
		return ""
	}
	return s
}

// Store archives data under key on target and logs the outcome.
func Store(ctx context.Context, target Target, key string, data []byte) error {
	start := time.Now()
	err := target.Store(ctx, key, data)
	log := GetLogger().WithContext(ctx)
	if err != nil {
		log.Warn("archive store failed",
			logger.String("target", target.Name()),
			logger.String("key", key),
			logger.Error(err))
		return err
	}
	log.Debug("upload archived",
		logger.String("target", target.Name()),
		logger.String("key", key),
		logger.Int("size_bytes", len(data)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// GetLogger returns the archive logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("archive")
}

func archiveError(err error, target, operation string) error {
	return errors.New(err).
		Component("archive").
		Category(errors.CategoryArchive).
		Context("target", target).
		Context("operation", operation).
		Build()
}

func configError(message string) error {
	return errors.Newf("%s", message).
		Component("archive").
		Category(errors.CategoryConfiguration).
		Build()
}
