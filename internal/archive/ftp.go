package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/cardoc/cardoc-go/internal/logger"
)

// DefaultFTPPort is used when the configuration carries no port.
const DefaultFTPPort = 21

// FTPConfig holds configuration for the FTP target
type FTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	BasePath     string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// FTPTarget archives to an FTP server. Each operation uses its own
// connection.
type FTPTarget struct {
	config FTPConfig
	log    logger.Logger
}

// NewFTPTarget validates config and fills in defaults.
func NewFTPTarget(config *FTPConfig) (*FTPTarget, error) {
	if config.Host == "" {
		return nil, configError("ftp: host is required")
	}
	cfg := *config
	if cfg.Port == 0 {
		cfg.Port = DefaultFTPPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")

	return &FTPTarget{config: cfg, log: GetLogger().Module("ftp")}, nil
}

// Name returns the name of this target
func (t *FTPTarget) Name() string {
	return "ftp"
}

func (t *FTPTarget) addr() string {
	return t.config.Host + ":" + strconv.Itoa(t.config.Port)
}

func (t *FTPTarget) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(t.addr(),
		ftp.DialWithTimeout(t.config.Timeout),
		ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	if t.config.Username != "" {
		if err := conn.Login(t.config.Username, t.config.Password); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftp login: %w", err)
		}
	}
	return conn, nil
}

func (t *FTPTarget) remotePath(key string) string {
	return path.Join(t.config.BasePath, key)
}

// Store uploads to a temporary name and renames it into place.
func (t *FTPTarget) Store(ctx context.Context, key string, data []byte) error {
	remote := t.remotePath(key)
	err := withRetry(ctx, RetryConfig{MaxRetries: t.config.MaxRetries, Backoff: t.config.RetryBackoff}, func() error {
		conn, err := t.connect(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := conn.Quit(); err != nil {
				t.log.Debug("ftp quit failed", logger.Error(err))
			}
		}()

		makeDirs(conn, path.Dir(remote))

		tmp := path.Join(path.Dir(remote), fmt.Sprintf(".upload-%d", time.Now().UnixNano()))
		if err := conn.Stor(tmp, bytes.NewReader(data)); err != nil {
			_ = conn.Delete(tmp)
			return err
		}
		if err := conn.Rename(tmp, remote); err != nil {
			_ = conn.Delete(tmp)
			return err
		}
		return nil
	})
	if err != nil {
		return archiveError(err, "ftp", "store")
	}
	return nil
}

// Delete removes the file stored under key.
func (t *FTPTarget) Delete(ctx context.Context, key string) error {
	conn, err := t.connect(ctx)
	if err != nil {
		return archiveError(err, "ftp", "delete")
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Delete(t.remotePath(key)); err != nil {
		return archiveError(err, "ftp", "delete")
	}
	return nil
}

// makeDirs creates every component of dir. Errors are ignored because
// servers report existing directories as failures.
func makeDirs(conn *ftp.ServerConn, dir string) {
	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for part := range strings.SplitSeq(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		_ = conn.MakeDir(current)
	}
}
