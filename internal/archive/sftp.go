package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/cardoc/cardoc-go/internal/logger"
)

// DefaultSFTPPort is used when the configuration carries no port.
const DefaultSFTPPort = 22

// SFTPConfig holds configuration for the SFTP target
type SFTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string
	KnownHostsFile string
	BasePath       string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

// SFTPTarget archives to an SFTP server.
type SFTPTarget struct {
	config  SFTPConfig
	auth    []ssh.AuthMethod
	hostKey ssh.HostKeyCallback
	log     logger.Logger
}

// NewSFTPTarget validates config, loads the private key and the known
// hosts file. Without a known hosts file the host key is not verified.
func NewSFTPTarget(config *SFTPConfig) (*SFTPTarget, error) {
	if config.Host == "" {
		return nil, configError("sftp: host is required")
	}
	cfg := *config
	if cfg.Port == 0 {
		cfg.Port = DefaultSFTPPort
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

	t := &SFTPTarget{config: cfg, log: GetLogger().Module("sftp")}

	switch {
	case cfg.KeyFile != "":
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, archiveError(err, "sftp", "read_private_key")
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, archiveError(err, "sftp", "parse_private_key")
		}
		t.auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case cfg.Password != "":
		t.auth = []ssh.AuthMethod{ssh.Password(cfg.Password)}
	default:
		return nil, configError("sftp: no authentication method provided")
	}

	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, archiveError(err, "sftp", "load_known_hosts")
		}
		t.hostKey = cb
	} else {
		t.log.Warn("sftp host key verification disabled, set archive.sftp.known_hosts_file",
			logger.String("host", cfg.Host))
		t.hostKey = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via missing known_hosts_file
	}
	return t, nil
}

// Name returns the name of this target
func (t *SFTPTarget) Name() string {
	return "sftp"
}

// connect dials with ctx so cancellation aborts the TCP handshake.
func (t *SFTPTarget) connect(ctx context.Context) (*sftp.Client, io.Closer, error) {
	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
	dialer := net.Dialer{Timeout: t.config.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, &ssh.ClientConfig{
		User:            t.config.Username,
		Auth:            t.auth,
		HostKeyCallback: t.hostKey,
		Timeout:         t.config.Timeout,
	})
	if err != nil {
		_ = netConn.Close()
		return nil, nil, err
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, err
	}
	return client, sshClient, nil
}

func (t *SFTPTarget) remotePath(key string) string {
	return path.Join(t.config.BasePath, key)
}

// Store writes to a temporary file and renames it into place.
func (t *SFTPTarget) Store(ctx context.Context, key string, data []byte) error {
	remote := t.remotePath(key)
	err := withRetry(ctx, RetryConfig{MaxRetries: t.config.MaxRetries, Backoff: t.config.RetryBackoff}, func() error {
		client, sshClient, err := t.connect(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Close()
			_ = sshClient.Close()
		}()

		if err := client.MkdirAll(path.Dir(remote)); err != nil {
			return fmt.Errorf("sftp mkdir: %w", err)
		}

		tmp := path.Join(path.Dir(remote), fmt.Sprintf(".upload-%d", time.Now().UnixNano()))
		f, err := client.Create(tmp)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
			_ = f.Close()
			_ = client.Remove(tmp)
			return err
		}
		if err := f.Close(); err != nil {
			_ = client.Remove(tmp)
			return err
		}
		if err := client.PosixRename(tmp, remote); err != nil {
			_ = client.Remove(tmp)
			return err
		}
		return nil
	})
	if err != nil {
		return archiveError(err, "sftp", "store")
	}
	return nil
}

// Delete removes the file stored under key.
func (t *SFTPTarget) Delete(ctx context.Context, key string) error {
	client, sshClient, err := t.connect(ctx)
	if err != nil {
		return archiveError(err, "sftp", "delete")
	}
	defer func() {
		_ = client.Close()
		_ = sshClient.Close()
	}()

	if err := client.Remove(t.remotePath(key)); err != nil {
		return archiveError(err, "sftp", "delete")
	}
	return nil
}
