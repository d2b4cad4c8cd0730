package archive

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
)

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, bucket, user, id, ext, want string
	}{
		{"audio", BucketEngineSounds, "u-1", "d-1", ".WAV", "engine-sounds/u-1/d-1.wav"},
		{"ext without dot", BucketDashboardImages, "u-1", "d-1", "jpg", "dashboard-images/u-1/d-1.jpg"},
		{"traversal", BucketEngineSounds, "../../etc", "d-1", ".wav", "engine-sounds/.._.._etc/d-1.wav"},
		{"no ext", BucketEngineSounds, "user@example.com", "d-1", "", "engine-sounds/user_example.com/d-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Key(tt.bucket, tt.user, tt.id, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Key(BucketEngineSounds, "..", "d-1", ".wav")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLocalTargetStoreAndDelete(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	target, err := NewLocalTarget(root)
	require.NoError(t, err)

	key := "engine-sounds/u-1/d-1.wav"
	require.NoError(t, Store(t.Context(), target, key, []byte("RIFF")))

	data, err := os.ReadFile(filepath.Join(root, "engine-sounds", "u-1", "d-1.wav"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "engine-sounds", "u-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	require.NoError(t, target.Delete(t.Context(), key))
	_, err = os.Stat(filepath.Join(root, key))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalTargetRejectsEscapes(t *testing.T) {
	t.Parallel()
	target, err := NewLocalTarget(t.TempDir())
	require.NoError(t, err)

	err = target.Store(t.Context(), "../outside.wav", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLocalTargetCancelled(t *testing.T) {
	t.Parallel()
	target, err := NewLocalTarget(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, target.Store(ctx, "a/b.wav", []byte("x")), context.Canceled)
}

func TestNewSelectsTarget(t *testing.T) {
	t.Parallel()

	target, err := New(&conf.ArchiveSettings{Target: conf.ArchiveTargetLocal, Path: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", target.Name())

	target, err = New(&conf.ArchiveSettings{Target: conf.ArchiveTargetFTP, FTP: conf.FTPSettings{Host: "ftp.example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "ftp", target.Name())

	_, err = New(&conf.ArchiveSettings{Target: conf.ArchiveTargetSFTP, SFTP: conf.SFTPSettings{Host: "sftp.example.com"}})
	require.Error(t, err, "sftp without credentials must be rejected")
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(&conf.ArchiveSettings{Target: "s3"})
	require.Error(t, err)
}

func TestSFTPTargetLoadsPrivateKey(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	keyFile := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(block), 0o600))

	target, err := NewSFTPTarget(&SFTPConfig{Host: "sftp.example.com", Username: "mech", KeyFile: keyFile})
	require.NoError(t, err)
	assert.Len(t, target.auth, 1)
	assert.Equal(t, DefaultSFTPPort, target.config.Port)

	_, err = NewSFTPTarget(&SFTPConfig{Host: "sftp.example.com", KeyFile: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryArchive))
}

func TestFTPTargetUnreachable(t *testing.T) {
	t.Parallel()

	target, err := NewFTPTarget(&FTPConfig{
		Host:         "127.0.0.1",
		Port:         1,
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	err = target.Store(t.Context(), "engine-sounds/u/d.wav", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryArchive))
}

func TestWithRetry(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxRetries: 3, Backoff: time.Millisecond}

	calls := 0
	err := withRetry(t.Context(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.NewStd("connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	permanent := errors.NewStd("550 permission denied")
	err = withRetry(t.Context(), cfg, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)

	calls = 0
	err = withRetry(t.Context(), cfg, func() error {
		calls++
		return errors.NewStd("i/o timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTransientError(nil))
	assert.True(t, IsTransientError(errors.NewStd("dial tcp: connection refused")))
	assert.True(t, IsTransientError(errors.NewStd("unexpected EOF")))
	assert.False(t, IsTransientError(errors.NewStd("530 login incorrect")))
}
