package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	path := writeFile(t, "settings.yaml", "username: Before\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := Watch(ctx, path)

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("username: After\n"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			require.True(t, ok, "channel closed before update")
			if u.Err == nil && u.Settings.Username == "After" {
				cancel()
				for range updates {
				}
				return
			}
		case <-timeout:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatch_InvalidReload(t *testing.T) {
	path := writeFile(t, "settings.yaml", "username: ok\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := Watch(ctx, path)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("max_context: -5\n"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Err != nil {
				assert.ErrorIs(t, u.Err, ErrInvalid)
				return
			}
		case <-timeout:
			t.Fatal("no failed reload observed")
		}
	}
}
