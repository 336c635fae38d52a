package command

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/charkit/assets"
	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/config"
)

// storeCloser is an asset store with an optional close hook.
type storeCloser struct {
	assets.Store
	close func() error
}

func (s storeCloser) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStore(cmd *cobra.Command) (storeCloser, error) {
	if path, _ := cmd.Flags().GetString("assets-db"); path != "" {
		db, err := assets.OpenSQLite(cmd.Context(), path)
		if err != nil {
			return storeCloser{}, err
		}
		return storeCloser{Store: db, close: db.Close}, nil
	}
	dir, _ := cmd.Flags().GetString("assets")
	fs, err := assets.NewFileStore(dir)
	if err != nil {
		return storeCloser{}, err
	}
	return storeCloser{Store: fs}, nil
}

func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return s, err
		}
		s = loaded
	}
	s.LoadFromEnv()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func readRecord(path string) (*character.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	var c character.Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", path, err)
	}
	return &c, nil
}

func writeRecord(cmd *cobra.Command, path string, c *character.Character) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
