package telegram

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blockedby/reactdl/internal/config"
	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
)

// NewSessionClient creates a telegram client backed by a sqlite session
// store in the configured session directory. The store must already hold
// an authorized session (created by the reactdl-auth tool).
func NewSessionClient(cfg *config.Config) (*gotgproto.Client, error) {
	if err := os.MkdirAll(cfg.TGSessionDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	sessionPath := filepath.Join(cfg.TGSessionDir, "reactdl_session")

	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(""), // empty = use stored session
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionPath)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	return client, nil
}
