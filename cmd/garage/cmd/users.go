package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/petruce/garage"
	"github.com/petruce/garage/config"
	"github.com/petruce/garage/stores/gae"
	gormstore "github.com/petruce/garage/stores/gorm"
)

// openUserStore picks the account backend. The workshop always lives in db.
func openUserStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (garage.UserStore, func(), error) {
	switch cfg.UserStore {
	case "gorm":
		return gormstore.NewUserStore(db), func() {}, nil
	case "datastore":
		store, err := gae.Open(ctx, cfg.DatastoreProj, cfg.DatastoreNS)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using datastore for users", "project", cfg.DatastoreProj, "namespace", cfg.DatastoreNS)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("closing datastore client", "err", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported user store %q", cfg.UserStore)
	}
}
