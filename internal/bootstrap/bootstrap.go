// Package bootstrap builds the store, cache and notifier stack from config
// for the server and cronjob binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"camrent-backend/internal/config"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/notify"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/repository/memory"
	"camrent-backend/internal/repository/postgres"
)

// OpenStore returns the configured store adapter. For postgres the schema is
// migrated and the *sql.DB is returned for the caller to close; it is nil
// for the memory store. The memory store publishes change signals to pub
// itself, postgres relies on a ChangeListener.
func OpenStore(ctx context.Context, cfg *config.Config, pub repository.ChangePublisher) (repository.Store, *sql.DB, error) {
	switch cfg.Store.Type {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore(pub)
		if cfg.Store.SeedFile != "" {
			n, err := SeedResources(ctx, store.Resources(), cfg.Store.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("Seeded in-memory store", "file", cfg.Store.SeedFile, "resources", n)
		}
		return store, nil, nil
	case "postgres":
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(),
			cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.ConnMaxLifetime())
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Database connection established")
		return postgres.NewStore(db), db, nil
	}
	return nil, nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
}

type seedResource struct {
	Name           string  `yaml:"name"`
	Category       string  `yaml:"category"`
	DailyRate      float64 `yaml:"daily_rate"`
	TotalUnits     int     `yaml:"total_units"`
	Status         string  `yaml:"status"`
	Description    string  `yaml:"description"`
	Specifications string  `yaml:"specifications"`
}

// SeedResources creates every resource listed in the YAML file at path and
// returns how many were created. Each starts with all units available.
func SeedResources(ctx context.Context, repo repository.ResourceRepository, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}
	var doc struct {
		Resources []seedResource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, sr := range doc.Resources {
		status := domain.ResourceStatus(sr.Status)
		if status == "" {
			status = domain.ResourceStatusActive
		}
		if sr.Name == "" || sr.TotalUnits < 0 || !status.IsValid() {
			return i, fmt.Errorf("seed resource %d: invalid name, total_units or status", i)
		}
		res := &domain.Resource{
			Name:            sr.Name,
			Category:        sr.Category,
			DailyRate:       sr.DailyRate,
			TotalUnits:      sr.TotalUnits,
			CachedAvailable: sr.TotalUnits,
			Status:          status,
			Description:     sr.Description,
			Specifications:  sr.Specifications,
		}
		if err := repo.Create(ctx, res); err != nil {
			return i, fmt.Errorf("seed resource %q: %w", sr.Name, err)
		}
	}
	return len(doc.Resources), nil
}

// Redis returns a client when a redis address is configured, nil otherwise.
func Redis(cfg *config.Config) redis.UniversalClient {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Notifier fans staff notifications out to the log, the notification feed
// and whichever of email and push are configured.
func Notifier(ctx context.Context, cfg *config.Config, store repository.Store) notify.Notifier {
	notifiers := []notify.Notifier{notify.Log(), notify.Store(store.Notifications())}

	if email := cfg.Notify.Email; email.APIKey != "" {
		notifiers = append(notifiers, notify.Email(notify.EmailConfig{
			APIKey:     email.APIKey,
			FromEmail:  email.FromEmail,
			FromName:   email.FromName,
			Recipients: email.Recipients,
			MinKind:    domain.NotificationKind(email.MinKind),
			PerMinute:  email.PerMinute,
			Burst:      email.Burst,
		}))
		logger.Info("Email notifications enabled", "recipients", len(email.Recipients), "min_kind", email.MinKind)
	}

	if push := cfg.Notify.Push; push.CredentialsFile != "" {
		sender, err := notify.NewFirebaseSender(ctx, push.CredentialsFile)
		if err != nil {
			logger.Error("Push notifications disabled", "error", err)
		} else {
			notifiers = append(notifiers, notify.Push(sender, push.Topic, domain.NotificationKind(push.MinKind)))
			logger.Info("Push notifications enabled", "topic", push.Topic, "min_kind", push.MinKind)
		}
	}
	return notify.Multi(notifiers...)
}
