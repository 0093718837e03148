// Package main populates a development database with demo channels, videos,
// subscriptions and watch history. It connects with the same environment
// configuration as the server and writes through the PostgreSQL repositories,
// so running it twice reuses the accounts it already created.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ImMohammedAbdulla/Backend-app/internal/config"
	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository/postgres"
	"github.com/ImMohammedAbdulla/Backend-app/migrations"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/database"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/logger"
)

const demoPassword = "password123"

type channelDef struct {
	userName string
	fullName string
	videos   []string
}

var channels = []channelDef{
	{userName: "chaiaurcode", fullName: "Chai Aur Code", videos: []string{"Go in 60 minutes", "Understanding goroutines"}},
	{userName: "pgdaily", fullName: "Postgres Daily", videos: []string{"Indexes explained", "Window functions", "Arrays and unnest"}},
	{userName: "redisnotes", fullName: "Redis Notes", videos: []string{"Caching patterns"}},
	{userName: "viewer", fullName: "Just Watching"},
}

// follows maps a subscriber to the channels it subscribes to.
var follows = map[string][]string{
	"viewer":      {"chaiaurcode", "pgdaily", "redisnotes"},
	"pgdaily":     {"chaiaurcode"},
	"redisnotes":  {"chaiaurcode", "pgdaily"},
	"chaiaurcode": {"pgdaily"},
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("identity-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPoolWithLogger(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 4,
		MinConns: 1,
	}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	users := postgres.NewUserRepository(pool)
	videos := postgres.NewVideoRepository(pool)
	subs := postgres.NewSubscriptionRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ids := make(map[string]string, len(channels))
	var published []string
	for _, def := range channels {
		u, created, err := ensureUser(ctx, users, def, string(hash))
		if err != nil {
			return err
		}
		ids[def.userName] = u.ID
		if !created {
			log.Info("user exists, skipping videos", slog.String("user_name", def.userName))
			continue
		}
		log.Info("created user", slog.String("user_name", def.userName), slog.String("id", u.ID))

		for i, title := range def.videos {
			v := &domain.Video{
				OwnerID:     u.ID,
				VideoFile:   fmt.Sprintf("%s/videos/%s-%d.mp4", cfg.MediaBaseURL, def.userName, i+1),
				Thumbnail:   fmt.Sprintf("%s/thumbnails/%s-%d.jpg", cfg.MediaBaseURL, def.userName, i+1),
				Title:       title,
				Description: "Demo video by " + def.fullName,
				Duration:    float64(300 + 120*i),
				IsPublished: true,
			}
			if err := videos.Create(ctx, v); err != nil {
				return fmt.Errorf("create video %q: %w", title, err)
			}
			published = append(published, v.ID)
		}
	}

	var edges int
	for subscriber, targets := range follows {
		for _, target := range targets {
			err := subs.Create(ctx, &domain.Subscription{SubscriberID: ids[subscriber], ChannelID: ids[target]})
			if err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
				return fmt.Errorf("subscribe %s to %s: %w", subscriber, target, err)
			}
			if err == nil {
				edges++
			}
		}
	}

	// The viewer rewatches the first video so history shows a duplicate.
	if len(published) > 0 {
		history := append(append([]string(nil), published...), published[0])
		for _, videoID := range history {
			if err := users.AppendWatchHistory(ctx, ids["viewer"], videoID); err != nil {
				return fmt.Errorf("append watch history: %w", err)
			}
			if _, err := videos.IncrementViews(ctx, videoID); err != nil {
				return fmt.Errorf("increment views: %w", err)
			}
		}
	}

	log.Info("seed complete",
		slog.Int("users", len(ids)),
		slog.Int("videos", len(published)),
		slog.Int("subscriptions", edges),
		slog.String("demo_password", demoPassword),
	)
	return nil
}

func ensureUser(ctx context.Context, users *postgres.UserRepository, def channelDef, passwordHash string) (*domain.User, bool, error) {
	email := def.userName + "@demo.local"
	existing, err := users.GetByUserNameOrEmail(ctx, def.userName, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup %s: %w", def.userName, err)
	}

	u := &domain.User{
		UserName:     def.userName,
		Email:        email,
		FullName:     def.fullName,
		Avatar:       "https://api.dicebear.com/7.x/identicon/svg?seed=" + def.userName,
		PasswordHash: passwordHash,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", def.userName, err)
	}
	return u, true, nil
}
