package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/internal/config"
	"github.com/dyluth/boardsync/internal/gateway/mongodb"
	"github.com/dyluth/boardsync/internal/identity"
	"github.com/dyluth/boardsync/internal/orchestrator"
	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/internal/resolver"
	"github.com/dyluth/boardsync/internal/store"
	"github.com/dyluth/boardsync/pkg/board"
)

// backend is what a session needs from a persistence gateway.
type backend interface {
	orchestrator.Gateway
	store.EmptyTaskProvider
	resolver.Scanner
	Close() error
}

// session is one CLI invocation's wiring of config, gateway, identity and orchestrator.
type session struct {
	cfg      *config.BoardsyncConfig
	gateway  backend
	client   *board.Client // nil when no Redis is configured
	identity *identity.SQLiteStore
	registry *columns.Registry
	state    *store.State
	orch     *orchestrator.Orchestrator
}

// nopNotifier is used when the workspace has no Redis to publish on.
type nopNotifier struct{}

func (nopNotifier) Emit(ctx context.Context, event string, payload any) error {
	log.WithField("event", event).Debug("no notifier configured, event dropped")
	return nil
}

func openSession(ctx context.Context, g *globalOptions, onEvent func(*board.Event)) (*session, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or regenerate it:\n  boardsync init --force", g.configPath)},
		)
	}
	if !g.debug {
		log.SetLevel(cfg.LogLevel())
	}

	s := &session{cfg: cfg, registry: columns.Default()}

	if err := s.connect(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.openIdentity(ctx); err != nil {
		s.Close()
		return nil, err
	}

	var notifier orchestrator.Notifier = nopNotifier{}
	origin := ""
	if s.client != nil {
		notifier = s.client
		origin = s.client.Origin()
	}

	s.state = store.New(s.gateway, s.registry)
	s.orch = orchestrator.New(s.state, s.gateway, notifier, s.identity, orchestrator.Options{
		ReloadListAfterSave: cfg.ReloadListAfterSave(),
		Origin:              origin,
		Logger:              log.StandardLogger(),
		OnEvent:             onEvent,
	})

	return s, nil
}

func (s *session) connect(ctx context.Context) error {
	if s.cfg.Store.RedisURL != "" {
		redisOpts, err := redis.ParseURL(s.cfg.Store.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}

		client, err := board.NewClient(redisOpts, s.cfg.Workspace)
		if err != nil {
			return fmt.Errorf("failed to create board client: %w", err)
		}
		s.client = client

		if err := client.Ping(ctx); err != nil {
			return printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to Redis at %s", s.cfg.Store.RedisURL),
				map[string]string{"Workspace": s.cfg.Workspace},
				[]string{"Check that Redis is running and store.redis_url is correct"},
			)
		}
	}

	switch s.cfg.Store.Backend {
	case config.BackendMongo:
		gw, err := mongodb.Connect(ctx, s.cfg.Store.MongoURI, s.cfg.Store.MongoDatabase)
		if err != nil {
			return printer.ErrorWithContext(
				"MongoDB connection failed",
				err.Error(),
				map[string]string{"Database": s.cfg.Store.MongoDatabase},
				[]string{"Check that MongoDB is running and store.mongo_uri is correct"},
			)
		}
		s.gateway = gw
		if err := gw.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("could not create board indexes")
		}
	default:
		s.gateway = s.client
	}

	return nil
}

func (s *session) openIdentity(ctx context.Context) error {
	path, err := s.cfg.IdentityPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}

	ids, err := identity.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("failed to open identity store: %w", err)
	}
	s.identity = ids

	if _, ok := ids.CurrentUser(); !ok && s.cfg.Identity.UserID != "" {
		if _, err := ids.Login(ctx, s.cfg.Identity.UserID); err != nil {
			log.WithError(err).WithField("user", s.cfg.Identity.UserID).Warn("configured user could not be logged in")
		}
	}
	return nil
}

// Close releases every connection the session opened.
func (s *session) Close() {
	if s.identity != nil {
		s.identity.Close()
	}
	if s.gateway != nil && s.gateway != backend(s.client) {
		s.gateway.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
}

// resolveBoard expands a short board id, printing friendly errors.
func (s *session) resolveBoard(ctx context.Context, shortID string) (string, error) {
	id, err := resolver.ResolveBoardID(ctx, s.gateway, shortID)
	if err == nil {
		return id, nil
	}

	if resolver.IsNotFoundError(err) {
		return "", printer.Error(
			fmt.Sprintf("board '%s' not found", shortID),
			fmt.Sprintf("No board in workspace '%s' matches that id.", s.cfg.Workspace),
			[]string{"List boards:\n  boardsync boards"},
		)
	}
	var amb *resolver.AmbiguousError
	if errors.As(err, &amb) {
		return "", printer.Error("ambiguous short ID", resolver.FormatAmbiguousError(amb), nil)
	}
	return "", fmt.Errorf("failed to resolve board ID: %w", err)
}

// loadBoard resolves and selects a board.
func (s *session) loadBoard(ctx context.Context, shortID string) (*board.Board, error) {
	id, err := s.resolveBoard(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if err := s.orch.LoadBoard(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	cur, _ := s.state.CurrentBoard()
	return cur, nil
}
