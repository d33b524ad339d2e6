package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"apparel/storefront/internal/auth"
	"apparel/storefront/internal/client"
	"apparel/storefront/internal/config"
	"apparel/storefront/internal/metrics"
	"apparel/storefront/internal/service"
	"apparel/storefront/internal/session"
	"apparel/storefront/internal/state"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config   *config.Config
	Gateway  client.CatalogGateway
	Sessions state.SessionStore
	Auth     auth.Authenticator

	Catalog *service.CatalogView
	Admin   *service.Admin

	// Metrics is nil when metrics.addr is empty.
	Metrics *metrics.Server

	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	// Test connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis successfully")
	container.redis = rdb

	container.Sessions = state.NewRedisSessionStore(rdb, cfg.Redis.SessionKey, time.Duration(cfg.Redis.SessionTTL)*time.Second)
	container.Auth = auth.NewAuthenticator(cfg.Auth, container.Sessions)

	gateway, err := client.NewCatalogGateway(cfg.Gateway)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to initialize catalog gateway: %w", err)
	}
	container.Gateway = gateway

	container.Catalog = service.NewCatalogView(gateway)
	container.Admin = service.NewAdmin(gateway)

	if cfg.Metrics.Addr != "" {
		server, err := metrics.Start(cfg.Metrics)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
		container.Metrics = server
	}

	return container, nil
}

// StartSession opens a browsing session for whoever is signed in, or an
// anonymous one.
func (c *Container) StartSession(ctx context.Context) (*session.Session, error) {
	user, err := c.Auth.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}
	return session.New(user, session.OptionsFromConfig(c.Config.Session)), nil
}

// Login signs the user in and returns a fresh session for them.
func (c *Container) Login(ctx context.Context, username, password string) (*session.Session, error) {
	user, err := c.Auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return session.New(user, session.OptionsFromConfig(c.Config.Session)), nil
}

// Logout tears down the session and forgets the signed-in user.
func (c *Container) Logout(ctx context.Context, sess *session.Session) error {
	sess.Close()
	return c.Auth.Logout(ctx)
}

// Run opens a session and loads the catalog and its categories.
func (c *Container) Run(ctx context.Context) error {
	sess, err := c.StartSession(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := c.Catalog.LoadCategories(gctx)
		return err
	})

	g.Go(func() error {
		_, err := c.Catalog.Refresh(gctx, sess.Filters, sess.IsAdmin())
		return err
	})

	if sess.IsAdmin() {
		g.Go(func() error {
			_, err := c.Admin.Dashboard(gctx, sess)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	facets := c.Catalog.Facets()
	log.Infof("Session %s: %d products in catalog, %d categories, %d sizes",
		sess.ID, len(c.Catalog.Products()), len(facets.Categories), len(facets.Sizes))
	if d := c.Admin.LastDashboard(); d != nil {
		log.Infof("Admin dashboard: %d products, %d categories", len(d.Products), len(d.Categories))
	}
	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Metrics.Shutdown(ctx); err != nil {
			log.Errorf("Error stopping metrics server: %v", err)
		}
	}

	if err := c.redis.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	log.Info("Container shut down successfully")
	return nil
}
