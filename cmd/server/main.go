// Package main provides the entry point for the GitSphere gateway server.
// The gateway fronts the GitSphere analytics backend: it runs the GitHub
// OAuth handshake, keeps the session token in a browser cookie, and proxies
// dashboard API calls with transparent token refresh.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/api"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/buildinfo"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/logging"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/store"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/watcher"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("GitSphere Gateway Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var (
		login             bool
		noBrowser         bool
		oauthCallbackPort int
		configPath        string
	)

	flag.BoolVar(&login, "login", false, "Sign in with GitHub and store the session token")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.IntVar(&oauthCallbackPort, "oauth-callback-port", 0, "Override OAuth callback port")
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	configFilePath := configPath
	if configFilePath == "" {
		configFilePath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}

	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return
	}
	util.SetLogLevel(cfg)
	log.Infof("GitSphere Gateway Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	if resolvedAuthDir, errResolve := util.ResolveAuthDir(cfg.AuthDir); errResolve != nil {
		log.Errorf("failed to resolve auth directory: %v", errResolve)
		return
	} else {
		cfg.AuthDir = resolvedAuthDir
	}

	tokenStore, err := buildTokenStore(cfg)
	if err != nil {
		log.Errorf("failed to initialize token store: %v", err)
		return
	}

	if login {
		runLogin(cfg, tokenStore, noBrowser, oauthCallbackPort)
		return
	}
	runServer(cfg, configFilePath)
}

// buildTokenStore selects the persistence backend for CLI login credentials.
// Postgres and object-store backends are configured through the environment;
// the default is a file store rooted at the auth directory.
func buildTokenStore(cfg *config.Config) (store.TokenStore, error) {
	lookupEnv := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if value, ok := os.LookupEnv(key); ok {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					return trimmed, true
				}
			}
		}
		return "", false
	}

	if dsn, ok := lookupEnv("PGSTORE_DSN", "pgstore_dsn"); ok {
		pgCfg := store.PostgresStoreConfig{DSN: dsn}
		if schema, okSchema := lookupEnv("PGSTORE_SCHEMA", "pgstore_schema"); okSchema {
			pgCfg.Schema = schema
		}
		if table, okTable := lookupEnv("PGSTORE_TABLE", "pgstore_table"); okTable {
			pgCfg.Table = table
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pgStore, err := store.NewPostgresTokenStore(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		log.Info("postgres-backed token store enabled")
		return pgStore, nil
	}

	if endpoint, ok := lookupEnv("OBJECTSTORE_ENDPOINT", "objectstore_endpoint"); ok {
		objCfg := store.ObjectStoreConfig{
			Endpoint:  endpoint,
			UseSSL:    true,
			PathStyle: true,
		}
		if strings.Contains(endpoint, "://") {
			parsed, errParse := url.Parse(endpoint)
			if errParse != nil {
				return nil, fmt.Errorf("parse object store endpoint %q: %w", endpoint, errParse)
			}
			switch strings.ToLower(parsed.Scheme) {
			case "http":
				objCfg.UseSSL = false
			case "https":
				objCfg.UseSSL = true
			default:
				return nil, fmt.Errorf("unsupported object store scheme %q", parsed.Scheme)
			}
			if parsed.Host == "" {
				return nil, fmt.Errorf("object store endpoint %q is missing host information", endpoint)
			}
			objCfg.Endpoint = parsed.Host
		}
		objCfg.AccessKey, _ = lookupEnv("OBJECTSTORE_ACCESS_KEY", "objectstore_access_key")
		objCfg.SecretKey, _ = lookupEnv("OBJECTSTORE_SECRET_KEY", "objectstore_secret_key")
		objCfg.Bucket, _ = lookupEnv("OBJECTSTORE_BUCKET", "objectstore_bucket")
		objCfg.Region, _ = lookupEnv("OBJECTSTORE_REGION", "objectstore_region")
		objStore, err := store.NewObjectTokenStore(objCfg)
		if err != nil {
			return nil, err
		}
		log.Infof("object-backed token store enabled, bucket: %s", objCfg.Bucket)
		return objStore, nil
	}

	authDir := cfg.AuthDir
	if authDir == "" {
		authDir = filepath.Join(".", "auths")
	}
	return store.NewFileTokenStore(authDir), nil
}

// runLogin performs the CLI OAuth flow and persists the resulting token.
// A previously stored session is reused or refreshed in place when the
// backend still accepts it, skipping the browser round trip.
func runLogin(cfg *config.Config, tokenStore store.TokenStore, noBrowser bool, callbackPort int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	auth := github.NewGitHubAuth(cfg)
	switch reuseStoredSession(ctx, auth, tokenStore, cfg.RefreshThreshold()) {
	case sessionCurrent:
		fmt.Println("Stored session token is still valid; nothing to do.")
		return
	case sessionRefreshed:
		fmt.Println("Stored session token refreshed.")
		return
	}

	record, err := github.Login(ctx, cfg, &github.LoginOptions{
		NoBrowser:    noBrowser,
		CallbackPort: callbackPort,
	})
	if err != nil {
		log.Errorf("login failed: %v", err)
		return
	}

	path, err := tokenStore.Save(ctx, store.DefaultTokenFile, record)
	if err != nil {
		log.Errorf("failed to store session token: %v", err)
		return
	}
	fmt.Printf("Signed in with GitHub. Session token stored at %s\n", path)
}

type storedSessionState int

const (
	sessionLoginRequired storedSessionState = iota
	sessionCurrent
	sessionRefreshed
)

// reuseStoredSession revalidates the stored credential against the backend.
// A token inside the refresh window is rotated and rewritten in place; a
// token the backend rejects is discarded so the full login flow starts clean.
func reuseStoredSession(ctx context.Context, auth *github.GitHubAuth, tokenStore store.TokenStore, refreshThreshold time.Duration) storedSessionState {
	record, err := tokenStore.Load(ctx, store.DefaultTokenFile)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warnf("failed to read stored session token: %v", err)
		}
		return sessionLoginRequired
	}

	status, err := auth.TokenStatusProbe(ctx, record.AccessToken)
	if err != nil {
		var backendErr *github.BackendError
		if errors.As(err, &backendErr) {
			log.Debugf("backend rejected stored token: %v", err)
			discardStoredSession(ctx, tokenStore)
		} else {
			log.Warnf("stored token status probe failed: %v", err)
		}
		return sessionLoginRequired
	}
	if !status.Valid {
		discardStoredSession(ctx, tokenStore)
		return sessionLoginRequired
	}
	if time.Duration(status.TimeToExpiryMinutes)*time.Minute > refreshThreshold {
		return sessionCurrent
	}

	tokenData, err := auth.RefreshToken(ctx, record.AccessToken)
	if err != nil {
		log.Debugf("stored token refresh failed: %v", err)
		discardStoredSession(ctx, tokenStore)
		return sessionLoginRequired
	}
	if err = tokenStore.UpdateAccessToken(ctx, store.DefaultTokenFile, tokenData.AccessToken); err != nil {
		log.Warnf("failed to persist rotated session token: %v", err)
	}
	return sessionRefreshed
}

func discardStoredSession(ctx context.Context, tokenStore store.TokenStore) {
	if err := tokenStore.Delete(ctx, store.DefaultTokenFile); err != nil {
		log.Warnf("failed to discard stale session token: %v", err)
	}
}

// runServer starts the gateway and blocks until a shutdown signal arrives.
// The config file is watched for changes and hot-reloaded.
func runServer(cfg *config.Config, configFilePath string) {
	server := api.NewServer(cfg)

	w, err := watcher.NewWatcher(configFilePath, server.OnConfigUpdated)
	if err != nil {
		log.Errorf("failed to create config watcher: %v", err)
		return
	}
	w.SetConfig(cfg)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if err = w.Start(watchCtx); err != nil {
		log.Errorf("failed to start config watcher: %v", err)
		return
	}
	defer func() {
		if errStop := w.Stop(); errStop != nil {
			log.Warnf("failed to stop config watcher: %v", errStop)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		log.Infof("gateway listening on port %d", cfg.Port)
		errChan <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errChan:
		if err != nil {
			log.Errorf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Infof("received signal %s, shutting down", sig)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err = server.Stop(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
}
