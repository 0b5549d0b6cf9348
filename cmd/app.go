package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bgdnvk/wpdeploy/internal/analysis"
	"github.com/bgdnvk/wpdeploy/internal/envelope"
	ghclient "github.com/bgdnvk/wpdeploy/internal/github"
	"github.com/bgdnvk/wpdeploy/internal/kvstore"
	"github.com/bgdnvk/wpdeploy/internal/persist"
	"github.com/bgdnvk/wpdeploy/internal/registry"
	"github.com/bgdnvk/wpdeploy/internal/wizard"
	"github.com/bgdnvk/wpdeploy/internal/wordpress"
)

// app is everything one command invocation needs.
type app struct {
	kv     kvstore.Store
	store  *persist.Store
	saver  *persist.Saver
	github *ghclient.Client
	engine *wizard.Engine
}

func storeConfig() (kvstore.Config, error) {
	cfg := kvstore.Config{
		Driver: viper.GetString("store.driver"),
		Path:   viper.GetString("store.path"),
		DSN:    viper.GetString("store.dsn"),
		Bucket: viper.GetString("store.bucket"),
		Prefix: viper.GetString("store.prefix"),
		Region: viper.GetString("store.region"),
	}
	if cfg.Path != "" {
		return cfg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("error finding home directory: %w", err)
	}
	switch cfg.Driver {
	case "", "sqlite":
		cfg.Path = filepath.Join(home, ".wpdeploy", "state.db")
	case "file":
		cfg.Path = filepath.Join(home, ".wpdeploy", "state")
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	debug := viper.GetBool("debug")
	timeout := viper.GetDuration("http.timeout")

	cfg, err := storeConfig()
	if err != nil {
		return nil, err
	}
	kv, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	environment := viper.GetString("session.environment")
	if environment == "" {
		environment = envelope.DefaultEnvironment()
	}
	store := persist.NewStore(kv, envelope.New(environment), viper.GetString("session.key"))

	sess, err := store.Load(ctx)
	if err != nil && debug {
		log.Printf("[wpdeploy] starting from defaults: %v", err)
	}

	gh, err := ghclient.NewClient(viper.GetString("github.token"), viper.GetString("github.api_url"), timeout)
	if err != nil {
		kv.Close()
		return nil, err
	}

	saver := persist.NewSaver(store)
	engine := wizard.New(sess, wizard.Options{
		Saver:    saver,
		Store:    store,
		Registry: registry.New(kv, viper.GetString("registry.key"), registry.DefaultLimit),
		Analyzer: analysis.New(gh, debug),
		Site:     wordpress.NewClient(timeout, debug),
		Debug:    debug,
	})

	return &app{kv: kv, store: store, saver: saver, github: gh, engine: engine}, nil
}

// Close writes any pending save and releases the store.
func (a *app) Close() error {
	return errors.Join(a.saver.Close(), a.kv.Close())
}

// withApp runs fn against a freshly loaded session and saves before
// returning.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("save session: %w", cerr)
		}
	}()
	return fn(ctx, a)
}
