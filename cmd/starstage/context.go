package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"starstage/internal/catalog"
	"starstage/internal/config"
	"starstage/internal/logging"
	"starstage/internal/matching"
	"starstage/internal/sessions"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// stores bundles the opened stores and the services built on them for one
// command invocation.
type stores struct {
	cfg     *config.Config
	catalog *catalog.Store
	store   *sessions.Store
	manager *sessions.Manager
	engine  *matching.Engine
}

// withStores opens the catalog and session databases, wires the manager and
// engine, runs fn, and closes everything afterwards.
func (c *commandContext) withStores(fn func(*stores) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	store, err := sessions.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := sessions.NewManager(cfg, store, cat, logger)
	if err != nil {
		return err
	}
	engine, err := matching.NewEngine(cfg, cat, store, logger)
	if err != nil {
		return err
	}

	return fn(&stores{
		cfg:     cfg,
		catalog: cat,
		store:   store,
		manager: manager,
		engine:  engine,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
