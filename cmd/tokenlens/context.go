package main

import (
	"context"
	"strings"
	"sync"

	"github.com/hunterwarburton/tokenlens/internal/config"
	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/svc"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	servicesOnce sync.Once
	services     *svc.ServiceContext
	servicesErr  error
}

func newCommandContext(configFlag *string, jsonFlag, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		debugFlag:  debugFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		// Tables go to stdout, so the logger stays silent unless asked.
		if c.debugFlag != nil && *c.debugFlag {
			if err := logger.Init(logger.Options{Level: "debug", Format: "console", LogDir: cfg.Log.LogDir}); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureServices(ctx context.Context) (*svc.ServiceContext, error) {
	c.servicesOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.servicesErr = err
			return
		}
		c.services, c.servicesErr = svc.NewServiceContext(ctx, cfg)
	})
	return c.services, c.servicesErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) close() {
	if c.services != nil {
		c.services.Close()
	}
	_ = logger.Sync()
}
