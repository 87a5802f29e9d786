package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

type countingResolver struct {
	core.MetadataResolver
	preloads int
}

func (c *countingResolver) PreloadKnownLists(context.Context) { c.preloads++ }

func (c *countingResolver) Stats() core.Stats {
	return core.Stats{RegistryLoaded: true, JupiterLoaded: true, RegistryCount: 3}
}

func TestWarmupServicePreloadsOnce(t *testing.T) {
	res := &countingResolver{}
	s := newWarmupService(context.Background(), res)

	s.Start()
	s.Stop()

	assert.Equal(t, 1, res.preloads)
	assert.Error(t, s.ctx.Err())
}
