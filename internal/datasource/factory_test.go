package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/config"
)

func TestNewSessionProvider(t *testing.T) {
	p, err := NewSessionProvider(config.DataSourceConfig{Name: "openf1"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenF1Client{}, p)

	p, err = NewSessionProvider(config.DataSourceConfig{Name: "openf1", CacheTTLMinutes: 30}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CachedProvider{}, p)
	assert.Equal(t, "openf1", p.Name())

	_, err = NewSessionProvider(config.DataSourceConfig{Name: "ergast"}, nil)
	assert.Error(t, err)
}
