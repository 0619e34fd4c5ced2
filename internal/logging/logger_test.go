package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unclebandit/campaign-monitor/internal/logging"
)

func TestNew(t *testing.T) {
	log, err := logging.New("debug", "console")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = logging.New("warn", "json")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))

	_, err = logging.New("loud", "json")
	assert.Error(t, err)
	_, err = logging.New("info", "xml")
	assert.Error(t, err)
}

func TestCampaignFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logging.Campaign(zap.New(core), "acme", "c-1").Info("reconciled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "acme", fields["tenant"])
	assert.Equal(t, "c-1", fields["campaign_id"])
}
