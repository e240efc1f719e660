// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureAppliesAfterLazyInit(t *testing.T) {
	// Any logging (config parsing does this) initialises the logger with
	// defaults before main configures it.
	logger := WithComponent("early")
	logger.Debug().Msg("lazy init")

	Configure(Config{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Configure(Config{Level: "info"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestConfigureLazyCallKeepsExplicitSettings(t *testing.T) {
	Configure(Config{Level: "warn"})

	// The lazy path must not reset the explicitly configured level.
	_ = Base()
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	Configure(Config{Level: "info"})
}

func TestConfigureAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, Version: "v1.2.3"})

	logger := Base()
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ccan", entry["service"])
	assert.Equal(t, "v1.2.3", entry["version"])
}

func TestConfigureIgnoresInvalidLevel(t *testing.T) {
	Configure(Config{Level: "info"})
	Configure(Config{Level: "not-a-level"})

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
