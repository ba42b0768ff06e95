package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerTagsServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "json"})

	logger.Info("hello")

	require.Contains(t, buf.String(), `"service":"ledgerline"`)
	require.Contains(t, buf.String(), `"env":"staging"`)
}

func TestNewLoggerDefaultsToText(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, nil)

	logger.Info("hello")

	require.Contains(t, buf.String(), "service=ledgerline")
}
