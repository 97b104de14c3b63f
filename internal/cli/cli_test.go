package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loopctl/internal/app"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		wantExit  bool
		wantCode  int
		wantError string
		check     func(t *testing.T, cfg *app.Config)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, ".", cfg.Dir)
				assert.Equal(t, "127.0.0.1:7410", cfg.Listen)
				assert.Equal(t, app.DefaultPollInterval, cfg.PollInterval)
				assert.Equal(t, "text", cfg.LogFormat)
				assert.True(t, cfg.Colors)
				assert.False(t, cfg.MCP)
			},
		},
		{
			name: "positional dir and flags",
			args: []string{"-mcp", "-journal", "j.db", "-poll-interval", "1s", "-log-format", "JSON", "-color=false", "-autoplay", "songs/one"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, "songs/one", cfg.Dir)
				assert.True(t, cfg.MCP)
				assert.True(t, cfg.AutoPlay)
				assert.False(t, cfg.Colors)
				assert.Equal(t, "j.db", cfg.JournalPath)
				assert.Equal(t, time.Second, cfg.PollInterval)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{
			name: "dir flag wins",
			args: []string{"-dir", "a", "b"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, "a", cfg.Dir)
			},
		},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantCode: 2, wantError: "flag provided but not defined"},
		{name: "bad format", args: []string{"-log-format", "xml"}, wantCode: 2, wantError: "invalid log-format"},
		{name: "bad level", args: []string{"-log-level", "loud"}, wantCode: 2, wantError: "invalid log-level"},
		{name: "two dirs", args: []string{"a", "b"}, wantCode: 2, wantError: "only one project directory"},
		{name: "poll too short", args: []string{"-poll-interval", "1ms"}, wantCode: 2, wantError: "too short"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cfg, exit, err := Parse(tc.args, out)

			if tc.wantError != "" {
				require.Error(t, err)
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr))
				assert.Equal(t, tc.wantCode, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			require.NotNil(t, cfg)
			tc.check(t, cfg)
		})
	}
}
