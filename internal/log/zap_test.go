package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		wantErr    bool
		debugShown bool
	}{
		{name: "default info", level: "info"},
		{name: "debug", level: "debug", debugShown: true},
		{name: "bad level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "log.json")
			zl, err := NewLogger(WithLogLevel(tt.level), WithOutputPaths(out), WithFields(zap.String("app", "test")))
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, zl)
				return
			}
			require.NoError(t, err)

			zl.Debug("dbg")
			zl.Info("hello")
			require.NoError(t, zl.Sync())

			b, err := os.ReadFile(out)
			require.NoError(t, err)

			var lines []map[string]any
			dec := json.NewDecoder(bytes.NewReader(b))
			for dec.More() {
				var m map[string]any
				require.NoError(t, dec.Decode(&m))
				lines = append(lines, m)
			}

			if tt.debugShown {
				require.Len(t, lines, 2)
			} else {
				require.Len(t, lines, 1)
			}
			last := lines[len(lines)-1]
			assert.Equal(t, "hello", last["msg"])
			assert.Equal(t, "test", last["app"])
			assert.NotContains(t, last, "caller")
		})
	}
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() {
		Must(NewLogger(WithLogLevel("nope")))
	})
}
