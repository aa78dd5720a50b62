package logger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"buildstate/internal/pkg/config"
)

// stringEncoder 只收集 AppendString 的输出
type stringEncoder struct {
	zapcore.PrimitiveArrayEncoder
	out []string
}

func (e *stringEncoder) AppendString(s string) {
	e.out = append(e.out, s)
}

func TestCallerEncoderRelativePath(t *testing.T) {
	root := projectRoot()
	require.NotEmpty(t, root)

	enc := &stringEncoder{}
	customCallerEncoder(zapcore.NewEntryCaller(0, filepath.Join(root, "internal", "core", "resume", "context.go"), 42, true), enc)
	assert.Equal(t, []string{filepath.Join("internal", "core", "resume", "context.go") + ":42"}, enc.out)

	enc = &stringEncoder{}
	customCallerEncoder(zapcore.EntryCaller{}, enc)
	assert.Equal(t, []string{"undefined"}, enc.out)
}

func TestCallerEncoderConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			enc := &stringEncoder{}
			customCallerEncoder(zapcore.NewEntryCaller(0, "/elsewhere/main.go", i, true), enc)
			results[i] = enc.out[0]
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.NotEmpty(t, r)
	}
}

func TestInitLevels(t *testing.T) {
	t.Cleanup(func() {
		Log = zap.NewNop()
		log = zap.NewNop()
	})
	require.NoError(t, Init(&config.LogConfig{Level: "debug", Format: "json", Output: "stdout"}))
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(&config.LogConfig{Level: "warn", Format: "console", Output: "stdout"}))
	assert.False(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}
