package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"kfscope/common"
	"kfscope/config"
	"kfscope/keyframes"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	if ctx == nil {
		t.Fatal("ContextWithEnv() returned nil")
	}

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.Log != nil {
		t.Error("Logger must not be set before configuration is loaded")
	}
}

func TestEnvFromContext(t *testing.T) {
	t.Run("valid context", func(t *testing.T) {
		ctx := ContextWithEnv(context.Background())
		if EnvFromContext(ctx) == nil {
			t.Error("Expected non-nil environment")
		}
	})

	t.Run("same environment", func(t *testing.T) {
		ctx := ContextWithEnv(context.Background())
		EnvFromContext(ctx).NoDirs = true
		if !EnvFromContext(ctx).NoDirs {
			t.Error("Environment must be shared through context")
		}
	})

	t.Run("panic on missing env", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic when env not in context")
			}
		}()
		EnvFromContext(context.Background())
	})
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := &LocalEnv{start: time.Now()}

	time.Sleep(10 * time.Millisecond)
	uptime := env.Uptime()

	if uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
	if uptime > 5*time.Second {
		t.Errorf("Uptime() = %v, unexpectedly large", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}

		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Error("Expected restoreStdLog to be set")
		}
		env.RestoreStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to be cleared")
		}
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}

		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		// Should not panic
		env.RestoreStdLog()
	})

	t.Run("repeated cycles", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}
		for i := 0; i < 3; i++ {
			env.RedirectStdLog()
			if env.restoreStdLog == nil {
				t.Errorf("Iteration %d: restoreStdLog not set", i)
			}
			env.RestoreStdLog()
		}
	})
}

func TestLocalEnv_Fields(t *testing.T) {
	env := &LocalEnv{
		Cfg:       &config.Config{Version: 1},
		NoDirs:    true,
		Overwrite: true,
		Stdout:    true,
		Strict:    true,
		CodePage:  charmap.Windows1251,
	}
	if !env.NoDirs || !env.Overwrite || !env.Stdout || !env.Strict {
		t.Errorf("switches not set correctly: %+v", env)
	}
	if env.CodePage != charmap.Windows1251 {
		t.Error("CodePage not set correctly")
	}
}

func TestLocalEnv_NewEngine(t *testing.T) {
	t.Run("no configuration", func(t *testing.T) {
		env := &LocalEnv{}
		if _, err := env.NewEngine(); err == nil {
			t.Error("Expected error without configuration")
		}
	})

	t.Run("valid configuration", func(t *testing.T) {
		env := &LocalEnv{
			Cfg: &config.Config{Version: 1, Scoping: config.ScopingConfig{
				Prefix:       "p-",
				DefaultScope: common.ScopeLocal,
				GlobalRegExp: keyframes.DefaultGlobalRegExp,
				LocalRegExp:  keyframes.DefaultLocalRegExp,
			}},
			Log: zaptest.NewLogger(t),
		}
		engine, err := env.NewEngine()
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		if engine.Options().Prefix != "p-" {
			t.Errorf("Prefix = %q, want p-", engine.Options().Prefix)
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		env := &LocalEnv{
			Cfg: &config.Config{Version: 1, Scoping: config.ScopingConfig{
				Prefix:       "p-",
				GlobalRegExp: "(",
				LocalRegExp:  keyframes.DefaultLocalRegExp,
			}},
		}
		_, err := env.NewEngine()
		if !errors.Is(err, keyframes.ErrInvalidOptions) {
			t.Errorf("NewEngine() error = %v, want ErrInvalidOptions", err)
		}
	})
}

func TestEnvKey(t *testing.T) {
	var key envKey
	ctx := context.WithValue(context.Background(), key, &LocalEnv{start: time.Now()})

	val := ctx.Value(key)
	if val == nil {
		t.Fatal("Failed to retrieve value with envKey")
	}
	if _, ok := val.(*LocalEnv); !ok {
		t.Error("Retrieved value is not *LocalEnv")
	}
}
