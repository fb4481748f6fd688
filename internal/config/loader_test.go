package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/fillcheck/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fillcheck.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearConfigEnvVars drops every FILLCHECK_ variable so leaves start clean.
func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, config.EnvPrefix) {
			_ = os.Unsetenv(k)
		}
	}
}

func TestConfigLoader(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")

	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OutputDir, convey.ShouldEqual, "./artifacts")
				convey.So(cfg.NotionalUSD, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FILLCHECK_WORKER_COUNT", "3")
			_ = os.Setenv("FILLCHECK_TAKER_BPS", "2.5")
			_ = os.Setenv("FILLCHECK_ADDR", ":9090")
			_ = os.Setenv("FILLCHECK_JUDGE_MIN_SAMPLES", "40")
			_ = os.Setenv("FILLCHECK_SORT_INPUTS", "true")
			_ = os.Setenv("FILLCHECK_SORT_TICKS", "false")
			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.TakerBps, convey.ShouldEqual, 2.5)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.JudgeMinSamples, convey.ShouldEqual, 40)
				convey.So(cfg.SortInputs, convey.ShouldBeTrue)
				convey.So(cfg.SortTicks, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeYAML(t, `
# run parameters
notional_usd: 2500
cooldown_ms: 1000
output_dir: /tmp/fc
judge_command: ./judge.sh
`)
			_ = os.Setenv(config.EnvConfigFile, path)
			_ = os.Setenv("FILLCHECK_COOLDOWN_MS", "500")
			cfg, err := config.Load(ctx)

			convey.Convey("Then the file merges with defaults and env wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NotionalUSD, convey.ShouldEqual, 2500)
				convey.So(cfg.OutputDir, convey.ShouldEqual, "/tmp/fc")
				convey.So(cfg.JudgeCommand, convey.ShouldEqual, "./judge.sh")
				convey.So(cfg.CooldownMs, convey.ShouldEqual, 500)
				convey.So(cfg.TakerBps, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the file is named explicitly", func() {
			path := writeYAML(t, "min_score: 1.5\n")
			cfg, err := config.LoadFile(ctx, path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.MinScore, convey.ShouldEqual, 1.5)
		})

		convey.Convey("When the YAML is invalid", func() {
			_, err := config.LoadFile(ctx, writeYAML(t, "notional_usd: [1, 2\n"))
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value is not numeric", func() {
			_ = os.Setenv("FILLCHECK_WORKER_COUNT", "many")
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a loaded value breaks a constraint", func() {
			_ = os.Setenv("FILLCHECK_NOTIONAL_USD", "-10")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
	clearConfigEnvVars()
}
