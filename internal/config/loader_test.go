package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/vivaran/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DatabasePath, convey.ShouldEqual, "vivaran.db")
			convey.So(cfg.TokenTTLSeconds, convey.ShouldEqual, 3600)
			convey.So(cfg.SessionIdleMinutes, convey.ShouldEqual, 30)
			convey.So(cfg.ChangeQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.EnforceDashboardRoles, convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ChangeQueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VIVARAN_ADDR", ":9090")
			_ = os.Setenv("VIVARAN_TOKEN_TTL_SECONDS", "120")
			_ = os.Setenv("VIVARAN_ENFORCE_DASHBOARD_ROLES", "true")
			_ = os.Setenv("VIVARAN_DATABASE_PATH", ":memory:")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.TokenTTLSeconds, convey.ShouldEqual, 120)
				convey.So(cfg.EnforceDashboardRoles, convey.ShouldBeTrue)
				convey.So(cfg.DatabasePath, convey.ShouldEqual, ":memory:")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":7070"
storage_dir: "/tmp/vivaran-ls"
change_queue_size: 32
seed_file: "investors.yaml"
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIVARAN_CONFIG", tmpFile)
			_ = os.Setenv("VIVARAN_CHANGE_QUEUE_SIZE", "64")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.StorageDir, convey.ShouldEqual, "/tmp/vivaran-ls")
				convey.So(cfg.SeedFile, convey.ShouldEqual, "investors.yaml")
				convey.So(cfg.ChangeQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.SessionIdleMinutes, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("VIVARAN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("VIVARAN_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			tmpFile := createTempConfigFile(`addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("VIVARAN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-positive token ttl", func() {
			_ = os.Setenv("VIVARAN_TOKEN_TTL_SECONDS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("VIVARAN_CHANGE_QUEUE_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"VIVARAN_CONFIG",
		"VIVARAN_ADDR",
		"VIVARAN_DATABASE_PATH",
		"VIVARAN_TOKEN_TTL_SECONDS",
		"VIVARAN_ENFORCE_DASHBOARD_ROLES",
		"VIVARAN_CHANGE_QUEUE_SIZE",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "vivaran-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
