package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/varsity/gridiron/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given no file and no env overrides", t, func() {
		os.Unsetenv("GRIDIRON_CONFIG")

		Convey("Then Load should return defaults", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.EmbeddingDim, ShouldEqual, 32)
			So(cfg.SimulationRuns, ShouldEqual, 100)
		})
	})

	Convey("Given env overrides", t, func() {
		So(os.Setenv("GRIDIRON_SIMULATION_RUNS", "500"), ShouldBeNil)
		So(os.Setenv("GRIDIRON_DATA_DIR", "/tmp/cfb"), ShouldBeNil)
		defer func() {
			os.Unsetenv("GRIDIRON_SIMULATION_RUNS")
			os.Unsetenv("GRIDIRON_DATA_DIR")
		}()

		Convey("Then Load should apply them over defaults", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.SimulationRuns, ShouldEqual, 500)
			So(cfg.DataDir, ShouldEqual, "/tmp/cfb")
			So(cfg.EmbeddingDim, ShouldEqual, 32) // untouched default
		})
	})

	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "gridiron.yaml")
		So(os.WriteFile(path, []byte("embedding_dim: 16\nneighbor_count: 5\n"), 0o600), ShouldBeNil)
		So(os.Setenv("GRIDIRON_CONFIG", path), ShouldBeNil)
		defer os.Unsetenv("GRIDIRON_CONFIG")

		Convey("Then file values should override defaults", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.EmbeddingDim, ShouldEqual, 16)
			So(cfg.NeighborCount, ShouldEqual, 5)
		})

		Convey("And env should override the file", func() {
			So(os.Setenv("GRIDIRON_EMBEDDING_DIM", "64"), ShouldBeNil)
			defer os.Unsetenv("GRIDIRON_EMBEDDING_DIM")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.EmbeddingDim, ShouldEqual, 64)
		})
	})

	Convey("Given invalid values", t, func() {
		So(os.Setenv("GRIDIRON_NEIGHBOR_COUNT", "0"), ShouldBeNil)
		defer os.Unsetenv("GRIDIRON_NEIGHBOR_COUNT")

		Convey("Then Load should fail with ErrInvalidConfig", func() {
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given a missing config file path", t, func() {
		So(os.Setenv("GRIDIRON_CONFIG", "/does/not/exist.yaml"), ShouldBeNil)
		defer os.Unsetenv("GRIDIRON_CONFIG")

		Convey("Then Load should fail with ErrLoadConfig", func() {
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}
