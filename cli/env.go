package cli

// This file contains the FSBENCH_* environment defaults that seed the
// flag values, so operators can fix a shared output path or target
// directory without repeating flags.

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

type envDefaults struct {
	Output       string        `envconfig:"OUTPUT" default:"results.csv"`
	Backend      string        `envconfig:"BACKEND" default:"disk"`
	TargetDir    string        `envconfig:"TARGET_DIR" default:"/tmp/fsbench"`
	LogDir       string        `envconfig:"LOG_DIR" default:".fsbench"`
	ReadyTimeout time.Duration `envconfig:"READY_TIMEOUT" default:"10s"`
	Drain        time.Duration `envconfig:"DRAIN" default:"30s"`
}

func loadEnvDefaults(logger zerolog.Logger) envDefaults {
	var d envDefaults
	if err := envconfig.Process(AppName, &d); err != nil {
		logger.Warn().Err(err).Msg("Invalid FSBENCH_* environment variable")
	}
	return d
}
