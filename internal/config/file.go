package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// fileConfig mirrors #Config in schema.cue. Pointers distinguish omitted
// fields from zero values.
type fileConfig struct {
	Dir           *string `json:"dir"`
	Name          *string `json:"name"`
	BusyTimeoutMS *int64  `json:"busy_timeout_ms"`
}

// LoadFile reads a CUE config file, validates it against #Config and
// overlays the fields it sets onto base.
//
// Unknown fields are rejected because #Config is a closed definition.
func LoadFile(path string, base Config) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parse(src, path, base)
}

func parse(src []byte, filename string, base Config) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError("parse config", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError("invalid config", err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return Config{}, formatCUEError("decode config", err)
	}

	cfg := base
	if fc.Dir != nil {
		cfg.Dir = *fc.Dir
	}
	if fc.Name != nil {
		cfg.Name = *fc.Name
	}
	if fc.BusyTimeoutMS != nil {
		cfg.BusyTimeout = time.Duration(*fc.BusyTimeoutMS) * time.Millisecond
	}
	return cfg, nil
}

// formatCUEError flattens a CUE error list, keeping file positions.
func formatCUEError(prefix string, err error) error {
	return fmt.Errorf("%s: %s", prefix, cueerrors.Details(err, nil))
}
