package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// fileConfig mirrors Config in HCL. Every attribute is optional; zero values
// leave the default in place.
type fileConfig struct {
	Server   *serverBlock  `hcl:"server,block"`
	Linter   *linterBlock  `hcl:"linter,block"`
	Ruleset  *rulesetBlock `hcl:"ruleset,block"`
	Upload   *uploadBlock  `hcl:"upload,block"`
	Metrics  *metricsBlock `hcl:"metrics,block"`
	LogLevel string        `hcl:"log_level,optional"`
}

type serverBlock struct {
	Host            string   `hcl:"host,optional"`
	Port            int      `hcl:"port,optional"`
	ReadTimeout     string   `hcl:"read_timeout,optional"`
	WriteTimeout    string   `hcl:"write_timeout,optional"`
	ShutdownTimeout string   `hcl:"shutdown_timeout,optional"`
	CORSOrigins     []string `hcl:"cors_origins,optional"`
}

type linterBlock struct {
	Command      string   `hcl:"command,optional"`
	Args         []string `hcl:"args,optional"`
	Timeout      string   `hcl:"timeout,optional"`
	Extension    string   `hcl:"extension,optional"`
	ProbeArgs    []string `hcl:"probe_args,optional"`
	ProbeTimeout string   `hcl:"probe_timeout,optional"`
}

type rulesetBlock struct {
	Path    string            `hcl:"path,optional"`
	Extends string            `hcl:"extends,optional"`
	Rules   map[string]string `hcl:"rules,optional"`
}

type uploadBlock struct {
	ScratchDir string `hcl:"scratch_dir,optional"`
	MaxBytes   int64  `hcl:"max_bytes,optional"`
}

type metricsBlock struct {
	Addr     string `hcl:"addr,optional"`
	Disabled bool   `hcl:"disabled,optional"`
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}

	if s := fc.Server; s != nil {
		setString(&cfg.Server.Host, s.Host)
		if s.Port != 0 {
			cfg.Server.Port = s.Port
		}
		if len(s.CORSOrigins) > 0 {
			cfg.Server.CORSOrigins = s.CORSOrigins
		}
		if err := setDuration(&cfg.Server.ReadTimeout, "server.read_timeout", s.ReadTimeout); err != nil {
			return err
		}
		if err := setDuration(&cfg.Server.WriteTimeout, "server.write_timeout", s.WriteTimeout); err != nil {
			return err
		}
		if err := setDuration(&cfg.Server.ShutdownTimeout, "server.shutdown_timeout", s.ShutdownTimeout); err != nil {
			return err
		}
	}

	if l := fc.Linter; l != nil {
		setString(&cfg.Linter.Command, l.Command)
		setString(&cfg.Linter.Extension, l.Extension)
		if l.Args != nil {
			cfg.Linter.Args = l.Args
		}
		if len(l.ProbeArgs) > 0 {
			cfg.Linter.ProbeArgs = l.ProbeArgs
		}
		if err := setDuration(&cfg.Linter.Timeout, "linter.timeout", l.Timeout); err != nil {
			return err
		}
		if err := setDuration(&cfg.Linter.ProbeTimeout, "linter.probe_timeout", l.ProbeTimeout); err != nil {
			return err
		}
	}

	if r := fc.Ruleset; r != nil {
		setString(&cfg.Ruleset.Path, r.Path)
		setString(&cfg.Ruleset.Extends, r.Extends)
		if r.Rules != nil {
			cfg.Ruleset.Rules = r.Rules
		}
	}

	if u := fc.Upload; u != nil {
		setString(&cfg.Upload.ScratchDir, u.ScratchDir)
		if u.MaxBytes != 0 {
			cfg.Upload.MaxBytes = u.MaxBytes
		}
	}

	if m := fc.Metrics; m != nil {
		setString(&cfg.Metrics.Addr, m.Addr)
		if m.Disabled {
			cfg.Metrics.Addr = ""
		}
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
