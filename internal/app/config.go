package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	CalculatorsPath string // hcl templates

	// One-shot calculation. SnapshotPath and SavePath also hold the open
	// sessions when serving.
	Calc         string
	Sets         []string // name=value, in the variable's display unit
	Outputs      []string // group=variable
	SnapshotPath string
	SavePath     string
	ExportPath   string
	Sweep        string // input=from:to[:steps][:log]
	Sample       string // output sampled by the sweep
	PlotPath     string

	List   bool
	Search string // filters the list by title or tag

	ServeAddr string
	EditRate  float64 // edits per second per session, 0 is unlimited

	WatchURL     string
	WatchSession string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// Mode is what Run does.
type Mode int

const (
	ModeCalc Mode = iota
	ModeList
	ModeServe
	ModeWatch
)

// Mode reports the mode selected by the configuration.
func (c *Config) Mode() Mode {
	switch {
	case c.List:
		return ModeList
	case c.ServeAddr != "":
		return ModeServe
	case c.WatchURL != "":
		return ModeWatch
	default:
		return ModeCalc
	}
}

func NewConfig(cfg Config) (*Config, error) {
	modes := 0
	for _, set := range []bool{cfg.Calc != "", cfg.List, cfg.ServeAddr != "", cfg.WatchURL != ""} {
		if set {
			modes++
		}
	}
	if modes == 0 {
		return nil, errors.New("one of calc, list, serve or watch is required")
	}
	if modes > 1 {
		return nil, errors.New("calc, list, serve and watch are mutually exclusive")
	}

	if cfg.Calc == "" {
		for name, set := range map[string]bool{
			"set":    len(cfg.Sets) > 0,
			"output": len(cfg.Outputs) > 0,
			"export": cfg.ExportPath != "",
			"sweep":  cfg.Sweep != "",
		} {
			if set {
				return nil, fmt.Errorf("%s requires calc", name)
			}
		}
	}
	if cfg.Calc == "" && cfg.ServeAddr == "" {
		if cfg.SnapshotPath != "" {
			return nil, errors.New("snapshot requires calc or serve")
		}
		if cfg.SavePath != "" {
			return nil, errors.New("save requires calc or serve")
		}
	}
	if cfg.Search != "" && !cfg.List {
		return nil, errors.New("search requires list")
	}
	if (cfg.Sweep == "") != (cfg.Sample == "") {
		return nil, errors.New("sweep and sample must be given together")
	}
	if cfg.PlotPath != "" && cfg.Sweep == "" {
		return nil, errors.New("plot requires sweep")
	}
	if cfg.EditRate < 0 {
		return nil, errors.New("edit rate cannot be negative")
	}
	if cfg.EditRate > 0 && cfg.ServeAddr == "" {
		return nil, errors.New("edit rate requires serve")
	}
	if cfg.WatchURL != "" && cfg.WatchSession == "" {
		return nil, errors.New("watch requires a session ID")
	}
	if cfg.WatchURL == "" && cfg.WatchSession != "" {
		return nil, errors.New("session requires watch")
	}

	return &cfg, nil
}
