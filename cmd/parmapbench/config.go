package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/utkarsh5026/parmap/pool"
)

// Config is the benchmark configuration. Every field can come from the
// TOML file given by -config; explicit flags override the file.
type Config struct {
	Items    int      `toml:"items"`
	Work     int      `toml:"work"`
	Workers  []int    `toml:"workers"`
	Queues   []string `toml:"queues"`
	Capacity int      `toml:"capacity"`
	CI       bool     `toml:"ci"`
	Verbose  bool     `toml:"verbose"`
}

var errUsage = errors.New("invalid configuration")

func defaultConfig() Config {
	return Config{
		Items:   5000,
		Work:    20000,
		Workers: []int{1, 2, 4, 8},
		Queues:  []string{"channel", "ring", "unbounded"},
	}
}

// parseConfig builds a Config from args (without the program name).
func parseConfig(args []string, stderr io.Writer) (Config, error) {
	cfg := defaultConfig()

	var (
		configPath string
		workers    string
		queues     string
		flagCfg    Config
	)

	fs := flag.NewFlagSet("parmapbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "TOML config file")
	fs.IntVar(&flagCfg.Items, "items", cfg.Items, "Number of elements to map per run")
	fs.IntVar(&flagCfg.Work, "work", cfg.Work, "Xorshift rounds per element (CPU cost)")
	fs.StringVar(&workers, "workers", joinInts(cfg.Workers), "Comma-separated worker counts")
	fs.StringVar(&queues, "queues", strings.Join(cfg.Queues, ","), "Comma-separated queue kinds (channel, ring, unbounded)")
	fs.IntVar(&flagCfg.Capacity, "capacity", 0, "Bounded queue capacity (0 = worker count)")
	fs.BoolVar(&flagCfg.CI, "ci", false, "Plain output: no colors, no progress bar")
	fs.BoolVar(&flagCfg.Verbose, "v", false, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "items":
			cfg.Items = flagCfg.Items
		case "work":
			cfg.Work = flagCfg.Work
		case "workers":
			ints, err := splitInts(workers)
			if err != nil {
				parseErr = err
			}
			cfg.Workers = ints
		case "queues":
			cfg.Queues = splitList(queues)
		case "capacity":
			cfg.Capacity = flagCfg.Capacity
		case "ci":
			cfg.CI = flagCfg.CI
		case "v":
			cfg.Verbose = flagCfg.Verbose
		}
	})
	if parseErr != nil {
		return Config{}, parseErr
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Items < 0 {
		return fmt.Errorf("%w: items must be >= 0, got %d", errUsage, c.Items)
	}
	if c.Work <= 0 {
		return fmt.Errorf("%w: work must be > 0, got %d", errUsage, c.Work)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("%w: capacity must be >= 0, got %d", errUsage, c.Capacity)
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("%w: no worker counts", errUsage)
	}
	for _, w := range c.Workers {
		if w <= 0 {
			return fmt.Errorf("%w: worker count must be > 0, got %d", errUsage, w)
		}
	}
	if len(c.Queues) == 0 {
		return fmt.Errorf("%w: no queue kinds", errUsage)
	}
	for _, q := range c.Queues {
		if _, ok := pool.ParseQueueKind(q); !ok {
			return fmt.Errorf("%w: unknown queue %q", errUsage, q)
		}
	}
	return nil
}

// queueKinds returns the parsed queue kinds. It assumes validate passed.
func (c Config) queueKinds() []pool.QueueKind {
	kinds := make([]pool.QueueKind, 0, len(c.Queues))
	for _, q := range c.Queues {
		k, _ := pool.ParseQueueKind(q)
		kinds = append(kinds, k)
	}
	return kinds
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitInts(s string) ([]int, error) {
	parts := splitList(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: worker count %q is not a number", errUsage, p)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(ints []int) string {
	parts := make([]string, len(ints))
	for i, n := range ints {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
