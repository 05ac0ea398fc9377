package check

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"

	"numstamp/internal/arith"
	"numstamp/internal/constant"
)

// ErrConfig reports an unusable checker configuration.
var ErrConfig = errors.New("invalid check config")

// ReportConfig selects how a finished run is rendered and persisted.
type ReportConfig struct {
	Format        string `toml:"format" msgpack:"-"`
	Cache         bool   `toml:"cache" msgpack:"-"`
	MaxViolations int    `toml:"max_violations" msgpack:"max_violations"`
}

// Config drives a check run. The zero value is not usable; start from
// Default and overlay a file or flags.
type Config struct {
	Seed            int64        `toml:"seed" msgpack:"seed"`
	StampsPerJob    int          `toml:"stamps_per_job" msgpack:"stamps_per_job"`
	SamplesPerStamp int          `toml:"samples_per_stamp" msgpack:"samples_per_stamp"`
	Widths          []int        `toml:"widths" msgpack:"widths"`
	Ops             []string     `toml:"ops" msgpack:"ops"`
	Laws            bool         `toml:"laws" msgpack:"laws"`
	RoundTrip       bool         `toml:"roundtrip" msgpack:"roundtrip"`
	Workers         int          `toml:"workers" msgpack:"-"`
	Report          ReportConfig `toml:"report" msgpack:"report"`
}

// Default returns the configuration used when no numstamp.toml is given.
func Default() Config {
	return Config{
		Seed:            1,
		StampsPerJob:    200,
		SamplesPerStamp: 16,
		Widths:          []int{1, 8, 16, 32, 64},
		Laws:            true,
		RoundTrip:       true,
		Workers:         runtime.GOMAXPROCS(0),
		Report:          ReportConfig{Format: "text", Cache: true, MaxViolations: 20},
	}
}

// LoadConfig overlays the TOML file at path onto Default.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalizes operator names and rejects values no run can use.
func (c *Config) Validate() error {
	if _, err := c.seed(); err != nil {
		return fmt.Errorf("%w: seed %d: %w", ErrConfig, c.Seed, err)
	}
	if c.StampsPerJob <= 0 || c.SamplesPerStamp <= 0 {
		return fmt.Errorf("%w: stamps_per_job and samples_per_stamp must be positive", ErrConfig)
	}
	if len(c.Widths) == 0 {
		return fmt.Errorf("%w: no widths", ErrConfig)
	}
	for _, w := range c.Widths {
		if !constant.ValidIntBits(w) {
			return fmt.Errorf("%w: width %d", ErrConfig, w)
		}
	}
	for i, name := range c.Ops {
		op, err := arith.Lookup(name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		c.Ops[i] = op.String()
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	switch c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format)); c.Report.Format {
	case "":
		c.Report.Format = "text"
	case "text", "yaml", "json":
	default:
		return fmt.Errorf("%w: report format %q (expected: text|yaml|json)", ErrConfig, c.Report.Format)
	}
	if c.Report.MaxViolations < 0 {
		c.Report.MaxViolations = 0
	}
	return nil
}

// seed is the sampler seed; TOML integers are signed so the file carries
// an int64.
func (c *Config) seed() (uint64, error) {
	return safecast.Conv[uint64](c.Seed)
}

func (c *Config) wantsOp(op arith.Op) bool {
	return len(c.Ops) == 0 || slices.Contains(c.Ops, op.String())
}

// Fingerprint identifies the inputs that determine a run's outcome. Fields
// that only affect scheduling or rendering are excluded.
func (c *Config) Fingerprint() ([32]byte, error) {
	data, err := msgpack.Marshal(c)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
