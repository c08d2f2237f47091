// Package config layers CLI flags over an optional config file and
// environment variables, via spf13/viper, the way the teacher's server
// command layers its own TOML config beneath cobra/pflag flags.
package config

import (
	"strings"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Membership holds the resolved configuration for `barcodescan membership`.
type Membership struct {
	ShardsDir string `mapstructure:"shards"`
	Bitmap    string `mapstructure:"bitmap"`
	K         int    `mapstructure:"k"`
	KmersFile string `mapstructure:"kmers"`
	OutFile   string `mapstructure:"out"`
	Threads   int    `mapstructure:"threads"`
	Verbose   bool   `mapstructure:"verbose"`
}

// Stream holds the resolved configuration for `barcodescan stream`.
type Stream struct {
	ShardsDir         string `mapstructure:"shards"`
	GCHistPath        string `mapstructure:"gc-hist"`
	Substring         string `mapstructure:"substring"`
	ReverseComplement bool   `mapstructure:"reverse_complement"`
	GCMinPct          int    `mapstructure:"gc-min"`
	GCMaxPct          int    `mapstructure:"gc-max"`
	Limit             int    `mapstructure:"limit"`
	Threads           int    `mapstructure:"threads"`
	ConstructK        int    `mapstructure:"construct_k"`
	Window            int    `mapstructure:"window"`
	Burst             int    `mapstructure:"burst"`
	RefillChunk       int    `mapstructure:"refill_chunk"`
	Cursor            string `mapstructure:"cursor"`
	RandomAccess      bool   `mapstructure:"random_access"`
	RASeed            uint64 `mapstructure:"ra_seed"`
	Verbose           bool   `mapstructure:"verbose"`
}

// New builds a viper instance layering flags over an optional config
// file and BARCODESCAN_-prefixed environment variables. configFile may
// be empty to skip file loading.
func New(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("barcodescan")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(kerr.ErrConfigConflict, err.Error())
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(kerr.ErrConfigConflict, "reading config file %s: %v", configFile, err)
		}
	}

	return v, nil
}

// LoadMembership resolves a Membership config from v, requiring exactly
// one of shards/bitmap to be set.
func LoadMembership(v *viper.Viper) (*Membership, error) {
	var m Membership
	if err := v.Unmarshal(&m); err != nil {
		return nil, errors.Wrapf(kerr.ErrConfigConflict, "unmarshalling membership config: %v", err)
	}
	if m.ShardsDir == "" && m.Bitmap == "" {
		return nil, errors.Wrap(kerr.ErrBadInput, "one of --shards or --bitmap is required")
	}
	if m.ShardsDir != "" && m.Bitmap != "" {
		return nil, errors.Wrap(kerr.ErrConfigConflict, "--shards and --bitmap are mutually exclusive")
	}
	if m.K != 16 && m.K != 17 && m.K != 18 {
		return nil, errors.Wrapf(kerr.ErrBadInput, "unsupported k=%d (expected 16/17/18)", m.K)
	}
	if m.Threads <= 0 {
		m.Threads = 4
	}
	return &m, nil
}

// LoadStream resolves a Stream config from v, filling defaults for
// threads, window, burst and refill_chunk and validating the GC range and
// limit. ConstructK is left as given; 0 (unset) is resolved to the shard
// index's k by the caller.
func LoadStream(v *viper.Viper) (*Stream, error) {
	var s Stream
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrapf(kerr.ErrConfigConflict, "unmarshalling stream config: %v", err)
	}
	if s.ShardsDir == "" {
		return nil, errors.Wrap(kerr.ErrBadInput, "--shards is required")
	}
	if s.GCHistPath == "" {
		return nil, errors.Wrap(kerr.ErrBadInput, "--gc-hist is required")
	}
	if s.Threads <= 0 {
		s.Threads = 4
	}
	if s.Window <= 0 {
		s.Window = 4
	}
	if s.Burst <= 0 {
		s.Burst = 32
	}
	if s.RefillChunk <= 0 {
		s.RefillChunk = 256
	}
	if s.GCMaxPct == 0 {
		s.GCMaxPct = 100
	}
	if s.GCMinPct < 0 || s.GCMinPct > 100 || s.GCMaxPct < 0 || s.GCMaxPct > 100 || s.GCMinPct > s.GCMaxPct {
		return nil, errors.Wrapf(kerr.ErrBadInput, "GC range must satisfy 0<=gc-min<=gc-max<=100, got [%d,%d]", s.GCMinPct, s.GCMaxPct)
	}
	if s.Limit < 1 {
		return nil, errors.Wrapf(kerr.ErrBadInput, "--limit must be >=1, got %d", s.Limit)
	}
	return &s, nil
}
