package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// Indicator type names accepted by Config.Type.
const (
	TypeSMA       = "SMA"
	TypeEMA       = "EMA"
	TypeRSI       = "RSI"
	TypeMACD      = "MACD"
	TypeKDJ       = "KDJ"
	TypeBollinger = "BOLL"
)

var typeAliases = map[string]string{
	"BB":        TypeBollinger,
	"BOLLINGER": TypeBollinger,
	"STOCH":     TypeKDJ,
}

// Config specifies a single indicator to compute.
//
// Period is the main window (the fast period for MACD). SlowPeriod and
// SignalPeriod only apply to MACD, Multiplier only to Bollinger Bands.
type Config struct {
	Type         string  `json:"type" yaml:"type"`
	Period       int     `json:"period,omitempty" yaml:"period,omitempty"`
	SlowPeriod   int     `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
	SignalPeriod int     `json:"signal_period,omitempty" yaml:"signal_period,omitempty"`
	Multiplier   float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// Normalize canonicalizes the type name and fills unset parameters with
// their defaults.
func (c Config) Normalize() Config {
	c.Type = canonicalType(c.Type)
	switch c.Type {
	case TypeRSI:
		if c.Period == 0 {
			c.Period = DefaultRSIPeriod
		}
	case TypeKDJ:
		if c.Period == 0 {
			c.Period = DefaultKDJPeriod
		}
	case TypeBollinger:
		if c.Period == 0 {
			c.Period = DefaultBollingerPeriod
		}
		if c.Multiplier == 0 {
			c.Multiplier = DefaultBollingerStdDevs
		}
	case TypeMACD:
		if c.Period == 0 {
			c.Period = DefaultMACDFast
		}
		if c.SlowPeriod == 0 {
			c.SlowPeriod = DefaultMACDSlow
		}
		if c.SignalPeriod == 0 {
			c.SignalPeriod = DefaultMACDSignal
		}
	}
	return c
}

// Name returns the display name, e.g. "SMA_20", "MACD_12_26_9", "BOLL_20_2".
func (c Config) Name() string {
	switch c.Type {
	case TypeMACD:
		return fmt.Sprintf("%s_%d_%d_%d", c.Type, c.Period, c.SlowPeriod, c.SignalPeriod)
	case TypeBollinger:
		return fmt.Sprintf("%s_%d_%s", c.Type, c.Period, strconv.FormatFloat(c.Multiplier, 'f', -1, 64))
	default:
		return c.Type + "_" + strconv.Itoa(c.Period)
	}
}

// ParseSpecs parses "TYPE[:P1[:P2[:P3]]],..." into normalized configs.
// Example: "SMA:20,EMA:9,MACD,RSI:14,KDJ:9,BOLL:20:2".
// Parameters left out take their defaults; SMA and EMA require a period.
func ParseSpecs(s string) ([]Config, error) {
	var configs []Config
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cfg, err := parseSpec(part)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no indicator specs in %q", s)
	}
	if err := ValidateConfigs(configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func parseSpec(part string) (Config, error) {
	tokens := strings.Split(part, ":")
	if len(tokens) > 4 {
		return Config{}, fmt.Errorf("indicator spec %q: too many parameters", part)
	}
	cfg := Config{Type: canonicalType(tokens[0])}
	params := tokens[1:]

	for i, p := range params {
		p = strings.TrimSpace(p)
		if cfg.Type == TypeBollinger && i == 1 {
			m, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return Config{}, fmt.Errorf("indicator spec %q: bad multiplier %q", part, p)
			}
			cfg.Multiplier = m
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("indicator spec %q: bad parameter %q", part, p)
		}
		switch i {
		case 0:
			cfg.Period = v
		case 1:
			cfg.SlowPeriod = v
		case 2:
			cfg.SignalPeriod = v
		}
	}

	if (cfg.Type == TypeSMA || cfg.Type == TypeEMA) && len(params) == 0 {
		return Config{}, fmt.Errorf("indicator spec %q: period required", part)
	}
	return cfg.Normalize(), nil
}

func canonicalType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if canon, ok := typeAliases[t]; ok {
		return canon
	}
	return t
}

// ValidateConfigs checks normalized configs for errors.
func ValidateConfigs(configs []Config) error {
	seen := make(map[string]bool, len(configs))
	for _, c := range configs {
		switch c.Type {
		case TypeSMA, TypeEMA, TypeRSI, TypeKDJ:
		case TypeBollinger:
			if c.Multiplier <= 0 {
				return fmt.Errorf("invalid multiplier=%g for %s", c.Multiplier, c.Type)
			}
		case TypeMACD:
			if c.SlowPeriod <= 0 || c.SignalPeriod <= 0 {
				return fmt.Errorf("invalid periods for %s", c.Name())
			}
			if c.Period >= c.SlowPeriod {
				return fmt.Errorf("%s: fast period must be below slow period", c.Name())
			}
		default:
			return fmt.Errorf("unknown indicator type %q", c.Type)
		}
		if c.Period <= 0 {
			return fmt.Errorf("invalid period=%d for %s", c.Period, c.Type)
		}
		name := c.Name()
		if seen[name] {
			return fmt.Errorf("duplicate indicator %s", name)
		}
		seen[name] = true
	}
	return nil
}
