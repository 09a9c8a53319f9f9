package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tradepilot/internal/domain/market"
	"tradepilot/internal/domain/model"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	App struct {
		PollSec          int     `toml:"poll_sec"`
		SnapshotEveryMin int     `toml:"snapshot_every_min"`
		Capital          float64 `toml:"capital"`
		QuoteAsset       string  `toml:"quote_asset"`
		DryRun           bool    `toml:"dry_run"`
		MaxDailyTrades   int     `toml:"max_daily_trades"`
		StatePath        string  `toml:"state_path"`
		TokensFile       string  `toml:"tokens_file"`
		LogLevel         string  `toml:"log_level"`
		LogFormat        string  `toml:"log_format"` // console | json
		Color            bool    `toml:"color"`
	} `toml:"app"`

	Symbols struct {
		List []string `toml:"list"`
	} `toml:"symbols"`

	// 全局策略参数，覆盖内置默认值
	Strategy model.TokenParams `toml:"strategy"`

	// [tokens.WETH] 单标的覆盖
	Tokens map[string]model.TokenParams `toml:"tokens"`

	Risk struct {
		MaxPortfolioHeat float64 `toml:"max_portfolio_heat"`
		MaxPositionRisk  float64 `toml:"max_position_risk"`
	} `toml:"risk"`

	Exits struct {
		TPBps            float64 `toml:"tp_bps"`
		SLBps            float64 `toml:"sl_bps"`
		TrailBps         float64 `toml:"trail_bps"`
		UseTrailing      bool    `toml:"use_trailing"`
		MaxChunkFraction float64 `toml:"max_chunk_fraction"`
	} `toml:"exits"`

	Feed struct {
		Kind        string             `toml:"kind"` // sim | replay
		Seed        int64              `toml:"seed"`
		Drift       float64            `toml:"drift"`
		Volatility  float64            `toml:"volatility"`
		StartPrices map[string]float64 `toml:"start_prices"`
		ReplayPath  string             `toml:"replay_path"`
		Retries     int                `toml:"retries"`
		RetryBaseMs int                `toml:"retry_base_ms"`
		TimeoutMs   int                `toml:"timeout_ms"`
	} `toml:"feed"`

	Execution struct {
		Kind        string  `toml:"kind"` // paper | dryrun
		RatePerSec  float64 `toml:"rate_per_sec"`
		Burst       int     `toml:"burst"`
		FeeRate     float64 `toml:"fee_rate"`
		SpreadRate  float64 `toml:"spread_rate"`
		SlippageBps float64 `toml:"slippage_bps"`
	} `toml:"execution"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled         bool   `toml:"enabled"`
			Addr            string `toml:"addr"`
			Password        string `toml:"password"`
			DB              int    `toml:"db"`
			Prefix          string `toml:"prefix"`
			TTLSeconds      int    `toml:"ttl_seconds"`
			DecisionStream  string `toml:"decision_stream"`
			DecisionChannel string `toml:"decision_channel"`
		} `toml:"redis"`
	} `toml:"storage"`

	Telemetry struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
		Path    string `toml:"path"`
	} `toml:"telemetry"`

	fileTokens map[string]model.TokenParams
}

type tokensFile struct {
	Tokens map[string]model.TokenParams `yaml:"tokens"`
}

// Load 读取 .env（可选）、TOML、YAML token 文件，然后应用环境变量覆盖、默认值与校验
func Load(path string) (*Config, error) {
	// .env 缺失时忽略
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.App.TokensFile != "" {
		p := cfg.App.TokensFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		tokens, err := loadTokensFile(p)
		if err != nil {
			return nil, err
		}
		cfg.fileTokens = tokens
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadTokensFile(path string) (map[string]model.TokenParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokens file: %w", err)
	}
	var f tokensFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tokens file %s: %w", path, err)
	}
	return normalizeTokens(f.Tokens), nil
}

// 环境变量覆盖（TRADEPILOT_*）
func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv("TRADEPILOT_DRY_RUN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TRADEPILOT_DRY_RUN: %v", ErrInvalidConfig, err)
		}
		cfg.App.DryRun = b
	}
	if v, ok := lookupEnv("TRADEPILOT_CAPITAL"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: TRADEPILOT_CAPITAL: %v", ErrInvalidConfig, err)
		}
		cfg.App.Capital = f
	}
	if v, ok := lookupEnv("TRADEPILOT_POLL_SEC"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TRADEPILOT_POLL_SEC: %v", ErrInvalidConfig, err)
		}
		cfg.App.PollSec = n
	}
	if v, ok := lookupEnv("TRADEPILOT_LOG_LEVEL"); ok {
		cfg.App.LogLevel = v
	}
	if v, ok := lookupEnv("TRADEPILOT_REDIS_ADDR"); ok {
		cfg.Storage.Redis.Addr = v
	}
	if v, ok := lookupEnv("TRADEPILOT_POSTGRES_DSN"); ok {
		cfg.Storage.Postgres.DSN = v
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.PollSec <= 0 {
		cfg.App.PollSec = 60
	}
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if cfg.App.QuoteAsset == "" {
		cfg.App.QuoteAsset = "USDC"
	}
	if cfg.App.StatePath == "" {
		cfg.App.StatePath = "data/state.json"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "console"
	}

	if cfg.Risk.MaxPortfolioHeat <= 0 {
		cfg.Risk.MaxPortfolioHeat = 0.15
	}
	if cfg.Risk.MaxPositionRisk <= 0 {
		cfg.Risk.MaxPositionRisk = 0.05
	}
	if cfg.Exits.MaxChunkFraction <= 0 {
		cfg.Exits.MaxChunkFraction = 0.25
	}

	if cfg.Feed.Kind == "" {
		cfg.Feed.Kind = "sim"
	}
	if cfg.Feed.Volatility <= 0 {
		cfg.Feed.Volatility = 0.01
	}
	if cfg.Feed.Retries <= 0 {
		cfg.Feed.Retries = 3
	}
	if cfg.Feed.RetryBaseMs <= 0 {
		cfg.Feed.RetryBaseMs = 1000
	}
	if cfg.Feed.TimeoutMs <= 0 {
		cfg.Feed.TimeoutMs = 10000
	}

	if cfg.Execution.Kind == "" {
		cfg.Execution.Kind = "paper"
	}
	if cfg.Execution.RatePerSec <= 0 {
		cfg.Execution.RatePerSec = 2
	}
	if cfg.Execution.Burst <= 0 {
		cfg.Execution.Burst = 1
	}
	if cfg.Execution.FeeRate <= 0 {
		cfg.Execution.FeeRate = 0.002
	}
	if cfg.Execution.SpreadRate <= 0 {
		cfg.Execution.SpreadRate = 0.001
	}

	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/tradepilot.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "tradepilot"
	}
	if cfg.Storage.Redis.DecisionStream == "" {
		cfg.Storage.Redis.DecisionStream = "tradepilot:decisions"
	}
	if cfg.Storage.Redis.DecisionChannel == "" {
		cfg.Storage.Redis.DecisionChannel = "tradepilot:decisions:pub"
	}

	if cfg.Telemetry.Addr == "" {
		cfg.Telemetry.Addr = ":8090"
	}
	if cfg.Telemetry.Path == "" {
		cfg.Telemetry.Path = "/ws"
	}
	cfg.Tokens = normalizeTokens(cfg.Tokens)
}

func validate(cfg *Config) error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		bad("symbols.list is empty")
	}
	if cfg.App.Capital <= 0 {
		bad("app.capital must be positive")
	}
	if cfg.Risk.MaxPortfolioHeat > 1 || cfg.Risk.MaxPositionRisk > cfg.Risk.MaxPortfolioHeat {
		bad("risk limits out of range (heat %.2f, position %.2f)", cfg.Risk.MaxPortfolioHeat, cfg.Risk.MaxPositionRisk)
	}
	if cfg.Exits.TPBps < 0 || cfg.Exits.SLBps < 0 || cfg.Exits.TrailBps < 0 || cfg.Exits.MaxChunkFraction > 1 {
		bad("exits out of range")
	}

	for _, sym := range cfg.Symbols.List {
		p := cfg.Params(sym)
		if p.EMAFast <= 0 || p.EMASlow <= 0 || p.EMATrend <= 0 || p.EMAFast >= p.EMASlow {
			bad("%s: ema lengths invalid (%d/%d/%d)", sym, p.EMAFast, p.EMASlow, p.EMATrend)
		}
		if p.MinLotUSD > p.MaxLotUSD {
			bad("%s: min_lot_usd %.2f > max_lot_usd %.2f", sym, p.MinLotUSD, p.MaxLotUSD)
		}
		if p.MaxRiskPerTrade <= 0 || p.MaxRiskPerTrade > 1 {
			bad("%s: max_risk_per_trade %.4f out of range", sym, p.MaxRiskPerTrade)
		}
		if p.RSIOversold >= p.RSIOverbought {
			bad("%s: rsi thresholds invalid", sym)
		}
		if p.CooldownSec != nil && *p.CooldownSec < 0 {
			bad("%s: cooldown_sec %d is negative", sym, *p.CooldownSec)
		}
		if err := market.CheckParams(p); err != nil {
			bad("%s: %v", sym, err)
		}
	}

	switch cfg.Feed.Kind {
	case "sim":
	case "replay":
		if strings.TrimSpace(cfg.Feed.ReplayPath) == "" {
			bad("feed.replay_path empty but feed.kind is replay")
		}
	default:
		bad("unknown feed.kind %q", cfg.Feed.Kind)
	}
	if k := cfg.Execution.Kind; k != "paper" && k != "dryrun" {
		bad("unknown execution.kind %q", cfg.Execution.Kind)
	}

	if cfg.Storage.Enabled {
		if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			bad("storage.redis.addr empty but redis enabled")
		}
		if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			bad("storage.postgres.dsn empty but postgres enabled")
		}
	}
	return errors.Join(errs...)
}

// Params 合并顺序：默认值 → [strategy] → YAML token 文件 → [tokens.X]
func (c *Config) Params(symbol string) model.TokenParams {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	p := model.DefaultTokenParams().Merge(c.Strategy)
	if o, ok := c.fileTokens[sym]; ok {
		p = p.Merge(o)
	}
	if o, ok := c.Tokens[sym]; ok {
		p = p.Merge(o)
	}
	return p
}

func normalizeTokens(in map[string]model.TokenParams) map[string]model.TokenParams {
	out := make(map[string]model.TokenParams, len(in))
	for k, v := range in {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
