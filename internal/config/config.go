package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the sniper.
type Config struct {
	Solana    Solana    `mapstructure:"solana"`
	Wallet    Wallet    `mapstructure:"wallet"`
	Trading   Trading   `mapstructure:"trading"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Storage   Storage   `mapstructure:"storage"`
	Logger    Logger    `mapstructure:"logger"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

// Solana holds RPC/WS endpoints and submission tuning.
type Solana struct {
	RPCEndpoint        string        `mapstructure:"rpc_endpoint"`
	WSEndpoint         string        `mapstructure:"ws_endpoint"`
	ConfirmTimeout     time.Duration `mapstructure:"confirm_timeout"`
	ConfirmPollEvery   time.Duration `mapstructure:"confirm_poll_every"`
	SubmitMaxRetries   int           `mapstructure:"submit_max_retries"`
	FeeCacheTTL        time.Duration `mapstructure:"fee_cache_ttl"`
	BaseTipLamports    uint64        `mapstructure:"base_tip_lamports"`
}

// Wallet holds the signing key configuration.
type Wallet struct {
	PrivateKey string `mapstructure:"private_key"` // base58-encoded 64-byte key
}

// Trading holds the risk configuration surface. Zero values defer to the
// selected profile's defaults.
type Trading struct {
	RiskProfile          string        `mapstructure:"risk_profile"` // AGGRESSIVE | BALANCED | CONSERVATIVE
	BasePositionSol      float64       `mapstructure:"base_position_sol"`
	MinPositionSol       float64       `mapstructure:"min_position_sol"`
	MaxPositionSol       float64       `mapstructure:"max_position_sol"`
	MaxOpenPositions     int           `mapstructure:"max_open_positions"`
	MaxDailyTrades       int           `mapstructure:"max_daily_trades"`
	DailyLossFloorSol    float64       `mapstructure:"daily_loss_floor_sol"`
	ConsecutiveLossLimit int           `mapstructure:"consecutive_loss_limit"`
	StopLossPct          float64       `mapstructure:"stop_loss_pct"`
	TrailingStopPct      float64       `mapstructure:"trailing_stop_pct"`
	SlippageTolerancePct float64       `mapstructure:"slippage_tolerance_pct"`
	MaturationDelay      time.Duration `mapstructure:"maturation_delay"` // overrides profile when set
	DryRun               bool          `mapstructure:"dry_run"`
}

// Pipeline holds concurrency and pacing knobs.
type Pipeline struct {
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	ValidationWorkers   int           `mapstructure:"validation_workers"`
	BatchSpacing        time.Duration `mapstructure:"batch_spacing"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	TrendingInterval    time.Duration `mapstructure:"trending_interval"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	NameBlocklist       []string      `mapstructure:"name_blocklist"`
	ShutdownDrainWindow time.Duration `mapstructure:"shutdown_drain_window"`
}

// Storage holds persistence DSNs. Empty DSNs fall back to in-memory stores.
type Storage struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

// Logger holds the logging configuration.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Metrics holds the prometheus endpoint configuration.
type Metrics struct {
	Addr string `mapstructure:"addr"` // empty disables the metrics server
}

// Load reads configuration from config.yml in path, with environment
// variables overriding file values.
func Load(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("trading.risk_profile", "BALANCED")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("metrics.addr", ":9090")
	viper.SetDefault("solana.confirm_timeout", 45*time.Second)
	viper.SetDefault("solana.confirm_poll_every", 2*time.Second)
	viper.SetDefault("solana.submit_max_retries", 3)
	viper.SetDefault("solana.fee_cache_ttl", 10*time.Second)
	viper.SetDefault("solana.base_tip_lamports", 100_000)
	viper.SetDefault("pipeline.queue_capacity", 256)
	viper.SetDefault("pipeline.validation_workers", 5)
	viper.SetDefault("pipeline.batch_spacing", 2*time.Second)
	viper.SetDefault("pipeline.tick_interval", 3*time.Second)
	viper.SetDefault("pipeline.trending_interval", 5*time.Minute)
	viper.SetDefault("pipeline.fetch_timeout", 5*time.Second)
	viper.SetDefault("pipeline.shutdown_drain_window", 60*time.Second)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
