package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the engine.
type Config struct {
	Port            int
	LogLevel        string
	DatabasePath    string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Default market parameters. Amounts are micro-units, ratios are
	// decimal fractions (e.g. "0.01" for 1%).
	MarketAddress      string
	OraclePrice        int64
	MinSizeRequirement int64
	OracleSpreadRatio  decimal.Decimal
	LiquidationSpread  decimal.Decimal
	MinMarginRatio     decimal.Decimal
	MakerFee           decimal.Decimal
	TakerFee           decimal.Decimal
}

// Load reads configuration from environment variables, applies
// defaults, and validates values. It returns an error for any invalid
// value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	databasePath := getStr("DATABASE_PATH", "perpengine.db")

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	marketAddress := getStr("MARKET_ADDRESS", "amm-0")

	oraclePrice, err := getMicros("ORACLE_PRICE", 1800*1_000_000)
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_PRICE: %w", err)
	}

	minSize, err := getMicros("MIN_SIZE_REQUIREMENT", 100_000) // 0.1
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_SIZE_REQUIREMENT: %w", err)
	}

	oracleSpread, err := getRatio("ORACLE_SPREAD_RATIO", "0.01")
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_SPREAD_RATIO: %w", err)
	}

	liquidationSpread, err := getRatio("LIQUIDATION_SPREAD", "0.05")
	if err != nil {
		return nil, fmt.Errorf("invalid LIQUIDATION_SPREAD: %w", err)
	}

	minMarginRatio, err := getRatio("MIN_MARGIN_RATIO", "0.1")
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_MARGIN_RATIO: %w", err)
	}

	makerFee, err := getRatio("MAKER_FEE", "0.0005")
	if err != nil {
		return nil, fmt.Errorf("invalid MAKER_FEE: %w", err)
	}

	takerFee, err := getRatio("TAKER_FEE", "0.001")
	if err != nil {
		return nil, fmt.Errorf("invalid TAKER_FEE: %w", err)
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		DatabasePath:       databasePath,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
		MarketAddress:      marketAddress,
		OraclePrice:        oraclePrice,
		MinSizeRequirement: minSize,
		OracleSpreadRatio:  oracleSpread,
		LiquidationSpread:  liquidationSpread,
		MinMarginRatio:     minMarginRatio,
		MakerFee:           makerFee,
		TakerFee:           takerFee,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getMicros(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func getRatio(key, defaultVal string) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		v = defaultVal
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("must be in [0, 1], got %s", d)
	}
	return d, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
