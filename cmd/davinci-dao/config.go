package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/davinci-dao/zk"
	"go.vocdoni.io/dvote/db"
)

const (
	defaultAPIHost         = "0.0.0.0"
	defaultAPIPort         = 9090
	defaultLogLevel        = "info"
	defaultLogOutput       = "stdout"
	defaultDatadir         = ".davinci-dao" // Will be prefixed with user's home directory
	defaultDBType          = "pebble"
	defaultCurve           = "bls12_381"
	defaultBalanceCacheTTL = 30 * time.Second
)

// Version is the build version, set at build time with -ldflags
var Version = "dev"

// Config holds the application configuration
type Config struct {
	API     APIConfig
	Log     LogConfig
	DB      DBConfig
	ZK      ZKConfig
	Web3    Web3Config
	Datadir string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DisableLogging bool   `mapstructure:"disableLogging"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	ErrorFile string `mapstructure:"errorFile"`
}

// DBConfig holds the storage backend configuration
type DBConfig struct {
	Type string `mapstructure:"type"`
}

// ZKConfig holds the proof verification configuration
type ZKConfig struct {
	Curve           string `mapstructure:"curve"`
	VKey            string `mapstructure:"vkey"`
	AllowEmptyProof bool   `mapstructure:"allowEmptyProof"`
	CacheSize       int    `mapstructure:"cacheSize"`
}

// Web3Config holds the configuration of the token balance reader. Balances
// are not checked when no RPC endpoint is given.
type Web3Config struct {
	RPC             []string      `mapstructure:"rpc"`
	BalanceCacheTTL time.Duration `mapstructure:"balanceCacheTTL"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("db.type", defaultDBType)
	v.SetDefault("zk.curve", defaultCurve)
	v.SetDefault("zk.cacheSize", zk.DefaultCacheSize)
	v.SetDefault("web3.balanceCacheTTL", defaultBalanceCacheTTL)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.Bool("api.disableLogging", false, "disable the API request logging")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.String("log.errorFile", "", "file to also write the error logs to")
	flag.String("db.type", defaultDBType, "storage backend (pebble or leveldb)")
	flag.StringP("zk.curve", "c", defaultCurve, "curve of the eligibility proofs (bls12_381 or bn254)")
	flag.StringP("zk.vkey", "k", "", "default verifying key file, used by elections created without one")
	flag.Bool("zk.allowEmptyProof", false, "admit votes with an empty proof and public input (development only)")
	flag.Int("zk.cacheSize", zk.DefaultCacheSize, "number of parsed verifying keys kept in memory")
	flag.StringSliceP("web3.rpc", "w", []string{}, "web3 rpc endpoint(s) to read eligibility token balances, comma-separated")
	flag.Duration("web3.balanceCacheTTL", defaultBalanceCacheTTL, "time a token balance is cached (0 disables the cache)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database and storage files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "davinci-dao %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: davinci-dao [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, DAVINCI_DAO_API_PORT or DAVINCI_DAO_ZK_VKEY\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with a default verifying key\n")
		fmt.Fprintf(os.Stderr, "  davinci-dao --zk.vkey=eligibility.vk\n\n")
		fmt.Fprintf(os.Stderr, "  # Weight votes by token balance\n")
		fmt.Fprintf(os.Stderr, "  davinci-dao --web3.rpc=https://rpc1.com,https://rpc2.com\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("DAVINCI_DAO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if _, err := dbType(cfg.DB.Type); err != nil {
		return err
	}
	if _, err := zk.ParseCurve(cfg.ZK.Curve); err != nil {
		return err
	}
	if cfg.ZK.CacheSize <= 0 {
		return fmt.Errorf("zk.cacheSize must be positive, got %d", cfg.ZK.CacheSize)
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("invalid api.port %d", cfg.API.Port)
	}
	if cfg.Web3.BalanceCacheTTL < 0 {
		return fmt.Errorf("web3.balanceCacheTTL can not be negative")
	}
	return nil
}

// dbType maps the db.type option to the storage backend.
func dbType(name string) (string, error) {
	switch name {
	case "pebble":
		return db.TypePebble, nil
	case "leveldb":
		return db.TypeLevelDB, nil
	default:
		return "", fmt.Errorf("unknown db.type %q (pebble or leveldb)", name)
	}
}
