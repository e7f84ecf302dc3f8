package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	DataDir      string
	JWTSecret    string
	OwnerAddress string
	Testnet      bool
}

// LoadConfig reads the node configuration from the environment, optionally
// seeded from a .env file. A missing .env file is not an error; explicit
// environment variables always win.
func LoadConfig(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading env file %s: %v", envPath, err)
		}
	}

	cfg := &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8546"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		OwnerAddress: os.Getenv("OWNER_ADDRESS"),
	}

	if v := os.Getenv("TESTNET"); v != "" {
		testnet, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TESTNET value %q: %v", v, err)
		}
		cfg.Testnet = testnet
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
