package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultID is the on-chain identity of the vault this YVM instance manages.
	VaultID string

	// AssetDenom is the pooled asset held in the external staking position.
	AssetDenom string
	// RewardDenom is the reward token accrued by the staking gauge.
	RewardDenom string
	// DerivativeDenom is the secondary asset accepted by the derivative
	// deposit path and converted through the pool's liquidity path.
	DerivativeDenom string

	// AdminAddress is the sole identity allowed to change the cap or fee rate.
	AdminAddress string
	// FeeRecipient receives withdrawn performance fees.
	FeeRecipient string

	// AssetFeedName and RewardFeedName select the node oracle feeds used for
	// pooled-asset and reward-token valuation.
	AssetFeedName  string
	RewardFeedName string
	// AssetFeedDecimals and RewardFeedDecimals are each feed's native decimal
	// precision, used to normalize raw prices to X128.
	AssetFeedDecimals  int
	RewardFeedDecimals int
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultID, err = getEnv("YVM_VAULT_ID")
	if err != nil {
		return err
	}

	AssetDenom, err = getEnv("ASSET_DENOM")
	if err != nil {
		return err
	}

	RewardDenom, err = getEnv("REWARD_DENOM")
	if err != nil {
		return err
	}

	DerivativeDenom, err = getEnv("DERIVATIVE_DENOM")
	if err != nil {
		return err
	}

	AdminAddress, err = getEnv("VAULT_ADMIN")
	if err != nil {
		return err
	}

	FeeRecipient, err = getEnv("FEE_RECIPIENT")
	if err != nil {
		return err
	}

	AssetFeedName, err = getEnv("ASSET_FEED")
	if err != nil {
		return err
	}

	RewardFeedName, err = getEnv("REWARD_FEED")
	if err != nil {
		return err
	}

	AssetFeedDecimals, err = getEnvAsInt("ASSET_FEED_DECIMALS")
	if err != nil {
		return err
	}

	RewardFeedDecimals, err = getEnvAsInt("REWARD_FEED_DECIMALS")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("VaultID", VaultID).
		Str("AssetDenom", AssetDenom).
		Str("RewardDenom", RewardDenom).
		Str("Admin", AdminAddress).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
