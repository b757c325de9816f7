package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gammaworks/yvm/internal/chain"
	"github.com/gammaworks/yvm/internal/config"
	"github.com/gammaworks/yvm/internal/fees"
	"github.com/gammaworks/yvm/internal/harvester"
	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/oracle"
	"github.com/gammaworks/yvm/internal/position"
	"github.com/gammaworks/yvm/internal/state"
	"github.com/gammaworks/yvm/internal/vault"
	"github.com/gammaworks/yvm/internal/web"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the YVM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("YVM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Safety Switch ---
	if os.Getenv("YVM_MODE") != "live" {
		log.Fatal().Msg("YVM_MODE is not set to 'live'. Halting to prevent accidental execution. Set YVM_MODE=live to run.")
	}
	log.Warn().Msg("Initializing YVM in LIVE mode. Real transactions will be broadcast.")

	// --- 3. Node Client and Collaborators ---
	client, err := chain.NewClient(config.NodeRPC, config.VaultID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize node client")
	}
	log.Info().Str("endpoint", config.NodeRPC).Str("vaultId", config.VaultID).Msg("Node client connected")

	params := config.DefaultVaultParameters

	oracleAdapter, err := oracle.NewAdapter(
		oracle.Feed{Source: client.Feed(config.AssetFeedName), Decimals: config.AssetFeedDecimals},
		oracle.Feed{Source: client.Feed(config.RewardFeedName), Decimals: config.RewardFeedDecimals},
		time.Duration(params.OracleMaxAgeSeconds)*time.Second,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize oracle adapter")
	}

	// Seed the staked-balance mirror from the last persisted snapshot. Share
	// balances live in the receipt history; totals are what the accounting
	// invariants depend on.
	initialStaked := sdkmath.ZeroInt()
	if snapshot, err := state.LoadLatestSnapshot(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load latest vault snapshot")
	} else if snapshot != nil {
		initialStaked = snapshot.TotalStakedAssets
		log.Info().
			Time("snapshotTime", snapshot.Timestamp).
			Str("totalStakedAssets", initialStaked.String()).
			Msg("Resuming from persisted vault snapshot")
	}

	positionManager, err := position.NewManager(client, initialStaked)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize position manager")
	}

	feeEngine, err := fees.NewEngine(client, config.RewardDenom, config.AssetDenom,
		params.FeeRateBps, params.FeeCeilingBps, params.SlippageToleranceBps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize fee engine")
	}

	vaultInstance, err := vault.New(vault.Config{
		Custody:         client,
		Converter:       client,
		Position:        positionManager,
		Fees:            feeEngine,
		Oracle:          oracleAdapter,
		AssetDenom:      config.AssetDenom,
		RewardDenom:     config.RewardDenom,
		DerivativeDenom: config.DerivativeDenom,
		Admin:           config.AdminAddress,
		FeeRecipient:    config.FeeRecipient,
		DepositCap:      params.DepositCap,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, vaultInstance, os.Getenv("ADMIN_API_TOKEN"))
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting YVM web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Harvest Loop ---
	harvestInterval := time.Duration(params.HarvestIntervalSeconds) * time.Second
	log.Info().Str("interval", harvestInterval.String()).Msg("Starting harvest loop")

	harvestLoop, err := harvester.New(vaultInstance)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create harvester")
	}

	ctx := context.Background()

	// Run the harvest loop (this will run indefinitely)
	harvestLoop.RunLoop(ctx, harvestInterval)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
