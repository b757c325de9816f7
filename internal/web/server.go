package web

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/gammaworks/yvm/internal/logger"
	"github.com/gammaworks/yvm/internal/state"
	"github.com/gammaworks/yvm/internal/types"
	"github.com/gammaworks/yvm/internal/utils"
	"github.com/gammaworks/yvm/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for vault operations and data visualization
type WebServer struct {
	router     *mux.Router
	port       string
	vault      *vault.Vault
	adminToken string
	startedAt  time.Time
}

// NewWebServer creates a new web server instance. adminToken gates the admin
// subrouter; an empty token disables admin routes entirely.
func NewWebServer(port string, v *vault.Vault, adminToken string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		port:       port,
		vault:      v,
		adminToken: adminToken,
		startedAt:  time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Read-only API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault/price", ws.handleGetPrice).Methods("GET")
	api.HandleFunc("/vault/balance/{holder}", ws.handleGetBalance).Methods("GET")
	api.HandleFunc("/vault/claimable", ws.handleGetClaimable).Methods("GET")
	api.HandleFunc("/harvests", ws.handleGetHarvests).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")

	// User operations
	api.HandleFunc("/vault/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/vault/deposit-derivative", ws.handleDepositDerivative).Methods("POST")
	api.HandleFunc("/vault/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/vault/withdraw-derivative", ws.handleWithdrawDerivative).Methods("POST")

	// Admin operations, token-gated
	admin := ws.router.PathPrefix("/api/admin").Subrouter()
	admin.Use(ws.adminAuthMiddleware)
	admin.HandleFunc("/deposit-cap", ws.handleUpdateDepositCap).Methods("POST")
	admin.HandleFunc("/fee-rate", ws.handleChangeFee).Methods("POST")
	admin.HandleFunc("/withdraw-fees", ws.handleWithdrawFees).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	if !dbHealthy {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "yvm-yield-vault-manager",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
	}

	statusCode := http.StatusOK
	if !dbHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetVaultSummary returns the vault's current accounting state
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	snapshot := ws.vault.Snapshot(r.Context())
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetPrice returns the current share price in X128 fixed point
func (ws *WebServer) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	price, err := ws.vault.GetPriceX128(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get share price")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Price oracle unavailable")
		return
	}

	response := map[string]interface{}{
		"price_x128":   price.String(),
		"total_shares": ws.vault.TotalShares().String(),
		"total_assets": ws.vault.TotalAssets().String(),
		"timestamp":    time.Now().UTC(),
	}
	if display, err := utils.PriceX128ToFloat64(price); err == nil {
		response["price"] = display
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetBalance returns a holder's share balance and its asset value
func (ws *WebServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	holder := vars["holder"]
	if holder == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Holder address is required")
		return
	}

	shares := ws.vault.BalanceOf(holder)
	assets, err := ws.vault.ConvertToAssets(shares)
	if err != nil {
		webLogger.Error().Err(err).Str("holder", holder).Msg("Failed to value share balance")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to value share balance")
		return
	}

	response := map[string]interface{}{
		"holder":      holder,
		"shares":      shares.String(),
		"asset_value": assets.String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetClaimable returns rewards accrued but not yet harvested
func (ws *WebServer) handleGetClaimable(w http.ResponseWriter, r *http.Request) {
	claimable, err := ws.vault.ClaimableRewards(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to query claimable rewards")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Staking target unavailable")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"claimable_rewards": claimable.String(),
		"timestamp":         time.Now().UTC(),
	})
}

// handleGetHarvests returns paginated harvest history
func (ws *WebServer) handleGetHarvests(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20)

	harvests, err := state.GetRecentHarvests(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent harvests")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve harvests")
		return
	}

	response := map[string]interface{}{
		"harvests": harvests,
		"count":    len(harvests),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReceipts returns paginated operation receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

type depositRequest struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

// handleDeposit pulls pooled assets from the caller and mints shares
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	receiver := req.Receiver
	if receiver == "" {
		receiver = req.Caller
	}

	shares, err := ws.vault.Deposit(r.Context(), req.Caller, receiver, amount)
	ws.recordAndRespond(w, types.OperationReceipt{
		Timestamp:   time.Now().UTC(),
		Type:        types.OpDeposit,
		Caller:      req.Caller,
		Receiver:    receiver,
		AssetAmount: amount,
		ShareAmount: shares,
	}, err)
}

// handleDepositDerivative converts a secondary-asset deposit into the pooled
// asset before minting shares
func (ws *WebServer) handleDepositDerivative(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	shares, err := ws.vault.DepositDerivative(r.Context(), req.Caller, amount)
	ws.recordAndRespond(w, types.OperationReceipt{
		Timestamp:   time.Now().UTC(),
		Type:        types.OpDepositDerivative,
		Caller:      req.Caller,
		Receiver:    req.Caller,
		AssetAmount: amount,
		ShareAmount: shares,
	}, err)
}

type withdrawRequest struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Owner    string `json:"owner"`
	Amount   string `json:"amount"`
}

type withdrawFunc func(ctx context.Context, caller, receiver, owner string, amount sdkmath.Int) (sdkmath.Int, sdkmath.Int, error)

// handleWithdraw burns shares and pays out pooled assets
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ws.handleWithdrawal(w, r, types.OpWithdraw, ws.vault.Withdraw)
}

// handleWithdrawDerivative burns shares and pays out the secondary asset
func (ws *WebServer) handleWithdrawDerivative(w http.ResponseWriter, r *http.Request) {
	ws.handleWithdrawal(w, r, types.OpWithdrawDerivative, ws.vault.WithdrawDerivative)
}

func (ws *WebServer) handleWithdrawal(w http.ResponseWriter, r *http.Request, opType types.OperationType, op withdrawFunc) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	receiver := req.Receiver
	if receiver == "" {
		receiver = req.Caller
	}
	owner := req.Owner
	if owner == "" {
		owner = req.Caller
	}

	assetOut, shares, err := op(r.Context(), req.Caller, receiver, owner, amount)
	// The receipt records the assets actually moved, which exceeds the
	// requested amount when the last holder sweeps the residual.
	if err != nil {
		assetOut = amount
	}
	ws.recordAndRespond(w, types.OperationReceipt{
		Timestamp:   time.Now().UTC(),
		Type:        opType,
		Caller:      req.Caller,
		Receiver:    receiver,
		AssetAmount: assetOut,
		ShareAmount: shares,
	}, err)
}

type depositCapRequest struct {
	Caller string `json:"caller"`
	NewCap string `json:"new_cap"`
}

// handleUpdateDepositCap replaces the vault's deposit cap
func (ws *WebServer) handleUpdateDepositCap(w http.ResponseWriter, r *http.Request) {
	var req depositCapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	newCap, ok := sdkmath.NewIntFromString(req.NewCap)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid cap value")
		return
	}

	if err := ws.vault.UpdateDepositCap(req.Caller, newCap); err != nil {
		ws.writeErrorResponse(w, http.StatusForbidden, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"deposit_cap": newCap.String(),
		"timestamp":   time.Now().UTC(),
	})
}

type feeRateRequest struct {
	Caller     string `json:"caller"`
	NewRateBps int64  `json:"new_rate_bps"`
}

// handleChangeFee replaces the performance-fee rate for future harvests
func (ws *WebServer) handleChangeFee(w http.ResponseWriter, r *http.Request) {
	var req feeRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := ws.vault.ChangeFee(req.Caller, req.NewRateBps); err != nil {
		ws.writeErrorResponse(w, http.StatusForbidden, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"fee_rate_bps":     req.NewRateBps,
		"fee_rate_percent": utils.BpsToPercent(req.NewRateBps),
		"timestamp":        time.Now().UTC(),
	})
}

// handleWithdrawFees pays the accrued fee to the configured recipient
func (ws *WebServer) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	withdrawn, err := ws.vault.WithdrawFees(r.Context())
	if err != nil {
		withdrawn = sdkmath.ZeroInt()
	}
	ws.recordAndRespond(w, types.OperationReceipt{
		Timestamp:   time.Now().UTC(),
		Type:        types.OpWithdrawFees,
		Caller:      "admin",
		AssetAmount: withdrawn,
		ShareAmount: sdkmath.ZeroInt(),
	}, err)
}

// recordAndRespond persists an operation receipt and writes the HTTP response.
// Failed operations get a receipt too; persistence failures are logged but do
// not fail an operation that already committed.
func (ws *WebServer) recordAndRespond(w http.ResponseWriter, receipt types.OperationReceipt, opErr error) {
	if opErr != nil {
		receipt.Success = false
		receipt.ErrorMessage = opErr.Error()
		receipt.ShareAmount = sdkmath.ZeroInt()
	} else {
		receipt.Success = true
	}

	if _, err := state.SaveOperationReceipt(receipt); err != nil {
		webLogger.Error().Err(err).Str("type", string(receipt.Type)).
			Msg("Failed to persist operation receipt")
	}

	if opErr != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, opErr.Error())
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

func parseLimit(r *http.Request, fallback int) int {
	limit := fallback
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// adminAuthMiddleware gates admin routes behind a shared token
func (ws *WebServer) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ws.adminToken == "" || r.Header.Get("X-Admin-Token") != ws.adminToken {
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
