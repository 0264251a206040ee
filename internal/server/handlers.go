package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/risk"
	"github.com/ballastfi/ballast/internal/vault"
)

// Handlers provides the vault API endpoints.
type Handlers struct {
	vault   *vault.Service
	journal *events.Journal
	advisor *risk.Advisor
	log     zerolog.Logger
}

// NewHandlers creates the vault API handlers.
func NewHandlers(v *vault.Service, journal *events.Journal, advisor *risk.Advisor, log zerolog.Logger) *Handlers {
	return &Handlers{
		vault:   v,
		journal: journal,
		advisor: advisor,
		log:     log.With().Str("handler", "vault").Logger(),
	}
}

// caller extracts the caller identity from the X-Caller header.
func caller(r *http.Request) domain.Address {
	return domain.Address(r.Header.Get("X-Caller"))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the engine's failure taxonomy to HTTP status codes.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrPrecondition),
		errors.Is(err, domain.ErrInsufficientReserve),
		errors.Is(err, domain.ErrOverflow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExternalCall):
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetConfig handles GET /api/vault/config.
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.vault.GetConfig()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// HandleGetBalances handles GET /api/vault/balances.
func (h *Handlers) HandleGetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.vault.GetBalances(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	total, err := h.vault.TotalShares()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"balances":     balances,
		"total_shares": total,
	})
}

// HandleGetStatus handles GET /api/vault/status: guard flags, autonomy
// schedule and gas bank in one response.
func (h *Handlers) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	guard, err := h.vault.GetGuardStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}
	sched, err := h.vault.GetAutonomousStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}
	gas, err := h.vault.GetGasBankBalance()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"guard":            guard,
		"autonomy":         sched,
		"gas_bank_balance": gas,
	})
}

// HandleGetShares handles GET /api/vault/shares/{holder}.
func (h *Handlers) HandleGetShares(w http.ResponseWriter, r *http.Request) {
	holder := domain.Address(chi.URLParam(r, "holder"))
	if holder == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "holder is required"})
		return
	}

	held, err := h.vault.GetUserShares(holder)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"holder": holder, "shares": held})
}

// HandleDeposit handles POST /api/vault/deposit.
func (h *Handlers) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	minted, err := h.vault.Deposit(r.Context(), caller(r), req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"shares": minted})
}

// HandleRedeem handles POST /api/vault/redeem.
func (h *Handlers) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shares      uint64 `json:"shares"`
		ToBaseAsset bool   `json:"to_base_asset"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	payout, err := h.vault.Redeem(r.Context(), caller(r), req.Shares, req.ToBaseAsset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"amounts": payout})
}

// HandleTriggerRebalance handles POST /api/vault/rebalance.
func (h *Handlers) HandleTriggerRebalance(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.TriggerRebalance(r.Context(), caller(r)); err != nil {
		h.writeError(w, err)
		return
	}

	sched, err := h.vault.GetAutonomousStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"last_status": sched.LastStatus})
}

// HandleSetGuard handles POST /api/vault/guard.
func (h *Handlers) HandleSetGuard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Armed bool `json:"armed"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.vault.SetGuard(caller(r), req.Armed); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"armed": req.Armed})
}

// HandlePause handles POST /api/vault/pause.
func (h *Handlers) HandlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.Pause(caller(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"paused": true})
}

// HandleUnpause handles POST /api/vault/unpause.
func (h *Handlers) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.Unpause(caller(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"paused": false})
}

// HandleTopUpGasBank handles POST /api/vault/gas/topup.
func (h *Handlers) HandleTopUpGasBank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.vault.TopUpGasBank(caller(r), req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

// HandleStartAutonomy handles POST /api/vault/autonomy/start.
func (h *Handlers) HandleStartAutonomy(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.StartAutonomy(r.Context(), caller(r)); err != nil {
		h.writeError(w, err)
		return
	}

	sched, err := h.vault.GetAutonomousStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sched)
}

// HandleStopAutonomy handles POST /api/vault/autonomy/stop.
func (h *Handlers) HandleStopAutonomy(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.StopAutonomy(caller(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"mode": "inactive"})
}

// HandleUpdateTargets handles PUT /api/vault/targets.
func (h *Handlers) HandleUpdateTargets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Targets [domain.NumAssets]uint64 `json:"targets"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.vault.UpdateTargets(caller(r), req.Targets); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"targets": req.Targets})
}

// HandleUpdateMaxDrift handles PUT /api/vault/drift.
func (h *Handlers) HandleUpdateMaxDrift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxDriftBps uint64 `json:"max_drift_bps"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.vault.UpdateMaxDrift(caller(r), req.MaxDriftBps); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"max_drift_bps": req.MaxDriftBps})
}

// HandleUpdateEpoch handles PUT /api/vault/epoch.
func (h *Handlers) HandleUpdateEpoch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EpochSeconds uint64 `json:"epoch_seconds"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.vault.UpdateEpoch(caller(r), req.EpochSeconds); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"epoch_seconds": req.EpochSeconds})
}

// HandleTransferOwnership handles POST /api/vault/ownership.
func (h *Handlers) HandleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewOwner domain.Address `json:"new_owner"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.vault.TransferOwnership(caller(r), req.NewOwner); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"owner": req.NewOwner})
}

// HandleEmergencyWithdraw handles POST /api/vault/emergency-withdraw.
func (h *Handlers) HandleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To domain.Address `json:"to"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	swept, err := h.vault.EmergencyWithdraw(r.Context(), caller(r), req.To)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"amounts": swept})
}

// HandleRecentEvents handles GET /api/events/recent.
func (h *Handlers) HandleRecentEvents(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journal.Recent(100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// HandleRiskAdvisories handles GET /api/risk/advisories.
func (h *Handlers) HandleRiskAdvisories(w http.ResponseWriter, r *http.Request) {
	advisories, err := h.advisor.Assess()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, advisories)
}
