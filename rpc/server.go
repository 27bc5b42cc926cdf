package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"launchpad/native/launch"
	"launchpad/observability"
)

// Server exposes the launchpad engine operations over HTTP.
type Server struct {
	engine  *launch.Engine
	logger  *slog.Logger
	limiter *RateLimiter
	metrics *observability.LaunchMetrics
}

// NewServer wires the engine behind the HTTP API.
func NewServer(engine *launch.Engine, logger *slog.Logger, limit RateLimit) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		logger:  logger,
		limiter: NewRateLimiter(limit),
		metrics: observability.Metrics(),
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/launch", func(r chi.Router) {
		r.Post("/create-proposal", s.handleCreateProposal)
		r.Post("/contribute", s.handleContribute)
		r.Post("/reject-proposal", s.handleRejectProposal)
		r.Post("/launch-pool", s.handleLaunchPool)
		r.Post("/initialize-milestone", s.handleInitializeMilestone)
		r.Post("/snapshot-backer", s.handleSnapshotBacker)
		r.Post("/end-milestone", s.handleEndMilestone)
		r.Post("/claim-airdrop", s.handleClaimAirdrop)
		r.Post("/refund", s.handleRefund)
		r.Post("/decrement-backer-count", s.handleDecrementBackerCount)
		r.Post("/claim-position-fee", s.handleClaimPositionFee)
		r.Post("/emergency-unlock", s.handleEmergencyUnlock)
		r.Post("/set-config", s.handleSetConfig)
		r.Get("/proposal/{id}", s.handleGetProposal)
		r.Get("/proposal/{id}/backer/{address}", s.handleGetBacker)
	})
	return r
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	if !ethcommon.IsHexAddress(value) {
		return addr, errors.New("invalid address")
	}
	copy(addr[:], ethcommon.HexToAddress(value).Bytes())
	return addr, nil
}

func parseProposalID(value string) (launch.ProposalID, error) {
	var id launch.ProposalID
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != len(id) {
		return id, errors.New("invalid proposal id")
	}
	copy(id[:], raw)
	return id, nil
}

func (s *Server) decode(w http.ResponseWriter, req *http.Request, out interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, req *http.Request, status int, err error) {
	s.logger.Warn("operation failed",
		"path", req.URL.Path,
		"status", status,
		"error", err.Error(),
		"requestId", RequestIDFromContext(req.Context()),
	)
	s.writeJSON(w, status, errorBody{Error: err.Error(), RequestID: RequestIDFromContext(req.Context())})
}

// statusFor maps engine failures onto HTTP statuses while preserving the
// stable error string clients branch on.
func statusFor(err error) int {
	switch {
	case errors.Is(err, launch.ErrProposalNotFound), errors.Is(err, launch.ErrBackerNotFound):
		return http.StatusNotFound
	case errors.Is(err, launch.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, launch.ErrMetadataTooLong), errors.Is(err, launch.ErrParamsNotSet):
		return http.StatusBadRequest
	case errors.Is(err, launch.ErrTargetNotMet),
		errors.Is(err, launch.ErrBackingGoalReached),
		errors.Is(err, launch.ErrAlreadyBacked),
		errors.Is(err, launch.ErrBackingEnded),
		errors.Is(err, launch.ErrCannotBackOwn),
		errors.Is(err, launch.ErrProposalRejected),
		errors.Is(err, launch.ErrProposalNotRejected),
		errors.Is(err, launch.ErrAlreadyRejected),
		errors.Is(err, launch.ErrPoolAlreadyLaunched),
		errors.Is(err, launch.ErrPoolNotLaunched),
		errors.Is(err, launch.ErrProposalUnresolved),
		errors.Is(err, launch.ErrMilestoneActive),
		errors.Is(err, launch.ErrNoMilestoneActive),
		errors.Is(err, launch.ErrNotAllBackersSettled),
		errors.Is(err, launch.ErrAmountAlreadyUpdated),
		errors.Is(err, launch.ErrMaxBackedProposals),
		errors.Is(err, launch.ErrNothingToClaim),
		errors.Is(err, launch.ErrPoolStillExists),
		errors.Is(err, launch.ErrAlreadyUnlocked),
		errors.Is(err, launch.ErrUnlockTooSoon),
		errors.Is(err, launch.ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) finish(w http.ResponseWriter, req *http.Request, operation string, started time.Time, payload interface{}, err error) {
	s.metrics.ObserveOperation(operation, err, started)
	if err != nil {
		s.writeError(w, req, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, payload)
}

type createProposalRequest struct {
	Maker       string `json:"maker"`
	TokenMint   string `json:"tokenMint"`
	TokenName   string `json:"tokenName"`
	TokenSymbol string `json:"tokenSymbol"`
	TokenURI    string `json:"tokenUri"`
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	var body createProposalRequest
	if !s.decode(w, req, &body) {
		return
	}
	maker, err := parseAddress(body.Maker)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	mint, err := parseAddress(body.TokenMint)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	proposal, err := s.engine.CreateProposal(maker, mint, body.TokenName, body.TokenSymbol, body.TokenURI)
	s.finish(w, req, "create_proposal", started, proposal, err)
}

type proposalActionRequest struct {
	Caller   string `json:"caller"`
	Proposal string `json:"proposal"`
}

func (s *Server) parseAction(w http.ResponseWriter, req *http.Request) (caller [20]byte, id launch.ProposalID, ok bool) {
	var body proposalActionRequest
	if !s.decode(w, req, &body) {
		return caller, id, false
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return caller, id, false
	}
	id, err = parseProposalID(body.Proposal)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return caller, id, false
	}
	return caller, id, true
}

func (s *Server) handleContribute(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	record, err := s.engine.Contribute(caller, id)
	s.finish(w, req, "contribute", started, record, err)
}

func (s *Server) handleRejectProposal(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	err := s.engine.RejectProposal(caller, id)
	s.finish(w, req, "reject_proposal", started, map[string]bool{"rejected": err == nil}, err)
}

func (s *Server) handleLaunchPool(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	proposal, err := s.engine.LaunchPool(caller, id)
	s.finish(w, req, "launch_pool", started, proposal, err)
}

func (s *Server) handleInitializeMilestone(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	proposal, err := s.engine.InitializeMilestone(caller, id)
	s.finish(w, req, "initialize_milestone", started, proposal, err)
}

type snapshotRequest struct {
	Caller   string `json:"caller"`
	Proposal string `json:"proposal"`
	Backer   string `json:"backer"`
	Holdings uint64 `json:"holdings"`
}

func (s *Server) handleSnapshotBacker(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	var body snapshotRequest
	if !s.decode(w, req, &body) {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	backer, err := parseAddress(body.Backer)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	id, err := parseProposalID(body.Proposal)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	record, err := s.engine.SnapshotBacker(caller, id, backer, body.Holdings)
	s.finish(w, req, "snapshot_backer", started, record, err)
}

func (s *Server) handleEndMilestone(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	burned, err := s.engine.EndMilestone(caller, id)
	s.finish(w, req, "end_milestone", started, map[string]uint64{"burned": burned}, err)
}

func (s *Server) handleClaimAirdrop(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	amount, err := s.engine.ClaimAirdrop(caller, id)
	s.finish(w, req, "claim_airdrop", started, map[string]uint64{"amount": amount}, err)
}

func (s *Server) handleRefund(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	breakdown, err := s.engine.Refund(caller, id)
	s.finish(w, req, "refund", started, breakdown, err)
}

func (s *Server) handleDecrementBackerCount(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	quota, err := s.engine.DecrementBackerCount(caller, id)
	s.finish(w, req, "decrement_backer_count", started, quota, err)
}

func (s *Server) handleClaimPositionFee(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	settlement, err := s.engine.ClaimPositionFee(caller, id)
	s.finish(w, req, "claim_position_fee", started, settlement, err)
}

func (s *Server) handleEmergencyUnlock(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	caller, id, ok := s.parseAction(w, req)
	if !ok {
		return
	}
	proposal, err := s.engine.EmergencyUnlock(caller, id)
	s.finish(w, req, "emergency_unlock", started, proposal, err)
}

type setConfigRequest struct {
	Caller string        `json:"caller"`
	Params launch.Params `json:"params"`
}

func (s *Server) handleSetConfig(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	var body setConfigRequest
	if !s.decode(w, req, &body) {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	err = s.engine.SetParams(caller, body.Params)
	s.finish(w, req, "set_config", started, map[string]bool{"updated": err == nil}, err)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	id, err := parseProposalID(chi.URLParam(req, "id"))
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	proposal, err := s.engine.Proposal(id)
	s.finish(w, req, "get_proposal", started, proposal, err)
}

func (s *Server) handleGetBacker(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	id, err := parseProposalID(chi.URLParam(req, "id"))
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	backer, err := parseAddress(chi.URLParam(req, "address"))
	if err != nil {
		s.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	record, err := s.engine.Backer(id, backer)
	s.finish(w, req, "get_backer", started, record, err)
}
