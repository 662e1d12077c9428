package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"missionledger/native/missions"
	"missionledger/native/points"
	"missionledger/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxTxPerWindow  = 60
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the engine operations over JSON-RPC 2.0. A single mutex
// serializes every engine invocation, matching the single-writer-per-call
// discipline the engines are written against.
type Server struct {
	registry *missions.Registry
	engine   *missions.Engine
	ledger   *points.Engine

	opMu sync.Mutex

	mu           sync.Mutex
	rateLimiters map[string]*rate.Limiter
	authToken    string
}

// NewServer wires the engines into an RPC server. The bearer token is read
// from MISSIONLEDGER_RPC_TOKEN; when unset, mutating methods are rejected.
func NewServer(registry *missions.Registry, engine *missions.Engine, ledger *points.Engine) *Server {
	token := strings.TrimSpace(os.Getenv("MISSIONLEDGER_RPC_TOKEN"))
	return &Server{
		registry:     registry,
		engine:       engine,
		ledger:       ledger,
		rateLimiters: make(map[string]*rate.Limiter),
		authToken:    token,
	}
}

// SetAuthToken overrides the bearer token. Primarily intended for tests.
func (s *Server) SetAuthToken(token string) {
	s.authToken = strings.TrimSpace(token)
}

// Router builds the HTTP mux: the JSON-RPC endpoint plus health and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on the given address.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeMissionsError maps a missions engine error onto the wire, preserving
// the numeric taxonomy in RPCError.Code.
func writeMissionsError(w http.ResponseWriter, id interface{}, err error) {
	if code, ok := missions.Code(err); ok {
		writeError(w, missionsHTTPStatus(code), id, code, err.Error(), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
}

func missionsHTTPStatus(code int) int {
	switch code {
	case missions.CodeUnauthorized:
		return http.StatusForbidden
	case missions.CodeMissionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// writePointsError maps a points ledger error onto the wire.
func writePointsError(w http.ResponseWriter, id interface{}, err error) {
	if code, ok := points.Code(err); ok {
		status := http.StatusBadRequest
		if code == points.CodeUnauthorized {
			status = http.StatusForbidden
		}
		writeError(w, status, id, code, err.Error(), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}

	if mutatingMethods[req.Method] {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		if limited := s.checkRateLimit(r); limited != nil {
			writeError(w, http.StatusTooManyRequests, req.ID, limited.Code, limited.Message, limited.Data)
			return
		}
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}

	started := time.Now()
	s.opMu.Lock()
	outcome := handler(w, &req)
	s.opMu.Unlock()
	if outcome.err != nil {
		code := outcome.code
		if code == 0 {
			code = codeServerError
		}
		metrics.Engine().ObserveFailure(req.Method, code, started)
		return
	}
	metrics.Engine().ObserveSuccess(req.Method, started)
}

// handlerOutcome feeds the metrics pipeline after a handler has already
// written its response.
type handlerOutcome struct {
	err  error
	code int
}

type methodHandler func(http.ResponseWriter, *RPCRequest) handlerOutcome

var mutatingMethods = map[string]bool{
	"missions_create":               true,
	"missions_addAllowedToken":      true,
	"missions_removeAllowedToken":   true,
	"missions_distributeRewards":    true,
	"missions_finalize":             true,
	"missions_setRewardDistributor": true,
	"points_award":                  true,
	"points_addIssuer":              true,
	"points_removeIssuer":           true,
	"points_setGlobalMultiplier":    true,
}

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"missions_create":               s.handleCreateMission,
		"missions_addAllowedToken":      s.handleAddAllowedToken,
		"missions_removeAllowedToken":   s.handleRemoveAllowedToken,
		"missions_isTokenAllowed":       s.handleIsTokenAllowed,
		"missions_distributeRewards":    s.handleDistributeRewards,
		"missions_finalize":             s.handleFinalizeMission,
		"missions_get":                  s.handleGetMission,
		"missions_count":                s.handleMissionCount,
		"missions_isActive":             s.handleIsMissionActive,
		"missions_getContractOwner":     s.handleGetContractOwner,
		"missions_getRewardDistributor": s.handleGetRewardDistributor,
		"missions_setRewardDistributor": s.handleSetRewardDistributor,
		"points_award":                  s.handleAwardPoints,
		"points_addIssuer":              s.handleAddIssuer,
		"points_removeIssuer":           s.handleRemoveIssuer,
		"points_isIssuer":               s.handleIsIssuer,
		"points_setGlobalMultiplier":    s.handleSetGlobalMultiplier,
		"points_getGlobalMultiplier":    s.handleGetGlobalMultiplier,
		"points_totalIssued":            s.handleTotalPointsIssued,
		"points_userPoints":             s.handleUserPoints,
		"points_userAchievements":       s.handleUserAchievements,
		"points_getAchievement":         s.handleGetAchievement,
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) checkRateLimit(r *http.Request) *RPCError {
	source, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		source = r.RemoteAddr
	}
	s.mu.Lock()
	limiter, ok := s.rateLimiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(rateLimitWindow/maxTxPerWindow), maxTxPerWindow)
		s.rateLimiters[source] = limiter
	}
	s.mu.Unlock()
	if !limiter.Allow() {
		return &RPCError{Code: codeRateLimited, Message: "rate limit exceeded"}
	}
	return nil
}

func unmarshalSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}
