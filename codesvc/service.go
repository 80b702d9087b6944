// Package codesvc is the verification dispatch/confirm endpoint
// service: the external collaborator the provider-mode code channel
// talks to. It owns the code store, sends the emails, and speaks the
// wire error vocabulary (invalid-argument, not-found,
// deadline-exceeded, resource-exhausted, internal).
package codesvc

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	oa "github.com/ayursutra/ayurauth"
)

// Service serves the verification endpoints.
type Service struct {
	logger *zap.Logger
	store  oa.CodeStore
	sender oa.CodeSender

	// Per-email limiters so one address cannot be flooded with codes.
	// Entries idle for longer than a code lifetime are evicted once the
	// map grows past limiterCap, so the map does not grow with every
	// address ever seen.
	mu       sync.Mutex
	limiters map[string]*emailLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type emailLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterCap is the map size above which idle limiters are pruned.
const limiterCap = 1024

// New wires a service. The default rate limit allows three codes per
// address per code lifetime.
func New(logger *zap.Logger, store oa.CodeStore, sender oa.CodeSender) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:   logger,
		store:    store,
		sender:   sender,
		limiters: make(map[string]*emailLimiter),
		limit:    rate.Every(oa.CodeTTL / 3),
		burst:    3,
		now:      time.Now,
	}
}

// Router returns the HTTP surface:
//
//	POST /verification/send    {email}
//	POST /verification/confirm {email, code}
func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/verification/send", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/verification/confirm", s.handleConfirm).Methods(http.MethodPost)
	return r
}

func (s *Service) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, oa.WireCodeInvalidArgument, "Invalid request body")
		return
	}
	email := oa.NormalizeEmail(req.Email)
	if email == "" {
		s.writeError(w, http.StatusBadRequest, oa.WireCodeInvalidArgument, "Email is required")
		return
	}
	if !s.allow(email) {
		s.logger.Warn("verification send rate limited", zap.String("email", email))
		s.writeError(w, http.StatusTooManyRequests, oa.WireCodeResourceExhausted, "Too many codes requested. Please wait before retrying.")
		return
	}

	rec, err := s.store.Issue(r.Context(), email)
	if err != nil {
		s.logger.Error("issuing verification code", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, oa.WireCodeInternal, "Failed to issue verification code")
		return
	}
	if err := s.sender.SendVerificationCode(r.Context(), email, rec.Code, rec.ExpiresAt); err != nil {
		// Dispatch failure is retryable and must stay distinct from
		// invalid input.
		s.logger.Error("sending verification email", zap.Error(err), zap.String("email", email))
		s.writeError(w, http.StatusInternalServerError, oa.WireCodeInternal, "Failed to send verification email")
		return
	}

	s.logger.Info("verification code sent", zap.String("email", email))
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Service) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, oa.WireCodeInvalidArgument, "Invalid request body")
		return
	}
	email := oa.NormalizeEmail(req.Email)
	if email == "" || req.Code == "" {
		s.writeError(w, http.StatusBadRequest, oa.WireCodeInvalidArgument, "Email and code are required")
		return
	}

	if err := s.store.Validate(r.Context(), email, req.Code); err != nil {
		var ae *oa.AuthError
		if errors.As(err, &ae) {
			status, wire := confirmFailure(ae.Code)
			s.writeError(w, status, wire, ae.Description)
			return
		}
		s.logger.Error("validating verification code", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, oa.WireCodeInternal, "Failed to validate verification code")
		return
	}

	s.logger.Info("verification code confirmed", zap.String("email", email))
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// confirmFailure maps store error categories onto the wire vocabulary.
func confirmFailure(code string) (int, string) {
	switch code {
	case oa.ErrCodeNoPendingCode:
		return http.StatusNotFound, oa.WireCodeNotFound
	case oa.ErrCodeExpiredCode:
		return http.StatusBadRequest, oa.WireCodeDeadlineExceeded
	default:
		return http.StatusBadRequest, oa.WireCodeInvalidArgument
	}
}

func (s *Service) allow(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.limiters[email]
	if !ok {
		if len(s.limiters) >= limiterCap {
			s.pruneIdleLocked()
		}
		entry = &emailLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[email] = entry
	}
	entry.lastSeen = s.now()
	return entry.limiter.Allow()
}

// pruneIdleLocked drops limiters that have been idle for a full code
// lifetime. An idle limiter has refilled to full burst, so dropping it
// and minting a fresh one later is indistinguishable to the caller.
func (s *Service) pruneIdleLocked() {
	cutoff := s.now().Add(-oa.CodeTTL)
	for email, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, email)
		}
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, wireCode, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
		"code":  wireCode,
	})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}
