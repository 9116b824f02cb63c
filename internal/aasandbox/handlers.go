package aasandbox

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zmrishh/moneyai/internal/aa"
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "ping") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "connect") {
		return
	}

	session := uuid.NewString()
	if err := s.store.CreateSession(session); err != nil {
		s.log.Error("create session", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create session")
		return
	}

	w.Header().Set(SessionHeader, session)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": session})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "disconnect") {
		return
	}

	session := r.Header.Get(SessionHeader)
	if err := s.store.DeleteSession(session); err != nil {
		s.log.Error("delete session", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not end session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

type loginRequest struct {
	Username        string `json:"username"`
	MobileNumber    string `json:"mobile_number"`
	ConsentHandleID string `json:"consent_handle_id"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "login") {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.MobileNumber == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "mobile_number is required")
		return
	}
	if req.ConsentHandleID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "consent_handle_id is required")
		return
	}

	otpReference := uuid.NewString()
	if err := s.store.CreateLogin(otpReference, req.MobileNumber, req.ConsentHandleID); err != nil {
		s.log.Error("create login", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not start login")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"otp_reference": otpReference})
}

type verifyRequest struct {
	OTP          string `json:"otp"`
	OTPReference string `json:"otp_reference"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "verify") {
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.OTP != OTP {
		writeError(w, http.StatusBadRequest, "invalid_otp", "incorrect OTP")
		return
	}

	mobile, ok, err := s.store.VerifyLogin(req.OTPReference)
	if err != nil {
		s.log.Error("verify login", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not verify login")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown OTP reference")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"user_id": "user-" + mobile})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "logout") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleListFIPs(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "fips") {
		return
	}

	fips, err := s.store.ListFIPs()
	if err != nil {
		s.log.Error("list fips", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list providers")
		return
	}
	writeJSON(w, http.StatusOK, fips)
}

func (s *Server) handleFIPDetails(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "fip_details") {
		return
	}

	fipID := mux.Vars(r)["fipID"]
	details, found, err := s.store.GetFIPDetails(fipID)
	if err != nil {
		s.log.Error("fip details", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load provider")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "unknown FIP: "+fipID)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type discoverRequest struct {
	Identifiers []aa.Identifier `json:"identifiers"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "discover") {
		return
	}

	fipID := mux.Vars(r)["fipID"]
	_, found, err := s.store.GetFIPDetails(fipID)
	if err != nil {
		s.log.Error("fip lookup", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load provider")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "unknown FIP: "+fipID)
		return
	}

	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	mobile := ""
	for _, ident := range req.Identifiers {
		if strings.EqualFold(ident.Type, "MOBILE") {
			mobile = ident.Value
			break
		}
	}
	if mobile == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "a MOBILE identifier is required for discovery")
		return
	}

	accounts, err := s.store.DiscoverAccounts(fipID, mobile)
	if err != nil {
		s.log.Error("discover accounts", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "discovery failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

type linkRequest struct {
	FIPID    string                 `json:"fip_id"`
	Accounts []aa.DiscoveredAccount `json:"accounts"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "link") {
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.Accounts) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "no accounts to link")
		return
	}

	refs := make([]string, 0, len(req.Accounts))
	for _, a := range req.Accounts {
		refs = append(refs, a.AccountReferenceNumber)
	}

	linkReference := uuid.NewString()
	if err := s.store.CreateLink(linkReference, req.FIPID, refs); err != nil {
		s.log.Error("create link", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not start linking")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"link_reference": linkReference})
}

type confirmLinkRequest struct {
	OTP           string `json:"otp"`
	LinkReference string `json:"link_reference"`
}

func (s *Server) handleConfirmLink(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "confirm_link") {
		return
	}

	var req confirmLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.OTP != OTP {
		writeError(w, http.StatusBadRequest, "invalid_otp", "incorrect OTP")
		return
	}

	n, found, err := s.store.ConfirmLink(req.LinkReference)
	if err != nil {
		s.log.Error("confirm link", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not confirm linking")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "unknown link reference")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"linked": n})
}

func (s *Server) handleLinkedAccounts(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "linked_accounts") {
		return
	}

	accounts, err := s.store.LinkedAccounts()
	if err != nil {
		s.log.Error("linked accounts", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list linked accounts")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleConsentDetails(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "consent_details") {
		return
	}

	handle := mux.Vars(r)["handle"]
	details, _, err := s.store.GetOrCreateConsent(handle)
	if err != nil {
		s.log.Error("consent details", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load consent")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type approveRequest struct {
	Accounts []aa.LinkedAccount `json:"accounts"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "approve") {
		return
	}

	handle := mux.Vars(r)["handle"]

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.Accounts) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "no accounts selected for consent")
		return
	}

	consentID := "CST-" + strings.Split(uuid.NewString(), "-")[0]
	decided, err := s.store.DecideConsent(handle, true, consentID)
	if err != nil {
		s.log.Error("approve consent", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not approve consent")
		return
	}
	if !decided {
		writeError(w, http.StatusConflict, "conflict", "consent is not pending")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"consent_id": consentID})
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, "deny") {
		return
	}

	handle := mux.Vars(r)["handle"]
	decided, err := s.store.DecideConsent(handle, false, "")
	if err != nil {
		s.log.Error("deny consent", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not deny consent")
		return
	}
	if !decided {
		writeError(w, http.StatusConflict, "conflict", "consent is not pending")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "REJECTED"})
}
