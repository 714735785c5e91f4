package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"docseal/internal/domain"
	"docseal/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	headerAdminKey = "X-Admin-Key"
	headerActor    = "X-Actor"
	defaultActor   = "admin-api"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type issueRequest struct {
	TypeCode    string     `json:"typeCode"`
	OrgCode     string     `json:"orgCode"`
	OrgUnitID   string     `json:"orgUnitId"`
	Scope       string     `json:"scope"`
	Subject     string     `json:"subject"`
	SubjectType string     `json:"subjectType"`
	IssuedAt    *time.Time `json:"issuedAt"`
}

type issueResponse struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	IssuedAt time.Time `json:"issuedAt"`
}

type signRequest struct {
	DocumentID string `json:"documentId"`
	SignerName string `json:"signerName"`
	SignerRole string `json:"signerRole"`
}

type signResponse struct {
	Signature       string    `json:"signature"`
	VerificationURL string    `json:"verificationUrl"`
	SignedAt        time.Time `json:"signedAt"`
}

type documentResponse struct {
	ID                string     `json:"id"`
	Number            string     `json:"number"`
	SubjectType       string     `json:"subjectType"`
	Scope             string     `json:"scope"`
	OrgUnitID         *string    `json:"orgUnitId,omitempty"`
	TypeCode          string     `json:"typeCode"`
	OrgCode           string     `json:"orgCode"`
	Subject           string     `json:"subject"`
	IssuedAt          time.Time  `json:"issuedAt"`
	WorkflowStatus    string     `json:"workflowStatus"`
	Signed            bool       `json:"signed"`
	SignedBy          *string    `json:"signedBy,omitempty"`
	SignerRole        *string    `json:"signerRole,omitempty"`
	SignedAt          *time.Time `json:"signedAt,omitempty"`
	VerificationCount int64      `json:"verificationCount"`
}

type workflowRequest struct {
	Status string `json:"status"`
}

type counterResponse struct {
	Scope     string `json:"scope"`
	OrgUnitID string `json:"orgUnitId,omitempty"`
	Year      string `json:"year"`
	Next      int64  `json:"next"`
}

type counterResetRequest struct {
	Scope     string `json:"scope"`
	OrgUnitID string `json:"orgUnitId"`
	Year      string `json:"year"`
	Reason    string `json:"reason"`
}

type counterResetResponse struct {
	ResetID  string `json:"resetId"`
	Previous int64  `json:"previous"`
}

func (s *Server) handleHealth(c *gin.Context) {
	out := gin.H{"status": "ok"}
	if s.store != nil && s.store.DB != nil {
		out["driver"] = s.store.Driver
		sqlDB, err := s.store.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "driver": s.store.Driver})
			return
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleIssue(c *gin.Context) {
	if s.issueUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	ucReq := usecase.IssueRequest{
		TypeCode:    req.TypeCode,
		OrgCode:     req.OrgCode,
		OrgUnitID:   req.OrgUnitID,
		Subject:     req.Subject,
		SubjectType: domain.SubjectType(strings.ToLower(strings.TrimSpace(req.SubjectType))),
	}
	if strings.TrimSpace(req.Scope) != "" {
		scope, err := domain.ParseScope(req.Scope)
		if err != nil {
			writeError(c, err)
			return
		}
		ucReq.Scope = scope
	}
	if req.IssuedAt != nil {
		ucReq.IssuedAt = *req.IssuedAt
	}
	doc, err := s.issueUC.Execute(c.Request.Context(), ucReq)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issueResponse{ID: doc.ID, Number: doc.Number, IssuedAt: doc.IssuedAt})
}

func (s *Server) handleSign(c *gin.Context) {
	if s.signUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	res, err := s.signUC.Execute(c.Request.Context(), usecase.SignRequest{
		DocumentID: req.DocumentID,
		SignerName: req.SignerName,
		SignerRole: req.SignerRole,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signResponse{
		Signature:       res.Signature,
		VerificationURL: res.VerificationURL,
		SignedAt:        res.SignedAt,
	})
}

// handleVerify answers 200 for every well-formed request, valid or not;
// only malformed input is a client error.
func (s *Server) handleVerify(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, routeVerify) {
		return
	}
	data := strings.TrimSpace(c.Query("data"))
	signature := strings.TrimSpace(c.Query("signature"))
	if data == "" || signature == "" {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_PARAMETERS", "data and signature are required")
		return
	}
	result, err := s.verifyUC.Execute(c.Request.Context(), data, signature)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	if s.documents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	doc, err := s.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildDocumentResponse(doc))
}

func (s *Server) handleUpdateWorkflow(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.documents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if err := s.documents.UpdateWorkflow(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePeekCounter(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.counters == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	key, err := parseCounterKey(c.Query("scope"), c.Query("orgUnitId"), c.Query("year"))
	if err != nil {
		writeError(c, err)
		return
	}
	next, err := s.counters.PeekNext(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counterResponse{
		Scope:     string(key.Scope),
		OrgUnitID: key.OrgUnit(),
		Year:      key.Year,
		Next:      next,
	})
}

func (s *Server) handleResetCounter(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.counters == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req counterResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	key, err := parseCounterKey(req.Scope, req.OrgUnitID, req.Year)
	if err != nil {
		writeError(c, err)
		return
	}
	actor := strings.TrimSpace(c.GetHeader(headerActor))
	if actor == "" {
		actor = defaultActor
	}
	reset, err := s.counters.Reset(c.Request.Context(), key, actor, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counterResetResponse{ResetID: reset.ID, Previous: reset.PreviousValue})
}

func parseCounterKey(rawScope, orgUnitID, year string) (domain.CounterKey, error) {
	scope, err := domain.ParseScope(rawScope)
	if err != nil {
		return domain.CounterKey{}, err
	}
	key := domain.NewCounterKey(scope, orgUnitID, year)
	if err := key.Validate(); err != nil {
		return domain.CounterKey{}, err
	}
	return key, nil
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader(headerAdminKey)
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func buildDocumentResponse(doc domain.DocumentRecord) documentResponse {
	return documentResponse{
		ID:                doc.ID,
		Number:            doc.Number,
		SubjectType:       string(doc.SubjectType),
		Scope:             string(doc.Scope),
		OrgUnitID:         doc.OrgUnitID,
		TypeCode:          doc.TypeCode,
		OrgCode:           doc.OrgCode,
		Subject:           doc.Subject,
		IssuedAt:          doc.IssuedAt,
		WorkflowStatus:    string(doc.WorkflowStatus),
		Signed:            doc.Signed(),
		SignedBy:          doc.SignedBy,
		SignerRole:        doc.SignerRole,
		SignedAt:          doc.SignedAt,
		VerificationCount: doc.VerificationCount,
	}
}

func writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL", "internal error"
	switch {
	case errors.Is(err, domain.ErrMissingOrgUnit):
		status, code = http.StatusBadRequest, "MISSING_ORG_UNIT"
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrMalformedPayload):
		status, code = http.StatusBadRequest, "MALFORMED_PAYLOAD"
	case errors.Is(err, domain.ErrNotApproved):
		status, code = http.StatusBadRequest, "NOT_APPROVED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrSigningForbidden):
		status, code = http.StatusForbidden, "SIGNING_FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadySigned):
		status, code = http.StatusConflict, "ALREADY_SIGNED"
	case errors.Is(err, domain.ErrNumberCollision):
		status, code = http.StatusConflict, "NUMBER_COLLISION"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		status, code, message = http.StatusServiceUnavailable, "CONCURRENCY_CONFLICT", "please retry"
	}
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		_ = c.Error(err)
	} else {
		message = err.Error()
	}
	if code == "MALFORMED_PAYLOAD" {
		message = "malformed verification payload"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
