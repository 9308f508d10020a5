package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/serializer"
	"github.com/inkdesk/inkdesk/internal/modules/service"
)

type SigningHandler struct {
	svc service.SigningService
}

func NewSigningHandler(svc service.SigningService) *SigningHandler {
	return &SigningHandler{svc: svc}
}

type SendAgreementReq struct {
	ClientIDs []uuid.UUID `json:"client_ids" binding:"required"`
	// TTLHours overrides the configured link lifetime when positive.
	TTLHours int `json:"ttl_hours"`
}

// Send godoc
//
//	@Summary		Issue signing links for an agreement
//	@Description	Mints a fresh disposable link per client and rotates away any prior active one. The raw token appears only in this response and in the notifier event.
//	@Tags			signing
//	@Accept			json
//	@Produce		json
//	@Param			agreement_id	path	string				true	"Agreement ID"	format(uuid)
//	@Param			body			body	SendAgreementReq	true	"Recipients"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.IssueLinksOutput}
//	@Router			/agreements/{agreement_id}/send [post]
func (h *SigningHandler) Send(c *gin.Context) {
	req := SendAgreementReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	owner, ok := currentOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}
	agreementID, err := uuid.Parse(c.Param("agreement_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid agreement_id", err))
		return
	}

	out, err := h.svc.IssueLinks(c.Request.Context(), service.IssueLinksInput{
		OwnerID:     owner.ID,
		AgreementID: agreementID,
		ClientIDs:   req.ClientIDs,
		TTL:         time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out, Warnings: out.Warnings})
}

// ListLinks godoc
//
//	@Summary		List the signing links issued for an agreement
//	@Description	Returns every link ever issued, superseded rows included, so the owner can see who signed, who is pending and which invitations lapsed. Raw tokens are never reproduced here.
//	@Tags			signing
//	@Produce		json
//	@Param			agreement_id	path	string	true	"Agreement ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ListLinksOutput}
//	@Router			/agreements/{agreement_id}/links [get]
func (h *SigningHandler) ListLinks(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}
	agreementID, err := uuid.Parse(c.Param("agreement_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid agreement_id", err))
		return
	}

	out, err := h.svc.ListLinks(c.Request.Context(), owner.ID, agreementID)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// Resolve godoc
//
//	@Summary		Open a signing session from a link token
//	@Description	Public. Unknown or rotated tokens return 404, expired unsigned tokens 410, and already-signed tokens resolve read-only.
//	@Tags			signing
//	@Produce		json
//	@Param			token	path	string	true	"Signing link token"
//	@Success		200	{object}	serializer.Response{data=service.ResolveOutput}
//	@Router			/agreements/sign/{token} [get]
func (h *SigningHandler) Resolve(c *gin.Context) {
	out, err := h.svc.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type ClientSignReq struct {
	SignerName     string `json:"signer_name" binding:"required"`
	SignatureImage []byte `json:"signature_image" binding:"required"`
}

// Submit godoc
//
//	@Summary		Sign via a link token
//	@Description	Public. Records the client's signature. Resubmitting on an already-signed link replaces the stored signature in place while the edit window is open.
//	@Tags			signing
//	@Accept			json
//	@Produce		json
//	@Param			token	path	string			true	"Signing link token"
//	@Param			body	body	ClientSignReq	true	"Signature"
//	@Success		200	{object}	serializer.Response{data=service.SubmitSignatureOutput}
//	@Router			/agreements/sign/{token} [post]
func (h *SigningHandler) Submit(c *gin.Context) {
	req := ClientSignReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	out, err := h.svc.Submit(c.Request.Context(), service.SubmitSignatureInput{
		Token:          c.Param("token"),
		SignerName:     req.SignerName,
		SignatureImage: req.SignatureImage,
		CaptureIP:      c.ClientIP(),
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// Update godoc
//
//	@Summary		Revise a signature via a link token
//	@Description	Public. Replaces the existing signature on a signed link inside the edit window. Locked once the agreement completes or the window closes.
//	@Tags			signing
//	@Accept			json
//	@Produce		json
//	@Param			token	path	string			true	"Signing link token"
//	@Param			body	body	ClientSignReq	true	"Signature"
//	@Success		200	{object}	serializer.Response{data=service.SubmitSignatureOutput}
//	@Router			/agreements/sign/{token} [put]
func (h *SigningHandler) Update(c *gin.Context) {
	req := ClientSignReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	out, err := h.svc.Update(c.Request.Context(), service.SubmitSignatureInput{
		Token:          c.Param("token"),
		SignerName:     req.SignerName,
		SignatureImage: req.SignatureImage,
		CaptureIP:      c.ClientIP(),
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
