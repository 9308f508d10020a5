package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/serializer"
	"github.com/inkdesk/inkdesk/internal/modules/service"
)

type AgreementHandler struct {
	svc  service.AgreementService
	docs service.DocumentService
}

func NewAgreementHandler(svc service.AgreementService, docs service.DocumentService) *AgreementHandler {
	return &AgreementHandler{svc: svc, docs: docs}
}

// currentOwner pulls the principal set by the auth middleware.
func currentOwner(c *gin.Context) (*model.Owner, bool) {
	owner, ok := c.MustGet("owner").(*model.Owner)
	return owner, ok
}

// respondServiceErr maps the domain error taxonomy onto HTTP statuses.
func respondServiceErr(c *gin.Context, err error) {
	if ve, ok := service.AsValidationError(err); ok {
		res := serializer.ParamErr(ve.Error(), nil)
		res.Data = ve.Fields
		c.JSON(http.StatusBadRequest, res)
		return
	}
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, err.Error(), nil))
	case errors.Is(err, service.ErrBudgetExceeded):
		c.JSON(http.StatusUnprocessableEntity, serializer.Err(http.StatusUnprocessableEntity, err.Error(), nil))
	case errors.Is(err, service.ErrAgreementImmutable):
		c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, err.Error(), nil))
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusGone, serializer.Err(http.StatusGone, err.Error(), nil))
	case errors.Is(err, service.ErrSignatureLocked):
		c.JSON(http.StatusLocked, serializer.Err(http.StatusLocked, err.Error(), nil))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}

type CreateAgreementReq struct {
	ProjectID uuid.UUID                   `json:"project_id" binding:"required"`
	Draft     service.AgreementDraftInput `json:"draft" binding:"required"`
}

// CreateAgreement godoc
//
//	@Summary		Create an agreement
//	@Description	Create the agreement for a project. A project holds at most one agreement.
//	@Tags			agreement
//	@Accept			json
//	@Produce		json
//	@Param			body	body	CreateAgreementReq	true	"Agreement draft"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Agreement}
//	@Router			/agreements [post]
func (h *AgreementHandler) CreateAgreement(c *gin.Context) {
	req := CreateAgreementReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	owner, ok := currentOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}

	a, err := h.svc.Create(c.Request.Context(), service.CreateAgreementInput{
		OwnerID:   owner.ID,
		ProjectID: req.ProjectID,
		Draft:     req.Draft,
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: a})
}

// GetAgreement godoc
//
//	@Summary	Get an agreement with its full aggregate
//	@Tags		agreement
//	@Produce	json
//	@Param		agreement_id	path	string	true	"Agreement ID"	format(uuid)
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=model.Agreement}
//	@Router		/agreements/{agreement_id} [get]
func (h *AgreementHandler) GetAgreement(c *gin.Context) {
	owner, agreementID, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), owner.ID, agreementID)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: a})
}

// GetAgreementByProject godoc
//
//	@Summary	Get the agreement attached to a project
//	@Tags		agreement
//	@Produce	json
//	@Param		project_id	path	string	true	"Project ID"	format(uuid)
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=model.Agreement}
//	@Router		/agreements/project/{project_id} [get]
func (h *AgreementHandler) GetAgreementByProject(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid project_id", err))
		return
	}
	a, err := h.svc.GetByProject(c.Request.Context(), owner.ID, projectID)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: a})
}

type UpdateAgreementReq struct {
	Draft service.AgreementDraftInput `json:"draft" binding:"required"`
}

// UpdateAgreement godoc
//
//	@Summary		Update an agreement draft
//	@Description	Replaces the editable aggregate wholesale. Rejected once the agreement is completed.
//	@Tags			agreement
//	@Accept			json
//	@Produce		json
//	@Param			agreement_id	path	string				true	"Agreement ID"	format(uuid)
//	@Param			body			body	UpdateAgreementReq	true	"Agreement draft"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Agreement}
//	@Router			/agreements/{agreement_id} [put]
func (h *AgreementHandler) UpdateAgreement(c *gin.Context) {
	req := UpdateAgreementReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	owner, agreementID, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	a, err := h.svc.Update(c.Request.Context(), service.UpdateAgreementInput{
		OwnerID:     owner.ID,
		AgreementID: agreementID,
		Draft:       req.Draft,
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: a})
}

// DeleteAgreement godoc
//
//	@Summary	Delete an agreement and all of its children
//	@Tags		agreement
//	@Produce	json
//	@Param		agreement_id	path	string	true	"Agreement ID"	format(uuid)
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response
//	@Router		/agreements/{agreement_id} [delete]
func (h *AgreementHandler) DeleteAgreement(c *gin.Context) {
	owner, agreementID, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), owner.ID, agreementID); err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "deleted"})
}

type ProviderSignReq struct {
	SignerName     string `json:"signer_name" binding:"required"`
	SignatureImage []byte `json:"signature_image" binding:"required"`
}

// SignAsProvider godoc
//
//	@Summary		Countersign as the service provider
//	@Description	Records the owner's in-session signature and rederives the agreement status.
//	@Tags			agreement
//	@Accept			json
//	@Produce		json
//	@Param			agreement_id	path	string			true	"Agreement ID"	format(uuid)
//	@Param			body			body	ProviderSignReq	true	"Signature"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.SubmitSignatureOutput}
//	@Router			/agreements/{agreement_id}/signature [post]
func (h *AgreementHandler) SignAsProvider(c *gin.Context) {
	req := ProviderSignReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	owner, agreementID, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	sig, derived, err := h.svc.SignAsProvider(c.Request.Context(), service.ProviderSignInput{
		OwnerID:        owner.ID,
		AgreementID:    agreementID,
		SignerName:     req.SignerName,
		SignatureImage: req.SignatureImage,
		CaptureIP:      c.ClientIP(),
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: service.SubmitSignatureOutput{
		Signature:       sig,
		AgreementStatus: derived,
	}})
}

// Preview godoc
//
//	@Summary	Render the agreement text for in-app review
//	@Tags		document
//	@Produce	json
//	@Param		agreement_id	path	string	true	"Agreement ID"	format(uuid)
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=render.Document}
//	@Router		/agreements/{agreement_id}/preview [get]
func (h *AgreementHandler) Preview(c *gin.Context) {
	owner, agreementID, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	doc, err := h.docs.Preview(c.Request.Context(), owner.ID, agreementID)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: doc})
}

// GeneratePDF godoc
//
//	@Summary		Generate the agreement PDF
//	@Description	Renders the canonical text, feeds it to the PDF engine and returns the binary. Archive and cache failures degrade to a response header warning.
//	@Tags			document
//	@Produce		application/pdf
//	@Param			agreement_id	path	string	true	"Agreement ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{file}	binary
//	@Router			/agreements/{agreement_id}/pdf [get]
func (h *AgreementHandler) GeneratePDF(c *gin.Context) {
	owner, agreementID, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	out, err := h.docs.GeneratePDF(c.Request.Context(), owner.ID, agreementID)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	for _, w := range out.Warnings {
		c.Writer.Header().Add("X-Inkdesk-Warning", w)
	}
	c.Data(http.StatusOK, "application/pdf", out.PDF)
}

type ReplaceRosterReq struct {
	ClientIDs []uuid.UUID `json:"client_ids" binding:"required"`
}

// ReplaceRoster godoc
//
//	@Summary		Replace the project's client roster
//	@Description	Swaps the roster and rederives the agreement status, since roster membership gates completion.
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			project_id	path	string				true	"Project ID"	format(uuid)
//	@Param			body		body	ReplaceRosterReq	true	"Roster"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/projects/{project_id}/clients [put]
func (h *AgreementHandler) ReplaceRoster(c *gin.Context) {
	req := ReplaceRosterReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.BindErr(err))
		return
	}
	owner, ok := currentOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid project_id", err))
		return
	}

	if err := h.svc.ReplaceRoster(c.Request.Context(), owner.ID, projectID, req.ClientIDs); err != nil {
		respondServiceErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "roster updated"})
}

func (h *AgreementHandler) ownerAndID(c *gin.Context) (*model.Owner, uuid.UUID, bool) {
	owner, ok := currentOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return nil, uuid.Nil, false
	}
	agreementID, err := uuid.Parse(c.Param("agreement_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid agreement_id", err))
		return nil, uuid.Nil, false
	}
	return owner, agreementID, true
}
