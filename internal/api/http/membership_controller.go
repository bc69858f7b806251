package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/studyroom/internal/api/http/converter"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/service"
)

type MembershipController struct {
	members service.MembershipInteractor
	log     *slog.Logger
}

func NewMembershipController(members service.MembershipInteractor, log *slog.Logger) *MembershipController {
	return &MembershipController{members: members, log: log}
}

func (c *MembershipController) RequestJoin(ctx *gin.Context) {
	// Older clients send camelCase keys.
	type request struct {
		StudentNumber      string `json:"student_number"`
		StudentEmail       string `json:"student_email"`
		StudentNumberCamel string `json:"studentNumber"`
		StudentEmailCamel  string `json:"studentEmail"`
	}

	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	var req request
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	in := service.JoinRequestInput{
		StudentNumber: firstNonEmpty(req.StudentNumber, req.StudentNumberCamel),
		StudentEmail:  firstNonEmpty(req.StudentEmail, req.StudentEmailCamel),
	}

	m, err := c.members.RequestJoin(ctx.Request.Context(), roomID, currentUser(ctx), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"membership": converter.MembershipToApi(m)})
}

func (c *MembershipController) GetMembership(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	m, err := c.members.GetMembershipStatus(ctx.Request.Context(), roomID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"membership": converter.MembershipToApi(m)})
}

func (c *MembershipController) ListPending(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	members, err := c.members.ListPending(ctx.Request.Context(), roomID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"members": converter.MembershipsToApi(members)})
}

func (c *MembershipController) ListApproved(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	members, err := c.members.ListApproved(ctx.Request.Context(), roomID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"members": converter.MembershipsToApi(members)})
}

func (c *MembershipController) Decide(ctx *gin.Context) {
	type request struct {
		Status string `json:"status"`
	}

	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	userID, ok := uuidParam(ctx, "userID", "invalid user id")
	if !ok {
		return
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}

	m, err := c.members.DecideMembership(ctx.Request.Context(), roomID, userID, domain.MembershipStatus(req.Status), currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"membership": converter.MembershipToApi(m)})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
