package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/studyroom/internal/api/http/converter"
	"github.com/immxrtalbeast/studyroom/internal/service"
)

type UserController struct {
	users service.UserInteractor
	log   *slog.Logger
}

func NewUserController(users service.UserInteractor, log *slog.Logger) *UserController {
	return &UserController{users: users, log: log}
}

// Register provisions the caller's local account. It sits outside the auth
// middleware because an unprovisioned identity cannot resolve to a user yet.
func (c *UserController) Register(ctx *gin.Context) {
	token := bearerToken(ctx)
	if token == "" {
		respondError(ctx, c.log, service.ErrUnauthenticated)
		return
	}

	var req service.RegisterInput
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	user, created, err := c.users.Register(ctx.Request.Context(), token, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ctx.JSON(status, gin.H{"user": converter.UserToApi(user)})
}

func (c *UserController) Me(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"user": converter.UserToApi(currentUser(ctx))})
}

func (c *UserController) UpdateMe(ctx *gin.Context) {
	var req service.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}

	user, err := c.users.UpdateProfile(ctx.Request.Context(), currentUser(ctx), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": converter.UserToApi(user)})
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		badRequest(ctx, "invalid request body")
		return false
	}
	return true
}
