package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/studyroom/internal/api/http/converter"
	"github.com/immxrtalbeast/studyroom/internal/service"
)

const maxMindMapBody = 2 << 20

type MindMapController struct {
	mindMaps service.MindMapInteractor
	log      *slog.Logger
}

func NewMindMapController(mindMaps service.MindMapInteractor, log *slog.Logger) *MindMapController {
	return &MindMapController{mindMaps: mindMaps, log: log}
}

func (c *MindMapController) Get(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	mm, err := c.mindMaps.GetMindMap(ctx.Request.Context(), roomID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"mindmap": converter.MindMapToApi(mm)})
}

// Save stores the request body verbatim; the service checks it is a JSON object.
func (c *MindMapController) Save(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxMindMapBody))
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(ctx, c.log, service.ErrPayloadTooLarge)
			return
		}
		badRequest(ctx, "invalid request body")
		return
	}

	mm, err := c.mindMaps.SaveMindMap(ctx.Request.Context(), roomID, currentUser(ctx), body)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"mindmap": converter.MindMapToApi(mm)})
}
