package http

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/studyroom/internal/api/http/converter"
	"github.com/immxrtalbeast/studyroom/internal/service"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

// multipartOverhead covers boundaries and part headers on top of the file itself.
const multipartOverhead = 1 << 20

type MediaController struct {
	media   service.MediaInteractor
	maxSize int64
	log     *slog.Logger
}

func NewMediaController(media service.MediaInteractor, maxSize int64, log *slog.Logger) *MediaController {
	return &MediaController{media: media, maxSize: maxSize, log: log}
}

func (c *MediaController) Upload(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	if c.maxSize > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxSize+multipartOverhead)
	}

	in := service.UploadInput{Size: -1}
	header, err := ctx.FormFile("file")
	switch {
	case err == nil:
		file, err := header.Open()
		if err != nil {
			respondError(ctx, c.log, err)
			return
		}
		defer file.Close()

		in.FileName = header.Filename
		in.ContentType = partContentType(header)
		in.Size = header.Size
		in.Body = file
	case isBodyTooLarge(err):
		respondError(ctx, c.log, service.ErrPayloadTooLarge)
		return
	default:
		// A missing part is reported by the service after the access checks.
		c.log.Debug("upload without file part", sl.Err(err))
	}

	asset, err := c.media.UploadMedia(ctx.Request.Context(), roomID, currentUser(ctx), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"media": converter.MediaToApi(asset),
		"url":   converter.MediaURL(asset.ID),
	})
}

func (c *MediaController) List(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	assets, err := c.media.ListMedia(ctx.Request.Context(), roomID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"media": converter.MediaListToApi(assets)})
}

func (c *MediaController) Download(ctx *gin.Context) {
	mediaID, ok := uuidParam(ctx, "mediaID", "invalid media id")
	if !ok {
		return
	}

	asset, file, err := c.media.OpenMedia(ctx.Request.Context(), mediaID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	defer file.Close()

	if asset.FileType != "" {
		ctx.Header("Content-Type", asset.FileType)
	}
	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": asset.OriginalName,
	}))
	ctx.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(ctx.Writer, ctx.Request, asset.OriginalName, asset.UploadedAt, file)
}

func partContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mediaType
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
