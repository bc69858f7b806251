package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/metrics"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/internal/storage"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

// sniffLen is how much of an upload is read to detect its MIME type.
const sniffLen = 3072

type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader, limit int64) (int64, error)
	Open(ctx context.Context, name string) (*os.File, error)
	Remove(ctx context.Context, name string) error
}

type UploadInput struct {
	FileName    string
	ContentType string
	// Size is the client-declared size, -1 when unknown.
	Size int64
	Body io.Reader
}

type MediaOptions struct {
	MaxSize           int64
	AllowedExtensions []string
}

type MediaService struct {
	rooms   repository.RoomRepository
	media   repository.MediaRepository
	blobs   BlobStore
	access  AccessChecker
	maxSize int64
	allowed map[string]struct{}
	log     *slog.Logger
}

func NewMediaService(
	rooms repository.RoomRepository,
	media repository.MediaRepository,
	blobs BlobStore,
	access AccessChecker,
	opts MediaOptions,
	log *slog.Logger,
) *MediaService {
	if log == nil {
		log = slog.Default()
	}
	allowed := make(map[string]struct{}, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &MediaService{
		rooms:   rooms,
		media:   media,
		blobs:   blobs,
		access:  access,
		maxSize: opts.MaxSize,
		allowed: allowed,
		log:     log,
	}
}

// UploadMedia stores the bytes first and the metadata row second. If the
// row cannot be written the bytes are removed again.
func (s *MediaService) UploadMedia(ctx context.Context, roomID uuid.UUID, requester *domain.User, in UploadInput) (*domain.MediaAsset, error) {
	const op = "service.media.upload"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID.String()),
		slog.String("user_id", requester.ID.String()),
	)

	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		log.Error("failed to load room", sl.Err(err))
		return nil, err
	}
	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	if in.Body == nil {
		return nil, validationError("no file provided")
	}
	name := domain.SanitizeFileName(in.FileName)
	if name == "" {
		return nil, validationError("no file selected")
	}
	if in.Size == 0 {
		return nil, validationError("file is empty")
	}
	ext := domain.Extension(name)
	if _, ok := s.allowed[ext]; !ok {
		return nil, validationError("file type %q is not allowed", strings.TrimPrefix(ext, "."))
	}
	if s.maxSize > 0 && in.Size > s.maxSize {
		return nil, ErrPayloadTooLarge
	}

	body, contentType, err := detectContentType(in.Body, in.ContentType)
	if err != nil {
		log.Error("failed to read upload", sl.Err(err))
		return nil, err
	}

	asset := domain.NewMediaAsset(roomID, requester.ID, name)
	asset.FilePath = asset.FileName
	asset.FileType = contentType
	asset.UploaderName = requester.Name

	n, err := s.blobs.Save(ctx, asset.FilePath, body, s.maxSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, ErrPayloadTooLarge
		}
		log.Error("failed to store file", sl.Err(err))
		return nil, err
	}
	if n == 0 {
		s.removeBlob(ctx, log, asset.FilePath)
		return nil, validationError("file is empty")
	}
	asset.Size = n

	if err := s.media.Create(ctx, asset); err != nil {
		log.Error("failed to save media metadata", sl.Err(err))
		s.removeBlob(ctx, log, asset.FilePath)
		return nil, err
	}

	metrics.MediaUploadedBytes.Add(float64(n))
	log.Info("media uploaded",
		slog.String("media_id", asset.ID.String()),
		slog.String("file_type", asset.FileType),
		slog.Int64("size", asset.Size),
	)
	return asset, nil
}

func (s *MediaService) ListMedia(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.MediaAsset, error) {
	const op = "service.media.list"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	assets, err := s.media.ListByRoom(ctx, roomID)
	if err != nil {
		s.log.Error("failed to list media", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return assets, nil
}

// OpenMedia returns the metadata and an open handle on the bytes. The caller closes the file.
func (s *MediaService) OpenMedia(ctx context.Context, mediaID uuid.UUID, requester *domain.User) (*domain.MediaAsset, *os.File, error) {
	const op = "service.media.open"
	if requester == nil {
		return nil, nil, ErrUnauthenticated
	}
	log := s.log.With(slog.String("op", op), slog.String("media_id", mediaID.String()))

	asset, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, nil, ErrMediaNotFound
		}
		log.Error("failed to load media", sl.Err(err))
		return nil, nil, err
	}

	if err := s.access.RequireApproved(ctx, asset.RoomID, requester.ID); err != nil {
		return nil, nil, err
	}

	f, err := s.blobs.Open(ctx, asset.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn("media bytes missing", slog.String("file_path", asset.FilePath))
			return nil, nil, ErrMediaNotFound
		}
		log.Error("failed to open media", sl.Err(err))
		return nil, nil, err
	}
	return asset, f, nil
}

func (s *MediaService) removeBlob(ctx context.Context, log *slog.Logger, name string) {
	if err := s.blobs.Remove(context.WithoutCancel(ctx), name); err != nil {
		log.Error("failed to remove orphaned file", slog.String("file_path", name), sl.Err(err))
	}
}

// detectContentType keeps a declared type unless it is empty or generic,
// otherwise it sniffs the first bytes. The returned reader yields the full body.
func detectContentType(body io.Reader, declared string) (io.Reader, string, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return body, declared, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]

	return io.MultiReader(bytes.NewReader(head), body), mimetype.Detect(head).String(), nil
}
