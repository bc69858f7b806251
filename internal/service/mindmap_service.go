package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

// MindMapService keeps one JSON document per room. Concurrent saves are
// last-writer-wins.
type MindMapService struct {
	mindMaps repository.MindMapRepository
	access   AccessChecker
	log      *slog.Logger
}

func NewMindMapService(mindMaps repository.MindMapRepository, access AccessChecker, log *slog.Logger) *MindMapService {
	if log == nil {
		log = slog.Default()
	}
	return &MindMapService{
		mindMaps: mindMaps,
		access:   access,
		log:      log,
	}
}

func (s *MindMapService) GetMindMap(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*domain.MindMap, error) {
	const op = "service.mindmap.get"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	mm, err := s.mindMaps.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrMindMapNotFound) {
			return &domain.MindMap{
				RoomID: roomID,
				Data:   append(json.RawMessage(nil), domain.EmptyMindMapData...),
			}, nil
		}
		s.log.Error("failed to load mind map", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return mm, nil
}

func (s *MindMapService) SaveMindMap(ctx context.Context, roomID uuid.UUID, requester *domain.User, payload json.RawMessage) (*domain.MindMap, error) {
	const op = "service.mindmap.save"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()))

	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	var obj map[string]gojson.RawMessage
	if err := gojson.Unmarshal(payload, &obj); err != nil || obj == nil {
		return nil, validationError("mind map must be a JSON object")
	}

	mm := domain.NewMindMap(roomID, requester.ID, append(json.RawMessage(nil), payload...))
	if err := s.mindMaps.Upsert(ctx, mm); err != nil {
		log.Error("failed to save mind map", sl.Err(err))
		return nil, err
	}

	log.Info("mind map saved", slog.Int("bytes", len(payload)))
	return mm, nil
}
