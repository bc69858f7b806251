package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/metrics"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

const (
	maxChatMessageLength = 4000
	defaultHistoryLimit  = 50
)

type ChatService struct {
	messages     repository.ChatLog
	access       AccessChecker
	historyLimit int
	log          *slog.Logger

	mu    sync.RWMutex
	peers map[uuid.UUID]map[string]*domain.Peer
}

func NewChatService(messages repository.ChatLog, access AccessChecker, historyLimit int, log *slog.Logger) *ChatService {
	if log == nil {
		log = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &ChatService{
		messages:     messages,
		access:       access,
		historyLimit: historyLimit,
		log:          log,
		peers:        make(map[uuid.UUID]map[string]*domain.Peer),
	}
}

// PostMessage appends text to the room log and fans it out to live subscribers.
func (s *ChatService) PostMessage(ctx context.Context, roomID uuid.UUID, requester *domain.User, text string) (*domain.ChatMessage, error) {
	const op = "service.chat.post"
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID.String()))

	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	content, err := validateChatText(text)
	if err != nil {
		return nil, err
	}

	msg := domain.NewChatMessage(roomID, requester, content)
	if err := s.messages.Append(ctx, msg); err != nil {
		log.Error("failed to save chat message", sl.Err(err))
		return nil, err
	}

	metrics.ChatMessagesPosted.Inc()
	s.broadcast(*msg)
	return msg, nil
}

func (s *ChatService) GetRecentMessages(ctx context.Context, roomID uuid.UUID, requester *domain.User) ([]*domain.ChatMessage, error) {
	const op = "service.chat.recent"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.Recent(ctx, roomID, s.historyLimit)
	if err != nil {
		s.log.Error("failed to read chat log", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return msgs, nil
}

// Subscribe registers a live subscriber. Callers must Unsubscribe the
// returned peer when the stream ends.
func (s *ChatService) Subscribe(ctx context.Context, roomID uuid.UUID, requester *domain.User) (*domain.Peer, error) {
	const op = "service.chat.subscribe"
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	if err := s.access.RequireApproved(ctx, roomID, requester.ID); err != nil {
		return nil, err
	}

	peer := domain.NewPeer(roomID, requester)

	s.mu.Lock()
	room, ok := s.peers[roomID]
	if !ok {
		room = make(map[string]*domain.Peer)
		s.peers[roomID] = room
	}
	room[peer.ID] = peer
	s.mu.Unlock()

	metrics.ChatSubscribers.Inc()
	s.log.Info("chat subscriber joined",
		slog.String("op", op),
		slog.String("room_id", roomID.String()),
		slog.String("peer_id", peer.ID),
	)
	return peer, nil
}

func (s *ChatService) Unsubscribe(peer *domain.Peer) {
	if peer == nil {
		return
	}

	s.mu.Lock()
	removed := false
	if room, ok := s.peers[peer.RoomID]; ok {
		if _, found := room[peer.ID]; found {
			delete(room, peer.ID)
			removed = true
		}
		if len(room) == 0 {
			delete(s.peers, peer.RoomID)
		}
	}
	s.mu.Unlock()

	peer.Close()
	if removed {
		metrics.ChatSubscribers.Dec()
	}
}

func (s *ChatService) subscriberCount(roomID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers[roomID])
}

func (s *ChatService) broadcast(msg domain.ChatMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, peer := range s.peers[msg.RoomID] {
		if !peer.EnqueueEvent(msg) {
			metrics.ChatEventsDropped.Inc()
			s.log.Warn("chat event dropped",
				slog.String("room_id", msg.RoomID.String()),
				slog.String("peer_id", peer.ID),
			)
		}
	}
}

func validateChatText(text string) (string, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return "", validationError("message text is required")
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return "", validationError("message text must be at most %d characters", maxChatMessageLength)
	}
	return content, nil
}
