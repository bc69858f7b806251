package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
)

type memberKey struct {
	room uuid.UUID
	user uuid.UUID
}

// InMemoryStore backs the in-memory repositories. All of them share one lock
// so cross-table reads (member counts, uploader names) stay consistent.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*domain.User
	rooms    map[uuid.UUID]*domain.Room
	members  map[memberKey]*domain.Membership
	media    map[uuid.UUID]*domain.MediaAsset
	mindMaps map[uuid.UUID]*domain.MindMap
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[uuid.UUID]*domain.User),
		rooms:    make(map[uuid.UUID]*domain.Room),
		members:  make(map[memberKey]*domain.Membership),
		media:    make(map[uuid.UUID]*domain.MediaAsset),
		mindMaps: make(map[uuid.UUID]*domain.MindMap),
	}
}

func (s *InMemoryStore) Users() *InMemoryUserRepository {
	return &InMemoryUserRepository{s: s}
}

func (s *InMemoryStore) Rooms() *InMemoryRoomRepository {
	return &InMemoryRoomRepository{s: s}
}

func (s *InMemoryStore) Memberships() *InMemoryMembershipRepository {
	return &InMemoryMembershipRepository{s: s}
}

func (s *InMemoryStore) Media() *InMemoryMediaRepository {
	return &InMemoryMediaRepository{s: s}
}

func (s *InMemoryStore) MindMaps() *InMemoryMindMapRepository {
	return &InMemoryMindMapRepository{s: s}
}

func (s *InMemoryStore) userName(id uuid.UUID) string {
	if u, ok := s.users[id]; ok {
		return u.Name
	}
	return ""
}

type InMemoryUserRepository struct {
	s *InMemoryStore
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.ExternalID == user.ExternalID {
			return ErrUserExists
		}
	}
	if _, ok := r.s.users[user.ID]; ok {
		return ErrUserExists
	}

	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryUserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Role = user.Role
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

type InMemoryRoomRepository struct {
	s *InMemoryStore
}

func (r *InMemoryRoomRepository) CreateWithOwner(ctx context.Context, room *domain.Room, owner *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil || owner == nil {
		return errors.New("room and owner membership are required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := memberKey{room: owner.RoomID, user: owner.UserID}
	if _, ok := r.s.members[key]; ok {
		return ErrMembershipExists
	}

	roomCopy := *room
	memberCopy := *owner
	r.s.rooms[room.ID] = &roomCopy
	r.s.members[key] = &memberCopy
	return nil
}

func (r *InMemoryRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok || !room.IsActive {
		return nil, ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (r *InMemoryRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Room, 0, len(r.s.rooms))
	for _, room := range r.s.rooms {
		if !room.IsActive {
			continue
		}
		cp := *room
		cp.MemberCount = r.s.countApproved(room.ID)
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryStore) countApproved(roomID uuid.UUID) int64 {
	var n int64
	for key, m := range s.members {
		if key.room == roomID && m.Status == domain.MembershipApproved {
			n++
		}
	}
	return n
}

type InMemoryMembershipRepository struct {
	s *InMemoryStore
}

func (r *InMemoryMembershipRepository) Create(ctx context.Context, membership *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if membership == nil {
		return errors.New("membership is nil")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := memberKey{room: membership.RoomID, user: membership.UserID}
	if _, ok := r.s.members[key]; ok {
		return ErrMembershipExists
	}
	cp := *membership
	r.s.members[key] = &cp
	return nil
}

func (r *InMemoryMembershipRepository) Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[memberKey{room: roomID, user: userID}]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	cp := *m
	cp.UserName = r.s.userName(m.UserID)
	return &cp, nil
}

func (r *InMemoryMembershipRepository) ListByStatus(ctx context.Context, roomID uuid.UUID, status domain.MembershipStatus) ([]*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Membership, 0)
	for key, m := range r.s.members {
		if key.room != roomID || m.Status != status {
			continue
		}
		cp := *m
		cp.UserName = r.s.userName(m.UserID)
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryMembershipRepository) Transition(ctx context.Context, roomID, userID uuid.UUID, status domain.MembershipStatus, at time.Time, capacity int) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.members[memberKey{room: roomID, user: userID}]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	if m.Status != domain.MembershipPending {
		return nil, ErrMembershipNotPending
	}
	if status == domain.MembershipApproved && capacity > 0 && r.s.countApproved(roomID) >= int64(capacity) {
		return nil, ErrRoomFull
	}

	at = at.UTC()
	m.Status = status
	m.UpdatedAt = at
	if status == domain.MembershipApproved {
		m.JoinedAt = &at
	}

	cp := *m
	cp.UserName = r.s.userName(m.UserID)
	return &cp, nil
}

type InMemoryMediaRepository struct {
	s *InMemoryStore
}

func (r *InMemoryMediaRepository) Create(ctx context.Context, asset *domain.MediaAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if asset == nil {
		return errors.New("media asset is nil")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *asset
	r.s.media[asset.ID] = &cp
	return nil
}

func (r *InMemoryMediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	asset, ok := r.s.media[id]
	if !ok {
		return nil, ErrMediaNotFound
	}
	cp := *asset
	cp.UploaderName = r.s.userName(asset.UserID)
	return &cp, nil
}

func (r *InMemoryMediaRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.MediaAsset, 0)
	for _, asset := range r.s.media {
		if asset.RoomID != roomID {
			continue
		}
		cp := *asset
		cp.UploaderName = r.s.userName(asset.UserID)
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result, nil
}

type InMemoryMindMapRepository struct {
	s *InMemoryStore
}

func (r *InMemoryMindMapRepository) Get(ctx context.Context, roomID uuid.UUID) (*domain.MindMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	mm, ok := r.s.mindMaps[roomID]
	if !ok {
		return nil, ErrMindMapNotFound
	}
	cp := *mm
	cp.Data = append([]byte(nil), mm.Data...)
	return &cp, nil
}

func (r *InMemoryMindMapRepository) Upsert(ctx context.Context, mindMap *domain.MindMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mindMap == nil {
		return errors.New("mind map is nil")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *mindMap
	cp.Data = append([]byte(nil), mindMap.Data...)
	r.s.mindMaps[mindMap.RoomID] = &cp
	return nil
}

// InMemoryChatLog is a ChatLog kept in process memory.
type InMemoryChatLog struct {
	mu    sync.Mutex
	now   func() time.Time
	rooms map[uuid.UUID][]domain.ChatMessage
}

func NewInMemoryChatLog() *InMemoryChatLog {
	return &InMemoryChatLog{
		now:   time.Now,
		rooms: make(map[uuid.UUID][]domain.ChatMessage),
	}
}

func (l *InMemoryChatLog) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("chat message is nil")
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC().Truncate(time.Microsecond)
	log := l.rooms[msg.RoomID]
	if n := len(log); n > 0 && !ts.After(log[n-1].CreatedAt) {
		ts = log[n-1].CreatedAt.Add(time.Microsecond)
	}
	msg.CreatedAt = ts
	l.rooms[msg.RoomID] = append(log, *msg)
	return nil
}

func (l *InMemoryChatLog) Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*domain.ChatMessage{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.rooms[roomID]
	start := 0
	if len(log) > limit {
		start = len(log) - limit
	}

	result := make([]*domain.ChatMessage, 0, len(log)-start)
	for i := start; i < len(log); i++ {
		msg := log[i]
		result = append(result, &msg)
	}
	return result, nil
}
