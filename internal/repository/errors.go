package repository

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrRoomNotFound         = errors.New("room not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrMembershipExists     = errors.New("membership already exists")
	ErrMembershipNotPending = errors.New("membership is not pending")
	ErrRoomFull             = errors.New("room capacity reached")
	ErrMediaNotFound        = errors.New("media not found")
	ErrMindMapNotFound      = errors.New("mind map not found")
)
