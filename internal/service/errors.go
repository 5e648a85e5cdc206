package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNotMember          = errors.New("not a member of this community")
	ErrNoPermission       = errors.New("no permission")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserExists         = errors.New("username or email already registered")
	ErrCommunityExists    = errors.New("community name already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
