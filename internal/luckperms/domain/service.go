package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetPlayer(ctx context.Context, uuid string) (*Player, error)
	ListGroups(ctx context.Context) ([]Group, error)
	// SyncRole makes the player's LuckPerms groups match a staff role.
	// Existing group memberships written by the sync are replaced.
	SyncRole(ctx context.Context, uuid string, role string) error
}

var (
	ErrNotConfigured  = errors.New("luckperms_not_configured")
	ErrPlayerNotFound = errors.New("player_not_found")
	ErrUnknownRole    = errors.New("unknown_role")
	ErrInvalidUUID    = errors.New("invalid_uuid")
)
