// Package domain contains types mirroring the LuckPerms MySQL schema.
package domain

// Player is a Minecraft player as known to LuckPerms.
type Player struct {
	UUID         string   `json:"uuid"`
	Username     string   `json:"username"`
	PrimaryGroup string   `json:"primary_group"`
	Groups       []string `json:"groups"`
}

// Group is a LuckPerms permission group.
type Group struct {
	Name string `json:"name"`
}

// UserPermission is one row of luckperms_user_permissions.
type UserPermission struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID       string `gorm:"column:uuid;not null" json:"uuid"`
	Permission string `gorm:"not null" json:"permission"`
	Value      bool   `gorm:"not null" json:"value"`
	Server     string `gorm:"not null;default:global" json:"server"`
	World      string `gorm:"not null;default:global" json:"world"`
	Expiry     int64  `gorm:"not null;default:0" json:"expiry"`
	Contexts   string `gorm:"not null;default:{}" json:"contexts"`
}

func (UserPermission) TableName() string { return "luckperms_user_permissions" }
