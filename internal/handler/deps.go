package handler

import (
	"chatcast/internal/app/chat"
	"chatcast/internal/app/user"
	"chatcast/internal/configs"
)

// AppDeps carries the shared services every handler needs.
type AppDeps struct {
	Hub    *chat.Hub
	Users  *user.Store
	Config *configs.AppConfig
}
