package handler

import (
	"chatrelay/internal/app/chat"
	"chatrelay/internal/configs"
)

type AppDeps struct {
	Hub      *chat.Hub
	Registry *chat.Registry
	Config   *configs.AppConfig
}
