package adapter

import (
	"github.com/user/ai-spend-tracker/internal/adapter/anthropic"
	"github.com/user/ai-spend-tracker/internal/adapter/cursor"
	"github.com/user/ai-spend-tracker/internal/adapter/openai"
	"github.com/user/ai-spend-tracker/internal/adapter/openrouter"
	"github.com/user/ai-spend-tracker/internal/provider"
)

func RegisterAll(r *provider.Registry) {
	r.Register(openai.New())
	r.Register(anthropic.New())
	r.Register(openrouter.New())
	r.Register(cursor.New())
}
