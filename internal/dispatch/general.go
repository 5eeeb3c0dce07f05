package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorkbot/gork/internal/command"
)

type helpHandler struct {
	out     *Outbox
	reg     *command.Registry
	botName string
}

func (h *helpHandler) Handle(ctx context.Context, req *Request) error {
	return h.out.Reply(ctx, &req.Msg, command.RenderHelp(h.reg, h.botName))
}

type modelHandler struct {
	out    *Outbox
	models Models
}

func (h *modelHandler) Handle(ctx context.Context, req *Request) error {
	var b strings.Builder
	b.WriteString("*Models*\n")
	for _, row := range [][2]string{
		{"Text", h.models.Text},
		{"Vision", h.models.Vision},
		{"Image", h.models.Image},
		{"Audio", h.models.Audio},
	} {
		name := row[1]
		if name == "" {
			name = "not configured"
		}
		fmt.Fprintf(&b, "%s: %s\n", row[0], name)
	}
	return h.out.Reply(ctx, &req.Msg, strings.TrimSuffix(b.String(), "\n"))
}
