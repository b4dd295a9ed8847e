// Package router binds registry commands, callbacks, and dialog state to
// Telebot endpoints and emits one summary line per handled update.
package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/residentbot/core/telegram"
	"github.com/m3rciful/residentbot/core/telegram/middleware"
)

// Dialogs is the minimal interface the text router needs from the dialog engine.
type Dialogs interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
}

// TextOptions controls routing of plain text updates.
type TextOptions struct {
	// GroupText handles text sent in group chats before any dialog routing.
	GroupText   tele.HandlerFunc
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for plain text updates, bound to both new
// and edited messages so an edit cannot slip past the group handler. Group
// messages go to the group handler; private text is routed dialog-first,
// then to commands typed without a slash, then to the fallback.
func TextRoutes(dialogs Dialogs, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
			if opts.GroupText != nil {
				return handleWithSummary(c, "group_text", start, func() error {
					return opts.GroupText(c)
				})
			}
			logHandlerSummary(c, "group_text", start, "skip", nil)
			return nil
		}

		if dialogs != nil && c.Sender() != nil && dialogs.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "dialog", start, func() error {
				return dialogs.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	wrapped := middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrapped},
		{Endpoint: tele.OnEdited, Handler: wrapped},
	}
}
