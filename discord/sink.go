// Package discord delivers incremental and final content to a Discord
// interaction response.
//
// Information Hiding:
// - Webhook/followup endpoints behind the interaction token
// - Working-message ID tracking across edits
// - Rate-limit and REST error classification

package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/minase/kotae/retry"
)

// Sink posts and edits one working message for one run. Not safe for
// concurrent use; each run owns its own Sink.
type Sink struct {
	session   *discordgo.Session
	appID     string
	token     string
	messageID string
	logger    *slog.Logger
}

// NewSink creates a sink bound to one interaction token.
func NewSink(session *discordgo.Session, appID, token string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		session: session,
		appID:   appID,
		token:   token,
		logger:  logger,
	}
}

// NewSession creates the shared Discord session for bot token auth.
func NewSession(botToken string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

func (s *Sink) interaction() *discordgo.Interaction {
	return &discordgo.Interaction{AppID: s.appID, Token: s.token}
}

// PostNew creates the working message.
func (s *Sink) PostNew(ctx context.Context, content string) error {
	message, err := s.session.FollowupMessageCreate(s.interaction(), true, &discordgo.WebhookParams{
		Content: content,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	s.messageID = message.ID
	return nil
}

// EditExisting replaces the working message's content. Returns false on a
// failed edit; rate-limit rejections carry a rate-limited tag so callers
// can treat them as non-fatal.
func (s *Sink) EditExisting(ctx context.Context, content string) (bool, error) {
	if s.messageID == "" {
		if err := s.PostNew(ctx, content); err != nil {
			return false, err
		}
		return true, nil
	}

	_, err := s.session.FollowupMessageEdit(s.interaction(), s.messageID, &discordgo.WebhookEdit{
		Content: &content,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

// classify tags discordgo errors with a retry kind.
func classify(err error) error {
	var rateLimit *discordgo.RateLimitError
	if errors.As(err, &rateLimit) {
		return retry.Tag(retry.KindRateLimited,
			fmt.Errorf("rate limited, retry after %s: %w", rateLimit.RetryAfter, err))
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		if rest.Response.StatusCode >= 500 {
			return retry.Tag(retry.KindServer, err)
		}
		return retry.Tag(retry.KindClient, err)
	}

	return retry.Tag(retry.KindNetwork, err)
}
