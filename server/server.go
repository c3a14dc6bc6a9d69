// Package server is the inbound interaction endpoint.
//
// Information Hiding:
// - Ed25519 request verification
// - Interaction payload decoding and synchronous validation
// - The acknowledge-then-launch split
//
// The handler does only what must happen inside the platform's response
// deadline: verify, validate, acknowledge. Everything slow runs in a
// launched workflow with a detached context, so closing the request does
// not cancel the run.

package server

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/minase/kotae/workflow"
)

const questionOption = "question"

// Launcher starts one workflow run. Implementations must not block.
type Launcher func(run workflow.Run)

// Server terminates inbound interaction HTTP traffic.
type Server struct {
	echo      *echo.Echo
	addr      string
	publicKey ed25519.PublicKey
	verify    func(r *http.Request, key ed25519.PublicKey) bool
	launch    Launcher
	logger    *slog.Logger
}

// NewServer creates the server. publicKeyHex is the application's
// interaction public key.
func NewServer(addr, publicKeyHex string, launch Launcher, logger *slog.Logger) (*Server, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key: got %d bytes, want %d", len(key), ed25519.PublicKeySize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:      addr,
		publicKey: ed25519.PublicKey(key),
		verify:    discordgo.VerifyInteraction,
		launch:    launch,
		logger:    logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST("/interactions", s.handleInteraction)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	s.echo = e
	return s, nil
}

// WithVerifier overrides signature verification (for tests).
func (s *Server) WithVerifier(verify func(r *http.Request, key ed25519.PublicKey) bool) *Server {
	s.verify = verify
	return s
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree (for tests).
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleInteraction(c echo.Context) error {
	request := c.Request()

	if !s.verify(request, s.publicKey) {
		return c.String(http.StatusUnauthorized, "invalid request signature")
	}

	body, err := io.ReadAll(request.Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "unreadable body")
	}

	var interaction discordgo.Interaction
	if err := interaction.UnmarshalJSON(body); err != nil {
		return c.String(http.StatusBadRequest, "malformed interaction")
	}

	switch interaction.Type {
	case discordgo.InteractionPing:
		return c.JSON(http.StatusOK, discordgo.InteractionResponse{
			Type: discordgo.InteractionResponsePong,
		})

	case discordgo.InteractionApplicationCommand:
		question := commandQuestion(interaction.ApplicationCommandData())
		if question == "" {
			return c.String(http.StatusBadRequest, "missing question")
		}

		run := workflow.Run{
			RequestID:  interaction.ID,
			Token:      interaction.Token,
			Message:    question,
			InstanceID: uuid.NewString(),
		}
		s.logger.Info("run admitted",
			"request_id", run.RequestID,
			"instance_id", run.InstanceID,
		)
		s.launch(run)

		// Deferred acknowledgement; the workflow delivers the real content
		// through followup edits.
		return c.JSON(http.StatusOK, discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})

	default:
		return c.String(http.StatusBadRequest, "unsupported interaction type")
	}
}

// commandQuestion extracts the question option from a slash command.
func commandQuestion(data discordgo.ApplicationCommandInteractionData) string {
	for _, option := range data.Options {
		if option.Name == questionOption && option.Type == discordgo.ApplicationCommandOptionString {
			return option.StringValue()
		}
	}
	return ""
}
