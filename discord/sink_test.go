package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/minase/kotae/retry"
)

func TestClassifyRateLimit(t *testing.T) {
	err := classify(&discordgo.RateLimitError{
		RateLimit: &discordgo.RateLimit{
			TooManyRequests: &discordgo.TooManyRequests{RetryAfter: 2 * time.Second},
		},
	})
	if retry.KindOf(err) != retry.KindRateLimited {
		t.Errorf("kind: got %v, want rate limited", retry.KindOf(err))
	}
	if !retry.Transient(err) {
		t.Error("rate limit should be transient")
	}
}

func TestClassifyRESTErrors(t *testing.T) {
	server := classify(&discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadGateway},
	})
	if retry.KindOf(server) != retry.KindServer {
		t.Errorf("5xx kind: got %v", retry.KindOf(server))
	}

	client := classify(&discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
	})
	if retry.KindOf(client) != retry.KindClient {
		t.Errorf("4xx kind: got %v", retry.KindOf(client))
	}
	if retry.Transient(client) {
		t.Error("4xx should not be transient")
	}
}

func TestClassifyOtherErrorsAsNetwork(t *testing.T) {
	err := classify(errors.New("connection reset"))
	if retry.KindOf(err) != retry.KindNetwork {
		t.Errorf("kind: got %v, want network", retry.KindOf(err))
	}
}
