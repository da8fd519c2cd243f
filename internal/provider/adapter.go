package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/jbonatakis/reshai/internal/config"
)

const (
	UserAgent = "Resh/0.1.0"

	DefaultOpenAIEndpoint = "https://api.openai.com/v1/"
)

// Dialect selects request-shape quirks of the upstream model family.
type Dialect string

const (
	DialectOpenAI    Dialect = "openai"
	DialectAnthropic Dialect = "anthropic"
)

// Target is everything needed to open a chat stream against one model.
type Target struct {
	ChannelID string
	// Model is the upstream model name.
	Model    string
	Endpoint string
	Headers  http.Header
	Dialect  Dialect
	Client   *http.Client
}

// URL joins the endpoint with a relative path.
func (t Target) URL(path string) string {
	return NormalizeEndpoint(t.Endpoint) + strings.TrimPrefix(path, "/")
}

// Adapter produces request targets for one provider kind.
type Adapter interface {
	ProviderID() string
	// Target resolves credentials and headers. Configuration problems are
	// reported before any network access.
	Target(ctx context.Context, channel config.Channel, model config.Model) (Target, error)
	// ListModels returns the chat model names the channel offers.
	ListModels(ctx context.Context, channel config.Channel, client *http.Client) ([]string, error)
}

// CredentialStore holds secrets obtained through `login`: API keys for static
// channels and OAuth tokens for device-flow channels.
type CredentialStore interface {
	Credential(channelID string) (string, error)
}

// NormalizeEndpoint guarantees a single trailing slash.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	return strings.TrimRight(endpoint, "/") + "/"
}

func baseHeaders() http.Header {
	headers := http.Header{}
	headers.Set("User-Agent", UserAgent)
	headers.Set("Content-Type", "application/json")
	return headers
}

func dialectFor(model string) Dialect {
	if strings.Contains(strings.ToLower(model), "claude") {
		return DialectAnthropic
	}
	return DialectOpenAI
}
