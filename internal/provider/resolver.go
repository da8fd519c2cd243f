package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/errs"
)

// Resolver turns a model id into a ready Target using the resolved config,
// stored credentials and the shared session-token cache.
type Resolver struct {
	Config      config.ResolvedConfig
	Credentials CredentialStore
	Cache       *SessionTokenCache

	// CopilotTokenURL and CopilotEndpoint override the Copilot defaults.
	CopilotTokenURL string
	CopilotEndpoint string
}

func NewResolver(cfg config.ResolvedConfig, credentials CredentialStore) *Resolver {
	return &Resolver{
		Config:      cfg,
		Credentials: credentials,
		Cache:       NewSessionTokenCache(),
	}
}

// Resolve returns the target for modelID, or ai.defaultModel when empty.
func (r *Resolver) Resolve(ctx context.Context, modelID string) (Target, error) {
	model, channel, err := r.Config.ModelTarget(modelID)
	if err != nil {
		return Target{}, err
	}
	return r.ResolveChannel(ctx, channel, model)
}

// ResolveChannel builds the target for a model served by channel.
func (r *Resolver) ResolveChannel(ctx context.Context, channel config.Channel, model config.Model) (Target, error) {
	adapter, client, err := r.Adapter(channel)
	if err != nil {
		return Target{}, err
	}
	target, err := adapter.Target(ctx, channel, model)
	if err != nil {
		return Target{}, err
	}
	target.Client = client
	return target, nil
}

// ListModels lists the chat models offered by channelID.
func (r *Resolver) ListModels(ctx context.Context, channelID string) ([]string, error) {
	channel, err := r.Config.Channel(channelID)
	if err != nil {
		return nil, err
	}
	adapter, client, err := r.Adapter(channel)
	if err != nil {
		return nil, err
	}
	return adapter.ListModels(ctx, channel, client)
}

// Adapter selects the provider adapter for channel along with its HTTP client.
func (r *Resolver) Adapter(channel config.Channel) (Adapter, *http.Client, error) {
	proxy, err := r.Config.ChannelProxy(channel)
	if err != nil {
		return nil, nil, err
	}
	client, err := NewHTTPClient(channel, proxy)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(strings.TrimSpace(channel.Provider)) {
	case config.ProviderOpenAI:
		return OpenAIAdapter{Credentials: r.Credentials}, client, nil
	case config.ProviderCopilot:
		return CopilotAdapter{
			Credentials: r.Credentials,
			Cache:       r.Cache,
			Client:      client,
			TokenURL:    r.CopilotTokenURL,
			Endpoint:    r.CopilotEndpoint,
		}, client, nil
	default:
		return nil, nil, errs.Configuration("channel %q has unknown provider %q", channel.ID, channel.Provider)
	}
}
