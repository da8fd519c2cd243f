package provider

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/errs"
)

// OpenAIAdapter serves any OpenAI-compatible endpoint with a static API key.
type OpenAIAdapter struct {
	Credentials CredentialStore
}

func (OpenAIAdapter) ProviderID() string {
	return config.ProviderOpenAI
}

func (a OpenAIAdapter) Target(ctx context.Context, channel config.Channel, model config.Model) (Target, error) {
	key, err := a.apiKey(channel)
	if err != nil {
		return Target{}, err
	}

	endpoint := NormalizeEndpoint(channel.Endpoint)
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}

	headers := baseHeaders()
	headers.Set("Authorization", "Bearer "+key)

	name := model.UpstreamName()
	return Target{
		ChannelID: channel.ID,
		Model:     name,
		Endpoint:  endpoint,
		Headers:   headers,
		Dialect:   dialectFor(name),
	}, nil
}

func (a OpenAIAdapter) ListModels(ctx context.Context, channel config.Channel, client *http.Client) ([]string, error) {
	target, err := a.Target(ctx, channel, config.Model{})
	if err != nil {
		return nil, err
	}
	target.Client = client

	body, err := getJSON(ctx, target, target.URL("models"))
	if err != nil {
		return nil, err
	}

	var ids []string
	gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
		if id := item.Get("id").String(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	sort.Strings(ids)
	return ids, nil
}

// apiKey prefers the key in config and falls back to one saved by login.
func (a OpenAIAdapter) apiKey(channel config.Channel) (string, error) {
	if key := strings.TrimSpace(channel.APIKey); key != "" {
		return key, nil
	}
	if a.Credentials != nil {
		key, err := a.Credentials.Credential(channel.ID)
		if err != nil {
			return "", err
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", errs.Configuration("channel %q has no API key; set apiKey or run `reshai login %s`", channel.ID, channel.ID)
}
