package provider

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/errs"
)

const (
	CopilotClientID       = "Iv1.b507a08c87ecfe98"
	CopilotTokenURL       = "https://api.github.com/copilot_internal/v2/token"
	CopilotAPIEndpoint    = "https://api.githubcopilot.com/"
	copilotTokenUserAgent = "GithubCopilot/1.155.0"
	copilotIntegrationID  = "vscode-chat"
	copilotEditorVersion  = "vscode/1.85.1"
)

// CopilotAdapter exchanges a stored GitHub OAuth token for a Copilot session
// token and targets the Copilot chat API.
type CopilotAdapter struct {
	Credentials CredentialStore
	Cache       *SessionTokenCache
	// Client performs the token exchange. Defaults to a plain client.
	Client *http.Client

	TokenURL string
	Endpoint string
}

func (CopilotAdapter) ProviderID() string {
	return config.ProviderCopilot
}

func (a CopilotAdapter) Target(ctx context.Context, channel config.Channel, model config.Model) (Target, error) {
	oauth, err := a.oauthToken(channel)
	if err != nil {
		return Target{}, err
	}
	session, err := a.SessionToken(ctx, oauth)
	if err != nil {
		return Target{}, err
	}

	endpoint := NormalizeEndpoint(channel.Endpoint)
	if endpoint == "" {
		endpoint = NormalizeEndpoint(a.Endpoint)
	}
	if endpoint == "" {
		endpoint = CopilotAPIEndpoint
	}

	headers := baseHeaders()
	headers.Set("Authorization", "Bearer "+session.Token)
	headers.Set("Copilot-Integration-Id", copilotIntegrationID)
	headers.Set("Editor-Version", copilotEditorVersion)

	name := model.UpstreamName()
	return Target{
		ChannelID: channel.ID,
		Model:     name,
		Endpoint:  endpoint,
		Headers:   headers,
		Dialect:   dialectFor(name),
	}, nil
}

// SessionToken serves from the cache when the entry has enough validity left
// and otherwise exchanges oauth for a fresh token.
func (a CopilotAdapter) SessionToken(ctx context.Context, oauth string) (SessionToken, error) {
	if a.Cache != nil {
		if token, ok := a.Cache.Get(oauth); ok {
			return token, nil
		}
	}

	url := a.TokenURL
	if url == "" {
		url = CopilotTokenURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SessionToken{}, errs.Configuration("build token request: %v", err)
	}
	req.Header.Set("Authorization", "token "+oauth)
	req.Header.Set("User-Agent", copilotTokenUserAgent)
	req.Header.Set("Editor-Version", copilotEditorVersion)
	req.Header.Set("Accept", "application/json")

	body, err := doJSON(a.httpClient(), req)
	if err != nil {
		return SessionToken{}, err
	}

	token := gjson.GetBytes(body, "token").String()
	expires := gjson.GetBytes(body, "expires_at")
	if token == "" || !expires.Exists() {
		return SessionToken{}, errs.Upstream(0, "copilot token response missing token or expires_at")
	}
	session := SessionToken{
		Token:     token,
		ExpiresAt: time.Unix(expires.Int(), 0),
	}
	if a.Cache != nil {
		a.Cache.Put(oauth, session)
	}
	log.Debugf("provider: refreshed copilot session token, expires %s", session.ExpiresAt.Format(time.RFC3339))
	return session, nil
}

func (a CopilotAdapter) ListModels(ctx context.Context, channel config.Channel, client *http.Client) ([]string, error) {
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
		kind := item.Get("capabilities.type").String()
		if kind == "" {
			kind = item.Get("type").String()
		}
		if kind != "chat" || !item.Get("model_picker_enabled").Bool() {
			return true
		}
		if id := item.Get("id").String(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	sort.Strings(ids)
	return ids, nil
}

func (a CopilotAdapter) oauthToken(channel config.Channel) (string, error) {
	if key := strings.TrimSpace(channel.APIKey); key != "" {
		return key, nil
	}
	if a.Credentials != nil {
		token, err := a.Credentials.Credential(channel.ID)
		if err != nil {
			return "", err
		}
		if token = strings.TrimSpace(token); token != "" {
			return token, nil
		}
	}
	return "", errs.Configuration("channel %q is not signed in; run `reshai login %s`", channel.ID, channel.ID)
}

func (a CopilotAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}
