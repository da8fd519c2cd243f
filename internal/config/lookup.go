package config

import (
	"strings"

	"github.com/jbonatakis/reshai/internal/errs"
)

func (c ResolvedConfig) Channel(id string) (Channel, error) {
	id = strings.TrimSpace(id)
	for _, channel := range c.Channels {
		if channel.ID == id {
			return channel, nil
		}
	}
	return Channel{}, errs.Configuration("channel %q not found", id)
}

func (c ResolvedConfig) Model(id string) (Model, error) {
	id = strings.TrimSpace(id)
	for _, model := range c.Models {
		if model.ID == id {
			return model, nil
		}
	}
	return Model{}, errs.Configuration("model %q not found", id)
}

func (c ResolvedConfig) Proxy(id string) (Proxy, error) {
	id = strings.TrimSpace(id)
	for _, proxy := range c.Proxies {
		if proxy.ID == id {
			return proxy, nil
		}
	}
	return Proxy{}, errs.Configuration("proxy %q not found", id)
}

// ModelTarget resolves a model id to the model and the channel serving it.
// An empty id falls back to ai.defaultModel.
func (c ResolvedConfig) ModelTarget(id string) (Model, Channel, error) {
	if strings.TrimSpace(id) == "" {
		id = c.AI.DefaultModel
	}
	if strings.TrimSpace(id) == "" {
		return Model{}, Channel{}, errs.Configuration("no model selected and ai.defaultModel is unset")
	}
	model, err := c.Model(id)
	if err != nil {
		return Model{}, Channel{}, err
	}
	channel, err := c.Channel(model.ChannelID)
	if err != nil {
		return Model{}, Channel{}, errs.Configuration("model %q references unknown channel %q", model.ID, model.ChannelID)
	}
	return model, channel, nil
}

// ChannelProxy returns the proxy configured on channel, or nil when the
// channel connects directly.
func (c ResolvedConfig) ChannelProxy(channel Channel) (*Proxy, error) {
	if strings.TrimSpace(channel.ProxyID) == "" {
		return nil, nil
	}
	proxy, err := c.Proxy(channel.ProxyID)
	if err != nil {
		return nil, errs.Configuration("channel %q references unknown proxy %q", channel.ID, channel.ProxyID)
	}
	return &proxy, nil
}
