package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/credstore"
	"github.com/jbonatakis/reshai/internal/provider"
)

func runLogin(channelID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	channel, err := a.cfg.Channel(channelID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch strings.ToLower(strings.TrimSpace(channel.Provider)) {
	case config.ProviderCopilot:
		return loginCopilot(ctx, a, channel)
	default:
		return loginAPIKey(a, channel)
	}
}

func loginCopilot(ctx context.Context, a *app, channel config.Channel) error {
	_, client, err := a.resolver.Adapter(channel)
	if err != nil {
		return err
	}
	flow := provider.NewDeviceFlow(client)

	code, err := flow.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Open %s and enter the code %s\n", code.VerificationURI, code.UserCode)
	fmt.Fprintln(os.Stdout, "Waiting for authorization...")

	token, err := flow.Wait(ctx, code)
	if err != nil {
		return err
	}
	if err := a.creds.Put(channel.ID, credstore.KindOAuth, token); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "logged in to %s\n", channel.ID)
	return nil
}

func loginAPIKey(a *app, channel config.Channel) error {
	if channel.APIKey != "" {
		fmt.Fprintf(os.Stdout, "note: channel %s has an apiKey in config; it takes precedence over the stored key\n", channel.ID)
	}
	key, err := promptSecret(fmt.Sprintf("API key for %s", channel.ID))
	if err != nil {
		return err
	}
	if key == "" {
		return errors.New("no API key entered")
	}
	if err := a.creds.Put(channel.ID, credstore.KindAPIKey, key); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "stored API key for %s\n", channel.ID)
	return nil
}

func runLogout(channelID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	_, ok, err := a.creds.Get(channelID)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(os.Stdout, "no stored credential for %s\n", channelID)
		return nil
	}
	if err := a.creds.Delete(channelID); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "removed credential for %s\n", channelID)
	return nil
}
