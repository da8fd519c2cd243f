package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxModelListings bounds concurrent /models requests.
const maxModelListings = 4

type channelModels struct {
	channelID string
	models    []string
	err       error
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	channel := fs.String("channel", "", "list only this channel")

	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	if fs.NArg() != 0 {
		return UsageError{Message: "models takes no positional arguments"}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var ids []string
	if *channel != "" {
		if _, err := a.cfg.Channel(*channel); err != nil {
			return err
		}
		ids = []string{*channel}
	} else {
		for _, c := range a.cfg.Channels {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stdout, "(no channels configured)")
		return nil
	}

	results := listModels(context.Background(), a.resolver, ids)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tMODEL\tCONFIGURED")
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "%s\t(error: %v)\t\n", r.channelID, r.err)
			continue
		}
		configured := configuredModels(a, r.channelID)
		for _, m := range r.models {
			mark := ""
			if id, ok := configured[m]; ok {
				mark = id
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.channelID, m, mark)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed == len(results) {
		return fmt.Errorf("listing models failed for %d channel(s)", failed)
	}
	return nil
}

type modelLister interface {
	ListModels(ctx context.Context, channelID string) ([]string, error)
}

// listModels queries every channel concurrently. A failing channel does not
// stop the others; results keep the order of ids.
func listModels(ctx context.Context, lister modelLister, ids []string) []channelModels {
	results := make([]channelModels, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxModelListings)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			models, err := lister.ListModels(ctx, id)
			if err != nil {
				log.Warnf("models: channel %s: %v", id, err)
			}
			results[i] = channelModels{channelID: id, models: models, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// configuredModels maps upstream model names of channelID to the config
// model ids that point at them.
func configuredModels(a *app, channelID string) map[string]string {
	out := make(map[string]string)
	for _, m := range a.cfg.Models {
		if m.ChannelID != channelID {
			continue
		}
		name := m.UpstreamName()
		if prev, ok := out[name]; ok {
			out[name] = strings.Join([]string{prev, m.ID}, ",")
			continue
		}
		out[name] = m.ID
	}
	return out
}
