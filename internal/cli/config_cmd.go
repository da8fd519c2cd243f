package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jbonatakis/reshai/internal/config"
)

func runConfig(args []string) error {
	if len(args) == 0 {
		return UsageError{Message: "config requires a subcommand: list|get|set|unset"}
	}

	switch args[0] {
	case "list":
		if len(args) != 1 {
			return UsageError{Message: "config list takes no arguments"}
		}
		return runConfigList()
	case "get":
		if len(args) != 2 {
			return UsageError{Message: "config get requires exactly 1 argument: <key>"}
		}
		return runConfigGet(args[1])
	case "set":
		return runConfigSet(args[1:], false)
	case "unset":
		return runConfigSet(args[1:], true)
	default:
		return UsageError{Message: fmt.Sprintf("unknown config subcommand: %q", args[0])}
	}
}

func runConfigList() error {
	res, err := config.ResolveSettings(projectRoot())
	if err != nil {
		return err
	}
	printSettingsWarnings(res)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, option := range config.OptionRegistry() {
		applied := res.Applied[option.KeyPath]
		value := applied.Value.Display()
		if value == "" {
			value = `""`
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", option.KeyPath, value, applied.Source)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(projectRoot())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nchannels: %s\n", joinIDs(len(cfg.Channels), func(i int) string {
		return cfg.Channels[i].ID + " (" + cfg.Channels[i].Provider + ")"
	}))
	fmt.Fprintf(os.Stdout, "models:   %s\n", joinIDs(len(cfg.Models), func(i int) string {
		return cfg.Models[i].ID + " -> " + cfg.Models[i].ChannelID
	}))
	fmt.Fprintf(os.Stdout, "proxies:  %s\n", joinIDs(len(cfg.Proxies), func(i int) string {
		return cfg.Proxies[i].ID
	}))
	return nil
}

func joinIDs(n int, label func(int) string) string {
	if n == 0 {
		return "(none)"
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, label(i))
	}
	return strings.Join(parts, ", ")
}

func printSettingsWarnings(res config.SettingsResolution) {
	for _, w := range res.LayerWarnings {
		fmt.Fprintf(os.Stderr, "warning: %s config ignored (%s)\n", w.Source, w.Kind)
	}
	for _, w := range res.OptionWarnings {
		if w.ClampedInt != nil {
			fmt.Fprintf(os.Stderr, "warning: %s %s %s, using %d\n", w.Source, w.KeyPath, w.Kind, *w.ClampedInt)
			continue
		}
		fmt.Fprintf(os.Stderr, "warning: %s %s %s\n", w.Source, w.KeyPath, w.Kind)
	}
}

func runConfigGet(key string) error {
	option, ok := config.LookupOption(key)
	if !ok {
		return UsageError{Message: fmt.Sprintf("unknown config key: %q", key)}
	}
	res, err := config.ResolveSettings(projectRoot())
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, res.Applied[option.KeyPath].Value.Display())
	return nil
}

func runConfigSet(args []string, unset bool) error {
	name := "set"
	if unset {
		name = "unset"
	}
	fs := flag.NewFlagSet("config "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	global := fs.Bool("global", false, "write the user config instead of the project config")

	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	want := 2
	if unset {
		want = 1
	}
	if fs.NArg() != want {
		if unset {
			return UsageError{Message: "config unset requires exactly 1 argument: <key>"}
		}
		return UsageError{Message: "config set requires exactly 2 arguments: <key> <value>"}
	}

	option, ok := config.LookupOption(fs.Arg(0))
	if !ok {
		return UsageError{Message: fmt.Sprintf("unknown config key: %q", fs.Arg(0))}
	}
	var value config.RawOptionValue
	if !unset {
		var err error
		value, err = config.ParseOptionValue(option, fs.Arg(1))
		if err != nil {
			return UsageError{Message: err.Error()}
		}
	}

	path := config.ProjectConfigPath(projectRoot())
	if *global {
		var ok bool
		path, ok = config.GlobalConfigPath()
		if !ok {
			return errors.New("cannot locate the user config: home directory unavailable")
		}
	}
	if path == "" {
		return errors.New("cannot locate the project config: working directory unavailable")
	}

	if err := config.SetOption(path, option.KeyPath, value); err != nil {
		return err
	}
	if unset {
		fmt.Fprintf(os.Stdout, "unset %s in %s\n", option.KeyPath, path)
		return nil
	}
	fmt.Fprintf(os.Stdout, "set %s = %s in %s\n", option.KeyPath, value.Display(), path)
	return nil
}
