package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jbonatakis/reshai/internal/agent"
	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/credstore"
	"github.com/jbonatakis/reshai/internal/history"
	"github.com/jbonatakis/reshai/internal/logging"
	"github.com/jbonatakis/reshai/internal/provider"
	"github.com/jbonatakis/reshai/internal/terminal"
	"github.com/jbonatakis/reshai/internal/trace"
)

const (
	logDirName   = "logs"
	traceDirName = "trace"
	traceFile    = "upstream.jsonl"
)

// app holds the stores and services shared by the commands.
type app struct {
	cfg      config.ResolvedConfig
	dataDir  string
	logs     io.Closer
	history  *history.Store
	creds    *credstore.Store
	resolver *provider.Resolver
	trace    *trace.Writer
	terminal *terminal.Local
}

func projectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// openApp loads the config and opens everything under the data directory.
// Callers must Close the result.
func openApp() (*app, error) {
	root := projectRoot()
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	dataDir, err := config.DataDir(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dataDir: dataDir}
	a.logs, err = logging.Setup(logging.Options{
		Dir:           filepath.Join(dataDir, logDirName),
		Debug:         cfg.Log.Debug,
		RetentionDays: cfg.Log.RetentionDays,
	})
	if err != nil {
		return nil, err
	}

	a.history, err = history.Open(filepath.Join(dataDir, history.FileName))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.creds, err = credstore.Open(filepath.Join(dataDir, credstore.FileName))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.resolver = provider.NewResolver(cfg, a.creds)

	if cfg.Trace.Enabled {
		a.trace, err = trace.NewWriter(filepath.Join(dataDir, traceDirName, traceFile), trace.Options{
			MaxSizeBytes: int64(cfg.Trace.MaxSizeMB) << 20,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.terminal = terminal.NewLocal(root)
	log.Debugf("cli: data dir %s (trace=%t)", dataDir, cfg.Trace.Enabled)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.trace != nil {
		errs = append(errs, a.trace.Close())
	}
	if a.creds != nil {
		errs = append(errs, a.creds.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

func (a *app) orchestrator() *agent.Orchestrator {
	executor := &agent.Executor{
		Terminal: a.terminal,
		Timeout:  time.Duration(a.cfg.AI.ToolTimeoutSeconds) * time.Second,
	}
	return agent.New(a.history, a.resolver, executor, agent.Options{
		Mode:             agent.Mode(a.cfg.AI.Mode),
		MaxHistory:       a.cfg.AI.MaxHistory,
		AdditionalPrompt: a.cfg.AI.AdditionalPrompt,
		Trace:            a.trace,
	})
}

// chatSession returns the session to chat in, creating one when id is
// empty, and attaches a local terminal to it.
func (a *app) chatSession(id string, modelID string) (history.Session, error) {
	ctx := context.Background()
	var (
		session history.Session
		err     error
	)
	if id == "" {
		session, err = a.history.CreateSession(ctx, history.Session{ModelID: modelID})
	} else {
		session, err = a.history.GetSession(ctx, id)
		if err == nil && modelID != "" && modelID != session.ModelID {
			err = a.history.SetSessionModel(ctx, session.ID, modelID)
			session.ModelID = modelID
		}
	}
	if err != nil {
		return history.Session{}, err
	}

	if session.TerminalSessionID == "" {
		session.TerminalSessionID = "local-" + session.ID
		if err := a.history.LinkTerminal(ctx, session.ID, session.TerminalSessionID); err != nil {
			return history.Session{}, fmt.Errorf("link terminal: %w", err)
		}
	}
	a.terminal.Open(session.TerminalSessionID)
	return session, nil
}
