package config

import "strings"

// ResolveConfig merges project/global configs with built-in defaults.
// Precedence per key: project > global > defaults, then clamp ints to bounds.
// Channels, models and proxies merge by id; a project entry replaces the
// global entry with the same id.
func ResolveConfig(project RawConfig, global RawConfig) ResolvedConfig {
	defaults := DefaultResolvedConfig()

	mode := resolveMode(
		valueFromAI(project, func(ai RawAI) *string { return ai.Mode }),
		valueFromAI(global, func(ai RawAI) *string { return ai.Mode }),
		defaults.AI.Mode,
	)
	maxHistory := resolveIntWithBounds(
		intFromAI(project, func(ai RawAI) *int { return ai.MaxHistory }),
		intFromAI(global, func(ai RawAI) *int { return ai.MaxHistory }),
		defaults.AI.MaxHistory,
		MinMaxHistory,
		MaxMaxHistory,
	)
	defaultModel := resolveString(
		valueFromAI(project, func(ai RawAI) *string { return ai.DefaultModel }),
		valueFromAI(global, func(ai RawAI) *string { return ai.DefaultModel }),
		defaults.AI.DefaultModel,
	)
	additionalPrompt := resolveString(
		valueFromAI(project, func(ai RawAI) *string { return ai.AdditionalPrompt }),
		valueFromAI(global, func(ai RawAI) *string { return ai.AdditionalPrompt }),
		defaults.AI.AdditionalPrompt,
	)
	toolTimeout := resolveIntWithBounds(
		intFromAI(project, func(ai RawAI) *int { return ai.ToolTimeoutSeconds }),
		intFromAI(global, func(ai RawAI) *int { return ai.ToolTimeoutSeconds }),
		defaults.AI.ToolTimeoutSeconds,
		MinToolTimeoutSeconds,
		MaxToolTimeoutSeconds,
	)

	debug := resolveBool(logDebug(project), logDebug(global), defaults.Log.Debug)
	retention := resolveIntWithBounds(
		logRetention(project),
		logRetention(global),
		defaults.Log.RetentionDays,
		MinLogRetentionDays,
		MaxLogRetentionDays,
	)
	traceEnabled := resolveBool(traceEnabled(project), traceEnabled(global), defaults.Trace.Enabled)
	traceMaxSize := resolveIntWithBounds(
		traceMaxSizeMB(project),
		traceMaxSizeMB(global),
		defaults.Trace.MaxSizeMB,
		MinTraceMaxSizeMB,
		MaxTraceMaxSizeMB,
	)
	storageDir := resolveString(storageDir(project), storageDir(global), defaults.Storage.Dir)

	return ResolvedConfig{
		SchemaVersion: SchemaVersion,
		Channels:      mergeByID(global.Channels, project.Channels, func(c Channel) string { return c.ID }, normalizeChannel),
		Models:        mergeByID(global.Models, project.Models, func(m Model) string { return m.ID }, normalizeModel),
		Proxies:       mergeByID(global.Proxies, project.Proxies, func(p Proxy) string { return p.ID }, normalizeProxy),
		AI: ResolvedAI{
			Mode:               mode,
			MaxHistory:         maxHistory,
			DefaultModel:       defaultModel,
			AdditionalPrompt:   additionalPrompt,
			ToolTimeoutSeconds: toolTimeout,
		},
		Log: ResolvedLog{
			Debug:         debug,
			RetentionDays: retention,
		},
		Trace: ResolvedTrace{
			Enabled:   traceEnabled,
			MaxSizeMB: traceMaxSize,
		},
		Storage: ResolvedStorage{
			Dir: storageDir,
		},
	}
}

func mergeByID[T any](global []T, project []T, id func(T) string, normalize func(T) T) []T {
	out := make([]T, 0, len(global)+len(project))
	index := map[string]int{}
	for _, layer := range [][]T{global, project} {
		for _, item := range layer {
			item = normalize(item)
			key := id(item)
			if key == "" {
				continue
			}
			if pos, ok := index[key]; ok {
				out[pos] = item
				continue
			}
			index[key] = len(out)
			out = append(out, item)
		}
	}
	return out
}

func normalizeChannel(c Channel) Channel {
	c.ID = strings.TrimSpace(c.ID)
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = DefaultConnectTimeoutSeconds
	}
	c.ConnectTimeoutSeconds = clampInt(c.ConnectTimeoutSeconds, MinTimeoutSeconds, MaxRequestTimeoutSeconds)
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	c.RequestTimeoutSeconds = clampInt(c.RequestTimeoutSeconds, MinTimeoutSeconds, MaxRequestTimeoutSeconds)
	return c
}

func normalizeModel(m Model) Model {
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	m.ChannelID = strings.TrimSpace(m.ChannelID)
	return m
}

func normalizeProxy(p Proxy) Proxy {
	p.ID = strings.TrimSpace(p.ID)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	if p.Type == "" {
		p.Type = ProxyTypeHTTP
	}
	p.Host = strings.TrimSpace(p.Host)
	return p
}

func valueFromAI(cfg RawConfig, pick func(RawAI) *string) *string {
	if cfg.AI == nil {
		return nil
	}
	return pick(*cfg.AI)
}

func intFromAI(cfg RawConfig, pick func(RawAI) *int) *int {
	if cfg.AI == nil {
		return nil
	}
	return pick(*cfg.AI)
}

func logDebug(cfg RawConfig) *bool {
	if cfg.Log == nil {
		return nil
	}
	return cfg.Log.Debug
}

func logRetention(cfg RawConfig) *int {
	if cfg.Log == nil {
		return nil
	}
	return cfg.Log.RetentionDays
}

func traceEnabled(cfg RawConfig) *bool {
	if cfg.Trace == nil {
		return nil
	}
	return cfg.Trace.Enabled
}

func traceMaxSizeMB(cfg RawConfig) *int {
	if cfg.Trace == nil {
		return nil
	}
	return cfg.Trace.MaxSizeMB
}

func storageDir(cfg RawConfig) *string {
	if cfg.Storage == nil {
		return nil
	}
	return cfg.Storage.Dir
}

func resolveMode(projectVal *string, globalVal *string, defaultVal string) string {
	if value, ok := normalizeMode(projectVal); ok {
		return value
	}
	if value, ok := normalizeMode(globalVal); ok {
		return value
	}
	return defaultVal
}

func normalizeMode(value *string) (string, bool) {
	if value == nil {
		return "", false
	}
	switch mode := strings.ToLower(strings.TrimSpace(*value)); mode {
	case ModeAsk, ModeAgent:
		return mode, true
	default:
		return "", false
	}
}

// ValidMode reports whether value names a conversation mode.
func ValidMode(value string) bool {
	_, ok := normalizeMode(&value)
	return ok
}

func resolveString(projectVal *string, globalVal *string, defaultVal string) string {
	if value := normalizeString(projectVal); value != "" {
		return value
	}
	if value := normalizeString(globalVal); value != "" {
		return value
	}
	return defaultVal
}

func resolveBool(projectVal *bool, globalVal *bool, defaultVal bool) bool {
	if projectVal != nil {
		return *projectVal
	}
	if globalVal != nil {
		return *globalVal
	}
	return defaultVal
}

func resolveIntWithBounds(projectVal *int, globalVal *int, defaultVal int, min int, max int) int {
	if projectVal != nil {
		return clampInt(*projectVal, min, max)
	}
	if globalVal != nil {
		return clampInt(*globalVal, min, max)
	}
	return clampInt(defaultVal, min, max)
}

func clampInt(value int, min int, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func normalizeString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
