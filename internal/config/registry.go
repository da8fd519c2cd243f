package config

type OptionType string

const (
	OptionTypeBool   OptionType = "bool"
	OptionTypeInt    OptionType = "int"
	OptionTypeString OptionType = "string"
)

type IntBounds struct {
	Min int
	Max int
}

type OptionMetadata struct {
	KeyPath       string
	DisplayName   string
	Type          OptionType
	DefaultInt    int
	DefaultBool   bool
	DefaultString string
	Bounds        *IntBounds
	// Choices restricts string options when non-empty.
	Choices     []string
	Description string
}

// OptionRegistry returns the known config options in display order.
func OptionRegistry() []OptionMetadata {
	defaults := DefaultResolvedConfig()

	return []OptionMetadata{
		newStringOption(
			keyAIMode,
			"Conversation Mode",
			defaults.AI.Mode,
			[]string{ModeAsk, ModeAgent},
			"ask reads terminal output only; agent may also run commands",
		),
		newIntOption(
			keyAIMaxHistory,
			"History Window",
			defaults.AI.MaxHistory,
			MinMaxHistory,
			MaxMaxHistory,
			"Maximum stored messages sent with each request",
		),
		newStringOption(
			keyAIDefaultModel,
			"Default Model",
			defaults.AI.DefaultModel,
			nil,
			"Model id used when none is selected",
		),
		newStringOption(
			keyAIAdditionalPrompt,
			"Additional Prompt",
			defaults.AI.AdditionalPrompt,
			nil,
			"Extra instructions appended to the system prompt",
		),
		newIntOption(
			keyAIToolTimeoutSeconds,
			"Tool Timeout (seconds)",
			defaults.AI.ToolTimeoutSeconds,
			MinToolTimeoutSeconds,
			MaxToolTimeoutSeconds,
			"Default wait for run_in_terminal when the model gives none",
		),
		newBoolOption(
			keyLogDebug,
			"Debug Logging",
			defaults.Log.Debug,
			"Log at debug level",
		),
		newIntOption(
			keyLogRetentionDays,
			"Log Retention (days)",
			defaults.Log.RetentionDays,
			MinLogRetentionDays,
			MaxLogRetentionDays,
			"Days of rolled log files to keep",
		),
		newBoolOption(
			keyTraceEnabled,
			"Wire Trace",
			defaults.Trace.Enabled,
			"Record requests and raw stream frames",
		),
		newIntOption(
			keyTraceMaxSizeMB,
			"Trace Max Size (MB)",
			defaults.Trace.MaxSizeMB,
			MinTraceMaxSizeMB,
			MaxTraceMaxSizeMB,
			"Rotate the trace log past this size",
		),
		newStringOption(
			keyStorageDir,
			"Data Directory",
			defaults.Storage.Dir,
			nil,
			"Directory for history, credentials, logs and traces (default ~/.reshai)",
		),
	}
}

// LookupOption returns the registry entry for keyPath.
func LookupOption(keyPath string) (OptionMetadata, bool) {
	for _, option := range OptionRegistry() {
		if option.KeyPath == keyPath {
			return option, true
		}
	}
	return OptionMetadata{}, false
}

func newIntOption(keyPath string, displayName string, defaultValue int, min int, max int, description string) OptionMetadata {
	return OptionMetadata{
		KeyPath:     keyPath,
		DisplayName: displayName,
		Type:        OptionTypeInt,
		DefaultInt:  defaultValue,
		Bounds: &IntBounds{
			Min: min,
			Max: max,
		},
		Description: description,
	}
}

func newBoolOption(keyPath string, displayName string, defaultValue bool, description string) OptionMetadata {
	return OptionMetadata{
		KeyPath:     keyPath,
		DisplayName: displayName,
		Type:        OptionTypeBool,
		DefaultBool: defaultValue,
		Description: description,
	}
}

func newStringOption(keyPath string, displayName string, defaultValue string, choices []string, description string) OptionMetadata {
	return OptionMetadata{
		KeyPath:       keyPath,
		DisplayName:   displayName,
		Type:          OptionTypeString,
		DefaultString: defaultValue,
		Choices:       choices,
		Description:   description,
	}
}
