package config

type ConfigSource string

const (
	ConfigSourceLocal   ConfigSource = "local"
	ConfigSourceGlobal  ConfigSource = "global"
	ConfigSourceDefault ConfigSource = "default"
)

type LayerWarningKind string

const (
	LayerWarningInvalidJSON       LayerWarningKind = "invalid_json"
	LayerWarningUnsupportedSchema LayerWarningKind = "unsupported_schema"
)

type OptionWarningKind string

const (
	OptionWarningOutOfRange   OptionWarningKind = "out_of_range"
	OptionWarningInvalidValue OptionWarningKind = "invalid_value"
)

type LayerWarning struct {
	Source ConfigSource
	Kind   LayerWarningKind
}

type OptionWarning struct {
	Source     ConfigSource
	KeyPath    string
	Kind       OptionWarningKind
	ClampedInt *int
}

type AppliedOption struct {
	Value  RawOptionValue
	Source ConfigSource
}

type SettingsLayer struct {
	Available bool
	Path      string
	Present   bool
	Values    map[string]RawOptionValue
}

type SettingsResolution struct {
	Project        SettingsLayer
	Global         SettingsLayer
	Applied        map[string]AppliedOption
	OptionWarnings []OptionWarning
	LayerWarnings  []LayerWarning
}

// ResolveSettings loads local/global config values and computes applied values with warnings.
func ResolveSettings(projectRoot string) (SettingsResolution, error) {
	projectLayer := SettingsLayer{
		Available: projectRoot != "",
		Path:      projectConfigPath(projectRoot),
		Values:    map[string]RawOptionValue{},
	}
	globalLayer := SettingsLayer{
		Values: map[string]RawOptionValue{},
	}

	var layerWarnings []LayerWarning
	var projectRaw RawConfig
	var globalRaw RawConfig

	if projectLayer.Available {
		cfg, present, warningKind, err := loadConfigFileDetailed(projectLayer.Path)
		if err != nil {
			return SettingsResolution{}, err
		}
		if warningKind != nil {
			layerWarnings = append(layerWarnings, LayerWarning{
				Source: ConfigSourceLocal,
				Kind:   *warningKind,
			})
		} else if present {
			projectLayer.Present = true
			projectLayer.Values = RawOptionValues(cfg)
			projectRaw = cfg
		}
	}

	globalPath, globalAvailable := globalConfigPath()
	globalLayer.Available = globalAvailable
	globalLayer.Path = globalPath
	if globalAvailable {
		cfg, present, warningKind, err := loadConfigFileDetailed(globalPath)
		if err != nil {
			return SettingsResolution{}, err
		}
		if warningKind != nil {
			layerWarnings = append(layerWarnings, LayerWarning{
				Source: ConfigSourceGlobal,
				Kind:   *warningKind,
			})
		} else if present {
			globalLayer.Present = true
			globalLayer.Values = RawOptionValues(cfg)
			globalRaw = cfg
		}
	}

	resolvedValues := ResolvedOptionValues(ResolveConfig(projectRaw, globalRaw))

	applied := map[string]AppliedOption{}
	for _, option := range OptionRegistry() {
		key := option.KeyPath
		value, ok := resolvedValues[key]
		if !ok {
			value = defaultOptionValue(option)
		}
		source := ConfigSourceDefault
		if _, ok := projectLayer.Values[key]; ok {
			source = ConfigSourceLocal
		} else if _, ok := globalLayer.Values[key]; ok {
			source = ConfigSourceGlobal
		}
		applied[key] = AppliedOption{
			Value:  value,
			Source: source,
		}
	}

	optionWarnings := append(
		collectOptionWarnings(ConfigSourceLocal, projectLayer.Values),
		collectOptionWarnings(ConfigSourceGlobal, globalLayer.Values)...,
	)

	return SettingsResolution{
		Project:        projectLayer,
		Global:         globalLayer,
		Applied:        applied,
		OptionWarnings: optionWarnings,
		LayerWarnings:  layerWarnings,
	}, nil
}

func ResolvedOptionValues(cfg ResolvedConfig) map[string]RawOptionValue {
	return map[string]RawOptionValue{
		keyAIMode:               {String: copyString(cfg.AI.Mode)},
		keyAIMaxHistory:         {Int: copyInt(cfg.AI.MaxHistory)},
		keyAIDefaultModel:       {String: copyString(cfg.AI.DefaultModel)},
		keyAIAdditionalPrompt:   {String: copyString(cfg.AI.AdditionalPrompt)},
		keyAIToolTimeoutSeconds: {Int: copyInt(cfg.AI.ToolTimeoutSeconds)},
		keyLogDebug:             {Bool: copyBool(cfg.Log.Debug)},
		keyLogRetentionDays:     {Int: copyInt(cfg.Log.RetentionDays)},
		keyTraceEnabled:         {Bool: copyBool(cfg.Trace.Enabled)},
		keyTraceMaxSizeMB:       {Int: copyInt(cfg.Trace.MaxSizeMB)},
		keyStorageDir:           {String: copyString(cfg.Storage.Dir)},
	}
}

func defaultOptionValue(option OptionMetadata) RawOptionValue {
	switch option.Type {
	case OptionTypeInt:
		return RawOptionValue{Int: copyInt(option.DefaultInt)}
	case OptionTypeBool:
		return RawOptionValue{Bool: copyBool(option.DefaultBool)}
	default:
		return RawOptionValue{String: copyString(option.DefaultString)}
	}
}

func collectOptionWarnings(source ConfigSource, values map[string]RawOptionValue) []OptionWarning {
	warnings := []OptionWarning{}
	for _, option := range OptionRegistry() {
		value, ok := values[option.KeyPath]
		if !ok {
			continue
		}
		if value.Int != nil && option.Bounds != nil {
			clamped := clampInt(*value.Int, option.Bounds.Min, option.Bounds.Max)
			if clamped != *value.Int {
				warnings = append(warnings, OptionWarning{
					Source:     source,
					KeyPath:    option.KeyPath,
					Kind:       OptionWarningOutOfRange,
					ClampedInt: copyInt(clamped),
				})
			}
		}
		if value.String != nil && option.KeyPath == keyAIMode && !ValidMode(*value.String) {
			warnings = append(warnings, OptionWarning{
				Source:  source,
				KeyPath: option.KeyPath,
				Kind:    OptionWarningInvalidValue,
			})
		}
	}
	return warnings
}
