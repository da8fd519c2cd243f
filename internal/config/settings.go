package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	keyAIMode               = "ai.mode"
	keyAIMaxHistory         = "ai.maxHistory"
	keyAIDefaultModel       = "ai.defaultModel"
	keyAIAdditionalPrompt   = "ai.additionalPrompt"
	keyAIToolTimeoutSeconds = "ai.toolTimeoutSeconds"
	keyLogDebug             = "log.debug"
	keyLogRetentionDays     = "log.retentionDays"
	keyTraceEnabled         = "trace.enabled"
	keyTraceMaxSizeMB       = "trace.maxSizeMB"
	keyStorageDir           = "storage.dir"
)

type RawOptionValue struct {
	Int    *int
	Bool   *bool
	String *string
}

func (v RawOptionValue) IsSet() bool {
	return v.Int != nil || v.Bool != nil || v.String != nil
}

// Display renders the value for listings.
func (v RawOptionValue) Display() string {
	switch {
	case v.Int != nil:
		return strconv.Itoa(*v.Int)
	case v.Bool != nil:
		return strconv.FormatBool(*v.Bool)
	case v.String != nil:
		return *v.String
	default:
		return ""
	}
}

type LayerOptionValues struct {
	Present bool
	Values  map[string]RawOptionValue
}

// LoadLayerOptionValues reads project and global configs and returns per-option raw values
// (project first, then global).
func LoadLayerOptionValues(projectRoot string) (LayerOptionValues, LayerOptionValues, error) {
	globalCfg, globalPresent, err := LoadGlobalConfig()
	if err != nil {
		return LayerOptionValues{}, LayerOptionValues{}, err
	}
	projectCfg, projectPresent, err := LoadProjectConfig(projectRoot)
	if err != nil {
		return LayerOptionValues{}, LayerOptionValues{}, err
	}

	project := LayerOptionValues{
		Present: projectPresent,
		Values:  RawOptionValues(projectCfg),
	}
	global := LayerOptionValues{
		Present: globalPresent,
		Values:  RawOptionValues(globalCfg),
	}

	return project, global, nil
}

// RawOptionValues extracts known raw option values from a config layer.
func RawOptionValues(cfg RawConfig) map[string]RawOptionValue {
	values := map[string]RawOptionValue{}

	if ai := cfg.AI; ai != nil {
		putString(values, keyAIMode, ai.Mode)
		putInt(values, keyAIMaxHistory, ai.MaxHistory)
		putString(values, keyAIDefaultModel, ai.DefaultModel)
		putString(values, keyAIAdditionalPrompt, ai.AdditionalPrompt)
		putInt(values, keyAIToolTimeoutSeconds, ai.ToolTimeoutSeconds)
	}
	if cfg.Log != nil {
		putBool(values, keyLogDebug, cfg.Log.Debug)
		putInt(values, keyLogRetentionDays, cfg.Log.RetentionDays)
	}
	if cfg.Trace != nil {
		putBool(values, keyTraceEnabled, cfg.Trace.Enabled)
		putInt(values, keyTraceMaxSizeMB, cfg.Trace.MaxSizeMB)
	}
	if cfg.Storage != nil {
		putString(values, keyStorageDir, cfg.Storage.Dir)
	}

	return values
}

// ParseOptionValue converts command-line text into a typed value for option.
func ParseOptionValue(option OptionMetadata, text string) (RawOptionValue, error) {
	text = strings.TrimSpace(text)
	switch option.Type {
	case OptionTypeInt:
		v, err := strconv.Atoi(text)
		if err != nil {
			return RawOptionValue{}, fmt.Errorf("config key %q expects an integer, got %q", option.KeyPath, text)
		}
		if option.Bounds != nil && (v < option.Bounds.Min || v > option.Bounds.Max) {
			return RawOptionValue{}, fmt.Errorf("config key %q must be between %d and %d", option.KeyPath, option.Bounds.Min, option.Bounds.Max)
		}
		return RawOptionValue{Int: &v}, nil
	case OptionTypeBool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return RawOptionValue{}, fmt.Errorf("config key %q expects true or false, got %q", option.KeyPath, text)
		}
		return RawOptionValue{Bool: &v}, nil
	default:
		if len(option.Choices) > 0 {
			text = strings.ToLower(text)
			if !slices.Contains(option.Choices, text) {
				return RawOptionValue{}, fmt.Errorf("config key %q must be one of %s", option.KeyPath, strings.Join(option.Choices, ", "))
			}
		}
		return RawOptionValue{String: &text}, nil
	}
}

// SetOption writes a single option into the config file at path, keeping the
// other options and the channel, model and proxy lists already in it. A zero
// value removes the key.
func SetOption(path string, key string, value RawOptionValue) error {
	existing, _, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	values := RawOptionValues(existing)
	if value.IsSet() {
		values[key] = value
	} else {
		delete(values, key)
	}
	return saveConfig(path, existing, values)
}

// SaveConfigValues writes the provided raw option values to disk, keeping the
// channel, model and proxy lists already in the file.
// The file includes schemaVersion and only set keys; empty layers remove the file.
func SaveConfigValues(path string, values map[string]RawOptionValue) error {
	existing, _, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	return saveConfig(path, existing, values)
}

func saveConfig(path string, existing RawConfig, values map[string]RawOptionValue) error {
	if path == "" {
		return errors.New("config path is empty")
	}

	cfg, hasValues, err := buildRawConfig(values)
	if err != nil {
		return err
	}
	cfg.Channels = existing.Channels
	cfg.Models = existing.Models
	cfg.Proxies = existing.Proxies
	hasLists := len(cfg.Channels) > 0 || len(cfg.Models) > 0 || len(cfg.Proxies) > 0

	if !hasValues && !hasLists {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove config %s: %w", path, err)
		}
		return nil
	}
	version := SchemaVersion
	cfg.SchemaVersion = &version

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	// Channels may carry API keys.
	if err := atomicWriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func buildRawConfig(values map[string]RawOptionValue) (RawConfig, bool, error) {
	var cfg RawConfig
	var ai RawAI
	var logCfg RawLog
	var trace RawTrace
	var storage RawStorage
	var hasAI, hasLog, hasTrace, hasStorage bool

	for key, value := range values {
		set := 0
		for _, isSet := range []bool{value.Int != nil, value.Bool != nil, value.String != nil} {
			if isSet {
				set++
			}
		}
		if set > 1 {
			return RawConfig{}, false, fmt.Errorf("config key %q has more than one value", key)
		}
		if set == 0 {
			continue
		}

		option, ok := LookupOption(key)
		if !ok {
			return RawConfig{}, false, fmt.Errorf("unknown config key %q", key)
		}
		if err := checkValueType(option, value); err != nil {
			return RawConfig{}, false, err
		}

		switch key {
		case keyAIMode:
			ai.Mode = copyString(*value.String)
			hasAI = true
		case keyAIMaxHistory:
			ai.MaxHistory = copyInt(*value.Int)
			hasAI = true
		case keyAIDefaultModel:
			ai.DefaultModel = copyString(*value.String)
			hasAI = true
		case keyAIAdditionalPrompt:
			ai.AdditionalPrompt = copyString(*value.String)
			hasAI = true
		case keyAIToolTimeoutSeconds:
			ai.ToolTimeoutSeconds = copyInt(*value.Int)
			hasAI = true
		case keyLogDebug:
			logCfg.Debug = copyBool(*value.Bool)
			hasLog = true
		case keyLogRetentionDays:
			logCfg.RetentionDays = copyInt(*value.Int)
			hasLog = true
		case keyTraceEnabled:
			trace.Enabled = copyBool(*value.Bool)
			hasTrace = true
		case keyTraceMaxSizeMB:
			trace.MaxSizeMB = copyInt(*value.Int)
			hasTrace = true
		case keyStorageDir:
			storage.Dir = copyString(*value.String)
			hasStorage = true
		}
	}

	if hasAI {
		cfg.AI = &ai
	}
	if hasLog {
		cfg.Log = &logCfg
	}
	if hasTrace {
		cfg.Trace = &trace
	}
	if hasStorage {
		cfg.Storage = &storage
	}

	return cfg, hasAI || hasLog || hasTrace || hasStorage, nil
}

func checkValueType(option OptionMetadata, value RawOptionValue) error {
	var ok bool
	switch option.Type {
	case OptionTypeInt:
		ok = value.Int != nil
	case OptionTypeBool:
		ok = value.Bool != nil
	case OptionTypeString:
		ok = value.String != nil
	}
	if !ok {
		return fmt.Errorf("config key %q expects %s value", option.KeyPath, option.Type)
	}
	return nil
}

func putInt(values map[string]RawOptionValue, key string, v *int) {
	if v != nil {
		values[key] = RawOptionValue{Int: copyInt(*v)}
	}
}

func putBool(values map[string]RawOptionValue, key string, v *bool) {
	if v != nil {
		values[key] = RawOptionValue{Bool: copyBool(*v)}
	}
}

func putString(values map[string]RawOptionValue, key string, v *string) {
	if v != nil {
		values[key] = RawOptionValue{String: copyString(*v)}
	}
}

func copyInt(v int) *int {
	return &v
}

func copyBool(v bool) *bool {
	return &v
}

func copyString(v string) *string {
	return &v
}
