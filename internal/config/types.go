package config

const (
	SchemaVersion = 1

	ProviderOpenAI  = "openai"
	ProviderCopilot = "copilot"

	ProxyTypeHTTP   = "http"
	ProxyTypeSOCKS5 = "socks5"

	ModeAsk   = "ask"
	ModeAgent = "agent"

	DefaultMode                  = ModeAgent
	DefaultMaxHistory            = 20
	DefaultToolTimeoutSeconds    = 30
	DefaultConnectTimeoutSeconds = 10
	DefaultRequestTimeoutSeconds = 120
	DefaultLogDebug              = false
	DefaultTraceEnabled          = false
	DefaultTraceMaxSizeMB        = 10
	DefaultLogRetentionDays      = 7

	MinMaxHistory            = 1
	MaxMaxHistory            = 500
	MinToolTimeoutSeconds    = 1
	MaxToolTimeoutSeconds    = 3600
	MinTraceMaxSizeMB        = 1
	MaxTraceMaxSizeMB        = 1024
	MinLogRetentionDays      = 1
	MaxLogRetentionDays      = 365
	MinTimeoutSeconds        = 1
	MaxRequestTimeoutSeconds = 3600
)

// Channel is an upstream provider account.
type Channel struct {
	ID                    string `json:"id"`
	Name                  string `json:"name,omitempty"`
	Provider              string `json:"provider"`
	Endpoint              string `json:"endpoint,omitempty"`
	APIKey                string `json:"apiKey,omitempty"`
	ProxyID               string `json:"proxyId,omitempty"`
	ConnectTimeoutSeconds int    `json:"connectTimeoutSeconds,omitempty"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds,omitempty"`
}

// Model maps a model id to the channel that serves it. Name is the upstream
// model name; when empty the id is sent.
type Model struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	ChannelID string `json:"channelId"`
}

func (m Model) UpstreamName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

type Proxy struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	IgnoreSSL bool   `json:"ignoreSSL,omitempty"`
}

type RawConfig struct {
	SchemaVersion *int        `json:"schemaVersion,omitempty"`
	Channels      []Channel   `json:"channels,omitempty"`
	Models        []Model     `json:"models,omitempty"`
	Proxies       []Proxy     `json:"proxies,omitempty"`
	AI            *RawAI      `json:"ai,omitempty"`
	Log           *RawLog     `json:"log,omitempty"`
	Trace         *RawTrace   `json:"trace,omitempty"`
	Storage       *RawStorage `json:"storage,omitempty"`
}

type RawAI struct {
	Mode               *string `json:"mode,omitempty"`
	MaxHistory         *int    `json:"maxHistory,omitempty"`
	DefaultModel       *string `json:"defaultModel,omitempty"`
	AdditionalPrompt   *string `json:"additionalPrompt,omitempty"`
	ToolTimeoutSeconds *int    `json:"toolTimeoutSeconds,omitempty"`
}

type RawLog struct {
	Debug         *bool `json:"debug,omitempty"`
	RetentionDays *int  `json:"retentionDays,omitempty"`
}

type RawTrace struct {
	Enabled   *bool `json:"enabled,omitempty"`
	MaxSizeMB *int  `json:"maxSizeMB,omitempty"`
}

type RawStorage struct {
	Dir *string `json:"dir,omitempty"`
}

type ResolvedConfig struct {
	SchemaVersion int             `json:"schemaVersion"`
	Channels      []Channel       `json:"channels"`
	Models        []Model         `json:"models"`
	Proxies       []Proxy         `json:"proxies"`
	AI            ResolvedAI      `json:"ai"`
	Log           ResolvedLog     `json:"log"`
	Trace         ResolvedTrace   `json:"trace"`
	Storage       ResolvedStorage `json:"storage"`
}

type ResolvedAI struct {
	Mode               string `json:"mode"`
	MaxHistory         int    `json:"maxHistory"`
	DefaultModel       string `json:"defaultModel"`
	AdditionalPrompt   string `json:"additionalPrompt"`
	ToolTimeoutSeconds int    `json:"toolTimeoutSeconds"`
}

type ResolvedLog struct {
	Debug         bool `json:"debug"`
	RetentionDays int  `json:"retentionDays"`
}

type ResolvedTrace struct {
	Enabled   bool `json:"enabled"`
	MaxSizeMB int  `json:"maxSizeMB"`
}

type ResolvedStorage struct {
	// Dir is empty when it should default to the per-user data directory.
	Dir string `json:"dir"`
}

func DefaultResolvedConfig() ResolvedConfig {
	return ResolvedConfig{
		SchemaVersion: SchemaVersion,
		AI: ResolvedAI{
			Mode:               DefaultMode,
			MaxHistory:         DefaultMaxHistory,
			ToolTimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		Log: ResolvedLog{
			Debug:         DefaultLogDebug,
			RetentionDays: DefaultLogRetentionDays,
		},
		Trace: ResolvedTrace{
			Enabled:   DefaultTraceEnabled,
			MaxSizeMB: DefaultTraceMaxSizeMB,
		},
	}
}
