// ABOUTME: Route configuration loaded from router.yaml (defaults, aliases, models)
// ABOUTME: Resolves a route alias into the backend target and behavior flags for a turn
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/harper/local-agent-core/internal/models"
)

// Backend APIs
const (
	APICompletion = "completion"
	APIOpenAI     = "openai"
)

// Response framing modes
const (
	FramingNone    = "none"
	FramingHarmony = "gpt-oss-harmony"
)

// OpResolveRoute tags errors from alias lookup
const OpResolveRoute = "resolve route"

// RouterFileNames are the candidate router files, in lookup order
var RouterFileNames = []string{"router.yaml", "router.example.yaml"}

// ModelConfig describes one backend target
type ModelConfig struct {
	URL       string `yaml:"url"`
	API       string `yaml:"api,omitempty"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// AliasConfig holds per-alias settings. Nil fields inherit from defaults.
type AliasConfig struct {
	Model                     *string  `yaml:"model,omitempty"`
	Format                    *string  `yaml:"format,omitempty"`
	SystemPrompt              *string  `yaml:"system_prompt,omitempty"`
	Speaker                   *string  `yaml:"speaker,omitempty"`
	Stream                    *bool    `yaml:"stream,omitempty"`
	MemoryEnabled             *bool    `yaml:"memory_enabled,omitempty"`
	MemoryTopK                *int     `yaml:"memory_top_k,omitempty"`
	MemoryDomain              *string  `yaml:"memory_domain,omitempty"`
	Orchestrator              *bool    `yaml:"orchestrator,omitempty"`
	InteractiveToolCategories []string `yaml:"interactive_tool_categories,omitempty"`
	ResponseFraming           *string  `yaml:"response_framing,omitempty"`
}

// RouterConfig is the parsed router file
type RouterConfig struct {
	Defaults AliasConfig            `yaml:"defaults"`
	Aliases  map[string]AliasConfig `yaml:"aliases"`
	Models   map[string]ModelConfig `yaml:"models"`
}

// Route is a fully resolved alias
type Route struct {
	Name                       string   `json:"name"`
	Model                      string   `json:"model"`
	BackendURL                 string   `json:"backend_url"`
	BackendAPI                 string   `json:"backend_api"`
	BackendModel               string   `json:"backend_model,omitempty"`
	APIKey                     string   `json:"-"`
	Format                     string   `json:"format"`
	SystemPrompt               string   `json:"system_prompt"`
	Speaker                    string   `json:"speaker"`
	Stream                     bool     `json:"stream"`
	MemoryEnabled              bool     `json:"memory_enabled"`
	MemoryTopK                 int      `json:"memory_top_k"`
	MemoryDomain               string   `json:"memory_domain,omitempty"`
	OrchestrationEnabled       bool     `json:"orchestration_enabled"`
	InteractiveActionAllowlist []string `json:"interactive_action_allowlist,omitempty"`
	ResponseFraming            string   `json:"response_framing"`
}

// ParseRouterConfig parses router YAML
func ParseRouterConfig(data []byte) (*RouterConfig, error) {
	var cfg RouterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing router config: %w", err)
	}
	if len(cfg.Aliases) == 0 {
		return nil, errors.New("router config defines no aliases")
	}
	return &cfg, nil
}

// FindRouterFile returns the first candidate router file present in dir
func FindRouterFile(dir string) (string, error) {
	for _, name := range RouterFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no router configuration found in %s; create router.yaml based on router.example.yaml", dir)
}

// Router resolves aliases against the current router config. Safe for concurrent use.
type Router struct {
	mu   sync.RWMutex
	path string
	cfg  *RouterConfig
}

// NewRouter wraps an already parsed config (no backing file)
func NewRouter(cfg *RouterConfig) *Router {
	return &Router{cfg: cfg}
}

// LoadRouter reads and parses the router file at path
func LoadRouter(path string) (*Router, error) {
	r := &Router{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the backing file, or "" for in-memory routers
func (r *Router) Path() string {
	return r.path
}

// Reload re-reads the backing file. On failure the previous config stays active.
func (r *Router) Reload() error {
	if r.path == "" {
		return errors.New("router has no backing file")
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("reading router config: %w", err)
	}
	cfg, err := ParseRouterConfig(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	return nil
}

// Names returns the configured aliases, sorted
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cfg.Aliases))
	for name := range r.cfg.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve merges defaults with the alias' overrides and looks up its backend.
// Every failure is a configuration error.
func (r *Router) Resolve(name string) (Route, error) {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	route, err := resolve(cfg, name)
	if err != nil {
		return Route{}, models.NewError(models.KindConfiguration, OpResolveRoute, err)
	}
	return route, nil
}

func resolve(cfg *RouterConfig, name string) (Route, error) {
	override, ok := cfg.Aliases[name]
	if !ok {
		return Route{}, fmt.Errorf("unknown alias %q", name)
	}
	merged := mergeAlias(cfg.Defaults, override)

	modelKey := deref(merged.Model, "")
	if modelKey == "" {
		return Route{}, fmt.Errorf("alias %q does not define or inherit a 'model' key", name)
	}
	model, ok := cfg.Models[modelKey]
	if !ok || model.URL == "" {
		return Route{}, fmt.Errorf("model key %q not found in router config", modelKey)
	}

	api := model.API
	if api == "" {
		api = APICompletion
	}
	url := strings.TrimRight(model.URL, "/")
	switch api {
	case APICompletion:
		if !strings.HasSuffix(url, "/completion") {
			url += "/completion"
		}
	case APIOpenAI:
	default:
		return Route{}, fmt.Errorf("model %q: unknown backend api %q", modelKey, api)
	}

	format := deref(merged.Format, "llama-chat")
	framing := deref(merged.ResponseFraming, "")
	if framing == "" {
		framing = FramingNone
		if format == FramingHarmony {
			framing = FramingHarmony
		}
	}
	if framing != FramingNone && framing != FramingHarmony {
		return Route{}, fmt.Errorf("alias %q: unknown response framing %q", name, framing)
	}

	var apiKey string
	if model.APIKeyEnv != "" {
		apiKey = os.Getenv(model.APIKeyEnv)
	}

	return Route{
		Name:                       name,
		Model:                      modelKey,
		BackendURL:                 url,
		BackendAPI:                 api,
		BackendModel:               model.Model,
		APIKey:                     apiKey,
		Format:                     format,
		SystemPrompt:               deref(merged.SystemPrompt, ""),
		Speaker:                    deref(merged.Speaker, "default"),
		Stream:                     deref(merged.Stream, false),
		MemoryEnabled:              deref(merged.MemoryEnabled, false),
		MemoryTopK:                 deref(merged.MemoryTopK, 0),
		MemoryDomain:               deref(merged.MemoryDomain, ""),
		OrchestrationEnabled:       deref(merged.Orchestrator, false),
		InteractiveActionAllowlist: append([]string(nil), merged.InteractiveToolCategories...),
		ResponseFraming:            framing,
	}, nil
}

func mergeAlias(base, override AliasConfig) AliasConfig {
	out := base
	if override.Model != nil {
		out.Model = override.Model
	}
	if override.Format != nil {
		out.Format = override.Format
	}
	if override.SystemPrompt != nil {
		out.SystemPrompt = override.SystemPrompt
	}
	if override.Speaker != nil {
		out.Speaker = override.Speaker
	}
	if override.Stream != nil {
		out.Stream = override.Stream
	}
	if override.MemoryEnabled != nil {
		out.MemoryEnabled = override.MemoryEnabled
	}
	if override.MemoryTopK != nil {
		out.MemoryTopK = override.MemoryTopK
	}
	if override.MemoryDomain != nil {
		out.MemoryDomain = override.MemoryDomain
	}
	if override.Orchestrator != nil {
		out.Orchestrator = override.Orchestrator
	}
	if override.InteractiveToolCategories != nil {
		out.InteractiveToolCategories = override.InteractiveToolCategories
	}
	if override.ResponseFraming != nil {
		out.ResponseFraming = override.ResponseFraming
	}
	return out
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
