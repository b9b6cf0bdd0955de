package atlassian

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Credentials is a resolved authenticated session for one vendor instance.
// It is read-only after construction; handlers build one per call from the
// environment plus per-call overrides, so several tenants can coexist.
type Credentials struct {
	BaseURL    string
	AuthHeader string
}

// clientEnvConfig is one entry of a *_CLIENTS_JSON alias map.
type clientEnvConfig struct {
	BaseURL     string `json:"base_url,omitempty"`
	PAT         string `json:"pat,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`
	Email       string `json:"email,omitempty"`
	APIToken    string `json:"api_token,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

var (
	clientsMu   sync.Mutex
	clientsMaps = map[string]map[string]clientEnvConfig{}
)

func loadClientsFromEnv(envPrefix string) map[string]clientEnvConfig {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	if m, ok := clientsMaps[envPrefix]; ok {
		return m
	}
	m := map[string]clientEnvConfig{}
	raw := strings.TrimSpace(os.Getenv(envPrefix + "_CLIENTS_JSON"))
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &m)
	}
	clientsMaps[envPrefix] = m
	return m
}

// ResetClientCacheForTest clears the memoized alias maps so tests can swap
// env configs between cases.
func ResetClientCacheForTest() {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	clientsMaps = map[string]map[string]clientEnvConfig{}
}

// ResolveCredentials resolves base URL and auth header for a vendor from the
// environment. envPrefix is "CONFLUENCE" or "JIRA". clientName selects an
// alias from <PREFIX>_CLIENTS_JSON (falling back to <PREFIX>_DEFAULT_CLIENT);
// baseOverride wins over every configured base URL.
//
// Auth precedence: bearer/PAT, then email+API token, then username+password.
func ResolveCredentials(envPrefix, clientName, baseOverride string) (Credentials, error) {
	clientName = strings.TrimSpace(clientName)
	clients := loadClientsFromEnv(envPrefix)
	if clientName == "" {
		clientName = strings.TrimSpace(os.Getenv(envPrefix + "_DEFAULT_CLIENT"))
	}

	var cfg clientEnvConfig
	var cfgOK bool
	if clientName != "" && len(clients) > 0 {
		cfg, cfgOK = clients[clientName]
	}

	baseURL := strings.TrimSpace(baseOverride)
	if baseURL == "" {
		if cfgOK && strings.TrimSpace(cfg.BaseURL) != "" {
			baseURL = strings.TrimSpace(cfg.BaseURL)
		} else {
			baseURL = strings.TrimSpace(os.Getenv(envPrefix + "_BASE_URL"))
		}
	}
	if baseURL == "" {
		if clientName != "" && !cfgOK {
			return Credentials{}, fmt.Errorf("unknown %s client %q: not found in %s_CLIENTS_JSON", strings.ToLower(envPrefix), clientName, envPrefix)
		}
		return Credentials{}, fmt.Errorf("missing %s base URL: set %s_BASE_URL or configure %s_CLIENTS_JSON", strings.ToLower(envPrefix), envPrefix, envPrefix)
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	bearer := strings.TrimSpace(os.Getenv(envPrefix + "_BEARER_TOKEN"))
	if bearer == "" && cfgOK {
		bearer = strings.TrimSpace(cfg.BearerToken)
	}
	if bearer == "" {
		bearer = strings.TrimSpace(os.Getenv(envPrefix + "_PAT"))
		if bearer == "" && cfgOK {
			bearer = strings.TrimSpace(cfg.PAT)
		}
	}
	if bearer != "" {
		return Credentials{BaseURL: baseURL, AuthHeader: "Bearer " + bearer}, nil
	}

	email := strings.TrimSpace(os.Getenv(envPrefix + "_EMAIL"))
	apiToken := strings.TrimSpace(os.Getenv(envPrefix + "_API_TOKEN"))
	if cfgOK {
		if email == "" {
			email = strings.TrimSpace(cfg.Email)
		}
		if apiToken == "" {
			apiToken = strings.TrimSpace(cfg.APIToken)
		}
	}
	if email != "" && apiToken != "" {
		enc := base64.StdEncoding.EncodeToString([]byte(email + ":" + apiToken))
		return Credentials{BaseURL: baseURL, AuthHeader: "Basic " + enc}, nil
	}

	username := strings.TrimSpace(os.Getenv(envPrefix + "_USERNAME"))
	password := strings.TrimSpace(os.Getenv(envPrefix + "_PASSWORD"))
	if cfgOK {
		if username == "" {
			username = strings.TrimSpace(cfg.Username)
		}
		if password == "" {
			password = strings.TrimSpace(cfg.Password)
		}
	}
	if username != "" && password != "" {
		enc := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		return Credentials{BaseURL: baseURL, AuthHeader: "Basic " + enc}, nil
	}

	if clientName != "" && cfgOK {
		return Credentials{}, fmt.Errorf("missing %s auth for client %q: configure bearer_token/pat or email+api_token in %s_CLIENTS_JSON", strings.ToLower(envPrefix), clientName, envPrefix)
	}
	return Credentials{}, fmt.Errorf("missing %s auth: set %s_PAT/%s_BEARER_TOKEN, or %s_EMAIL + %s_API_TOKEN, or configure %s_CLIENTS_JSON",
		strings.ToLower(envPrefix), envPrefix, envPrefix, envPrefix, envPrefix, envPrefix)
}
