package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tavere/legendgame-go/internal/client"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("LEGEND_SERVER", "http://localhost:3000"),
		Token:     os.Getenv("LEGEND_TOKEN"),
		TokenFile: getEnvOrDefault("LEGEND_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
		Verbose:   false,
	}
}

// TokenStore returns the store backing this config's token file
func (c *Config) TokenStore() *client.FileTokenStore {
	return client.NewFileTokenStore(c.TokenFile)
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}
	tok, err := c.TokenStore().Load()
	if err != nil {
		return err
	}
	c.Token = tok
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token
	return c.TokenStore().Save(token)
}

// SocketURL derives the websocket endpoint from the server URL
func (c *Config) SocketURL() string {
	url := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + "/ws"
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".legendgame/token"
	}
	return filepath.Join(home, ".legendgame", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
