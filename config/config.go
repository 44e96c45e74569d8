package config

import (
	"errors"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v2"
)

type SMTPConfig struct {
	// Well-known service name, e.g. `gmail`. Host and Port take precedence.
	Service  string `yaml:"service" env:"MAIL_SERVICE"`
	FromAddr string `yaml:"fromAddr" env:"MAIL_FROM"`
	User     string `yaml:"user" env:"MAIL_SENDER"`
	Password string `yaml:"password" env:"PASS_SENDER"`
	Host     string `yaml:"host" env:"MAIL_HOST"`
	Port     uint16 `yaml:"port" env:"MAIL_PORT"`
	// TLS from the first byte (port 465) instead of STARTTLS
	ImplicitTLS bool `yaml:"implicitTLS"`
}

type TemplateConfig struct {
	// optional HTML document with `id="token"` and `id="user"` elements
	Path    string `yaml:"path"`
	Subject string `yaml:"subject"`
}

type Config struct {
	ListenPort uint16 `yaml:"listenPort" env:"LISTEN_PORT"`
	// How long login tokens stay redeemable
	LoginTokenLifetimeMilliseconds uint64 `yaml:"loginTokenLifetimeMilliseconds"`
	// See SMTPConfig
	SMTP SMTPConfig `yaml:"smtp"`
	// Can be `alpha`, `numeric` or `hex`
	TokenFormat string `yaml:"tokenFormat"`
	TokenLength int    `yaml:"tokenLength"`
	// this will show up in emails
	ServiceName string         `yaml:"serviceName"`
	Template    TemplateConfig `yaml:"template"`
	// where the signing keys are stored
	KeyPath string `yaml:"keyPath"`
	// make this short lived, e.g. 1 hour
	AccessTokenLifetimeSeconds uint64 `yaml:"accessTokenLifetimeSeconds"`
	// make this long lived, e.g. 3 days
	RefreshTokenLifetimeSeconds uint64 `yaml:"refreshTokenLifetimeSeconds"`
	// how long redeemed/expired tokens are remembered by the state journal
	StateRetentionSeconds uint64 `yaml:"stateRetentionSeconds"`
	// 0 means bcrypt.DefaultCost
	BcryptCost int `yaml:"bcryptCost"`
}

func (c Config) Validate() error {
	if c.ListenPort == 0 {
		return errors.New("Invalid listenPort")
	}
	if c.LoginTokenLifetimeMilliseconds == 0 {
		return errors.New("loginTokenLifetimeMilliseconds must be set")
	}
	if !(c.TokenFormat == "alpha" || c.TokenFormat == "numeric" || c.TokenFormat == "hex") {
		return errors.New("tokenFormat not `alpha`, `numeric` or `hex`")
	}
	if c.TokenLength <= 0 || c.TokenLength > 255 {
		return errors.New("tokenLength must be between 1 and 255")
	}
	if len(c.SMTP.FromAddr) == 0 {
		return errors.New("smtp.fromAddr needs to be filled")
	}
	if len(c.SMTP.Service) == 0 && len(c.SMTP.Host) == 0 {
		return errors.New("either smtp.service or smtp.host needs to be filled")
	}
	if len(c.KeyPath) == 0 {
		return errors.New("keyPath needs to be filled")
	}
	if c.AccessTokenLifetimeSeconds == 0 {
		return errors.New("accessTokenLifetimeSeconds must be set")
	}
	if c.RefreshTokenLifetimeSeconds == 0 {
		return errors.New("refreshTokenLifetimeSeconds must be set")
	}
	return nil
}

// ReadConfigFromFile reads the yaml config at path, applies environment
// overrides and validates the result.
func ReadConfigFromFile(path string) (*Config, error) {
	var config Config

	yml, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(yml, &config)
	if err != nil {
		return nil, err
	}
	err = cleanenv.ReadEnv(&config)
	if err != nil {
		return nil, err
	}
	err = config.Validate()
	if err != nil {
		return &config, err
	}
	return &config, nil
}

type Configurable interface {
	GetConfig() *Config
}

func (c *Config) GetConfig() *Config {
	return c
}
