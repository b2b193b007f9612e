package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PlatformCredentials are the operator-owned credential bundles shared by
// tenants that have not brought their own.
type PlatformCredentials struct {
	Messaging PlatformMessaging `mapstructure:"messaging"`
	AI        PlatformAI        `mapstructure:"ai"`
	Payment   PlatformPayment   `mapstructure:"payment"`
}

type PlatformMessaging struct {
	Provider   string `mapstructure:"provider"`
	BaseURL    string `mapstructure:"baseURL"`
	AccountSID string `mapstructure:"accountSID"`
	AuthToken  string `mapstructure:"authToken"`
	FromNumber string `mapstructure:"fromNumber"`
}

type PlatformAI struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"baseURL"`
	APIKey   string `mapstructure:"apiKey"`
	Model    string `mapstructure:"model"`
}

type PlatformPayment struct {
	Provider  string `mapstructure:"provider"`
	SecretKey string `mapstructure:"secretKey"`
	Currency  string `mapstructure:"currency"`
}

func DefaultPlatformCredentials() PlatformCredentials {
	return PlatformCredentials{
		Messaging: PlatformMessaging{Provider: "gateway"},
		AI:        PlatformAI{Provider: "completion", Model: "default"},
		Payment:   PlatformPayment{Provider: "stripe", Currency: "usd"},
	}
}

type PlatformCredentialsHolder struct {
	current atomic.Value // holds PlatformCredentials
}

// NewStaticPlatformCredentials returns a holder that never reloads.
func NewStaticPlatformCredentials(creds PlatformCredentials) *PlatformCredentialsHolder {
	holder := &PlatformCredentialsHolder{}
	holder.current.Store(creds)
	return holder
}

func NewPlatformCredentialsHolder(cfg Config) (*PlatformCredentialsHolder, error) {
	v := viper.New()

	if cfg.PlatformConfigPath != "" {
		v.SetConfigFile(cfg.PlatformConfigPath)
	} else {
		v.SetConfigName("platform")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/staydesk")
		v.AddConfigPath(".")
	}

	// STAYDESK_PLATFORM_AI_APIKEY overrides platform.ai.apiKey
	v.SetEnvPrefix("STAYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPlatformCredentials()
	v.SetDefault("platform.messaging.provider", defaults.Messaging.Provider)
	v.SetDefault("platform.ai.provider", defaults.AI.Provider)
	v.SetDefault("platform.ai.model", defaults.AI.Model)
	v.SetDefault("platform.payment.provider", defaults.Payment.Provider)
	v.SetDefault("platform.payment.currency", defaults.Payment.Currency)
	for _, key := range []string{
		"platform.messaging.baseURL",
		"platform.messaging.accountSID",
		"platform.messaging.authToken",
		"platform.messaging.fromNumber",
		"platform.ai.baseURL",
		"platform.ai.apiKey",
		"platform.payment.secretKey",
	} {
		_ = v.BindEnv(key)
	}

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	creds, err := unmarshalPlatform(v)
	if err != nil {
		return nil, err
	}
	if err := validatePlatformCredentials(creds); err != nil {
		return nil, err
	}

	holder := NewStaticPlatformCredentials(creds)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalPlatform(v)
			if err != nil {
				log.Printf("[platform-config] reload failed: %v", err)
				return
			}
			if err := validatePlatformCredentials(updated); err != nil {
				log.Printf("[platform-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[platform-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// unmarshalPlatform goes through AllSettings so env-bound keys override the file.
func unmarshalPlatform(v *viper.Viper) (PlatformCredentials, error) {
	var root struct {
		Platform PlatformCredentials `mapstructure:"platform"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return PlatformCredentials{}, err
	}
	return root.Platform, nil
}

func (h *PlatformCredentialsHolder) Get() PlatformCredentials {
	return h.current.Load().(PlatformCredentials)
}

func validatePlatformCredentials(creds PlatformCredentials) error {
	if strings.TrimSpace(creds.Messaging.Provider) == "" {
		return errors.New("platform.messaging.provider cannot be empty")
	}
	if strings.TrimSpace(creds.AI.Provider) == "" {
		return errors.New("platform.ai.provider cannot be empty")
	}
	if strings.TrimSpace(creds.Payment.Provider) == "" {
		return errors.New("platform.payment.provider cannot be empty")
	}
	return nil
}
