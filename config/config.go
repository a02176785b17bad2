// Package config reads the harness configuration. Every option has a default and can be
// overridden by an environment variable named PETFINDER_ followed by the option key in upper
// case with dots replaced by underscores, for instance PETFINDER_BACKEND_URL.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PETFINDER"

// Config is the complete set of recognized options.
type Config struct {
	WebDriver        WebDriverConfig `mapstructure:"webdriver"`
	Appium           AppiumConfig    `mapstructure:"appium"`
	Android          MobileConfig    `mapstructure:"android"`
	IOS              MobileConfig    `mapstructure:"ios"`
	Backend          BackendConfig   `mapstructure:"backend"`
	Frontend         FrontendConfig  `mapstructure:"frontend"`
	Timeouts         TimeoutsConfig  `mapstructure:"timeouts"`
	SkipBuild        bool            `mapstructure:"skipbuild"`
	DebugScreenshots bool            `mapstructure:"debugscreenshots"`
	ScreenshotDir    string          `mapstructure:"screenshotdir"`
	DefaultPlatform  string          `mapstructure:"defaultplatform"`
}

type WebDriverConfig struct {
	URL      string `mapstructure:"url"`
	Browser  string `mapstructure:"browser"`
	Headless bool   `mapstructure:"headless"`
}

type AppiumConfig struct {
	URL string `mapstructure:"url"`
}

// MobileConfig describes the device and app binary for one mobile platform.
type MobileConfig struct {
	PlatformVersion string `mapstructure:"platformversion"`
	DeviceName      string `mapstructure:"devicename"`
	App             string `mapstructure:"app"`
	// BuildCommand is split on whitespace; an empty value means the app is never built by the
	// harness.
	BuildCommand string `mapstructure:"buildcommand"`
}

type BackendConfig struct {
	URL        string `mapstructure:"url"`
	AdminToken string `mapstructure:"admintoken"`
	// AdminHeader is the header that carries AdminToken. When it is "Authorization" the token is
	// sent as a bearer token.
	AdminHeader string `mapstructure:"adminheader"`
	Resource    string `mapstructure:"resource"`
	// CredentialField is the response property holding the management credential of a
	// newly created fixture.
	CredentialField string `mapstructure:"credentialfield"`
}

type FrontendConfig struct {
	URL string `mapstructure:"url"`
}

type TimeoutsConfig struct {
	HTTP    time.Duration `mapstructure:"http"`
	Session time.Duration `mapstructure:"session"`
	Element time.Duration `mapstructure:"element"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webdriver.url", "http://localhost:4444/wd/hub")
	v.SetDefault("webdriver.browser", "chrome")
	v.SetDefault("webdriver.headless", true)
	v.SetDefault("appium.url", "http://127.0.0.1:4723")
	v.SetDefault("android.platformversion", "14")
	v.SetDefault("android.devicename", "emulator-5554")
	v.SetDefault("android.app", "")
	v.SetDefault("android.buildcommand", "")
	v.SetDefault("ios.platformversion", "17.0")
	v.SetDefault("ios.devicename", "iPhone 15")
	v.SetDefault("ios.app", "")
	v.SetDefault("ios.buildcommand", "")
	v.SetDefault("backend.url", "http://localhost:8080")
	v.SetDefault("backend.admintoken", "")
	v.SetDefault("backend.adminheader", "Authorization")
	v.SetDefault("backend.resource", "announcements")
	v.SetDefault("backend.credentialfield", "managementPassword")
	v.SetDefault("frontend.url", "http://localhost:3000")
	v.SetDefault("timeouts.http", 10*time.Second)
	v.SetDefault("timeouts.session", 60*time.Second)
	v.SetDefault("timeouts.element", 10*time.Second)
	v.SetDefault("skipbuild", false)
	v.SetDefault("debugscreenshots", false)
	v.SetDefault("screenshotdir", "screenshots")
	v.SetDefault("defaultplatform", "web")
}

// Load builds a Config from defaults and environment variables.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("cannot read configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the options that cannot be meaningfully defaulted.
func (c Config) Validate() error {
	var errs []error
	for name, value := range map[string]string{
		"webdriver.url": c.WebDriver.URL,
		"appium.url":    c.Appium.URL,
		"backend.url":   c.Backend.URL,
		"frontend.url":  c.Frontend.URL,
	} {
		if _, err := url.ParseRequestURI(value); err != nil {
			errs = append(errs, fmt.Errorf("%s is not a valid URL: %q", name, value))
		}
	}
	if c.Backend.Resource == "" {
		errs = append(errs, errors.New("backend.resource must not be empty"))
	}
	if c.Timeouts.HTTP <= 0 || c.Timeouts.Session <= 0 || c.Timeouts.Element <= 0 {
		errs = append(errs, errors.New("all timeouts must be positive"))
	}
	return errors.Join(errs...)
}
