package session

import (
	"errors"
	"strings"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/petfinder/e2e-harness/config"
)

// capabilitiesFor returns the capabilities for a new session on the given platform, and the
// URL of the server that creates it.
func capabilitiesFor(cfg config.Config, kind PlatformKind) (selenium.Capabilities, string, error) {
	switch kind {
	case Web:
		return webCapabilities(cfg.WebDriver), cfg.WebDriver.URL, nil
	case Android:
		caps, err := mobileCapabilities(cfg.Android, "Android", "UiAutomator2")
		return caps, cfg.Appium.URL, err
	case IOS:
		caps, err := mobileCapabilities(cfg.IOS, "iOS", "XCUITest")
		return caps, cfg.Appium.URL, err
	default:
		return nil, "", errors.New("unknown platform")
	}
}

func webCapabilities(wd config.WebDriverConfig) selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": wd.Browser}
	switch strings.ToLower(wd.Browser) {
	case "chrome":
		args := []string{"--window-size=1280,1024", "--no-sandbox"}
		if wd.Headless {
			args = append(args, "--headless=new")
		}
		caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
	case "firefox":
		var args []string
		if wd.Headless {
			args = append(args, "-headless")
		}
		caps.AddFirefox(firefox.Capabilities{Args: args})
	}
	return caps
}

// Appium only accepts its own capabilities with the "appium:" vendor prefix.
func mobileCapabilities(m config.MobileConfig, platformName, automationName string) (selenium.Capabilities, error) {
	if m.App == "" {
		return nil, errors.New("no app path is configured")
	}
	return selenium.Capabilities{
		"platformName":             platformName,
		"appium:automationName":    automationName,
		"appium:platformVersion":   m.PlatformVersion,
		"appium:deviceName":        m.DeviceName,
		"appium:app":               m.App,
		"appium:newCommandTimeout": 300,
	}, nil
}
