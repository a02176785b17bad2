package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tebeka/selenium"

	"github.com/petfinder/e2e-harness/framework/helpers"
)

const (
	screenshotTimeFormat = "20060102-150405.000"
	waitPollInterval     = 250 * time.Millisecond
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`) //nolint:gochecknoglobals

// Session is an automation session for one worker.
type Session struct {
	Kind      PlatformKind
	CreatedAt time.Time
	Driver    selenium.WebDriver
}

// Open navigates to a URL. On mobile platforms this is a deep link.
func (s *Session) Open(url string) error {
	return s.Driver.Get(url)
}

// IsVisible reports whether an element matching the locator is displayed, waiting up to the
// timeout for it to appear. An element that is missing is simply not visible.
func (s *Session) IsVisible(by, value string, timeout time.Duration) bool {
	return helpers.PollUntil(context.Background(), waitPollInterval, timeout, func(context.Context) bool {
		el, err := s.Driver.FindElement(by, value)
		if err != nil {
			return false
		}
		displayed, err := el.IsDisplayed()
		return err == nil && displayed
	})
}

// WaitUntil polls the condition until it returns true. If it does not within the timeout, the
// error is an *ElementWaitTimeout.
func (s *Session) WaitUntil(description string, condition selenium.Condition, timeout time.Duration) error {
	var lastErr error
	ok := helpers.PollUntil(context.Background(), waitPollInterval, timeout, func(context.Context) bool {
		var done bool
		done, lastErr = condition(s.Driver)
		return done && lastErr == nil
	})
	if ok {
		return nil
	}
	return &ElementWaitTimeout{Description: description, Timeout: timeout, LastErr: lastErr}
}

// Screenshot saves a PNG screenshot in dir and returns its path. The file name is the label
// followed by a timestamp.
func (s *Session) Screenshot(dir, label string) (string, error) {
	data, err := s.Driver.Screenshot()
	if err != nil {
		return "", fmt.Errorf("cannot take screenshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.png", screenshotLabel(label), time.Now().Format(screenshotTimeFormat))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return "", err
	}
	return path, nil
}

func screenshotLabel(label string) string {
	s := unsafeFilenameChars.ReplaceAllString(label, "_")
	if s == "" || s == "_" {
		return "screenshot"
	}
	return s
}
