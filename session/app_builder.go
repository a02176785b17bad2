package session

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/alessio/shellescape"

	"github.com/petfinder/e2e-harness/config"
	"github.com/petfinder/e2e-harness/framework"
)

// AppBuilder builds the mobile app binaries before the first mobile session needs them. Each
// platform is built at most once per process; a failed build is not retried, and the same error
// is returned to every later caller.
type AppBuilder struct {
	commands map[PlatformKind][]string
	skip     bool
	logger   framework.Logger
	run      func(ctx context.Context, command []string) ([]byte, error)

	results map[PlatformKind]error
	lock    sync.Mutex
}

// NewAppBuilder creates an AppBuilder from the build commands in the configuration.
func NewAppBuilder(cfg config.Config, logger framework.Logger) *AppBuilder {
	b := &AppBuilder{
		commands: make(map[PlatformKind][]string),
		skip:     cfg.SkipBuild,
		logger:   framework.LoggerWithPrefix(logger, "[build] "),
		run:      runBuildCommand,
		results:  make(map[PlatformKind]error),
	}
	if cmd := strings.Fields(cfg.Android.BuildCommand); len(cmd) > 0 {
		b.commands[Android] = cmd
	}
	if cmd := strings.Fields(cfg.IOS.BuildCommand); len(cmd) > 0 {
		b.commands[IOS] = cmd
	}
	return b
}

// EnsureBuilt builds the app for the platform unless that has already been attempted. It does
// nothing for the web platform, when building is skipped, or when no command is configured.
func (b *AppBuilder) EnsureBuilt(ctx context.Context, kind PlatformKind) error {
	if b == nil || !kind.IsMobile() {
		return nil
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if err, done := b.results[kind]; done {
		return err
	}
	command, ok := b.commands[kind]
	if b.skip || !ok {
		b.results[kind] = nil
		return nil
	}
	b.logger.Printf("Building %s app: %s", kind, shellescape.QuoteCommand(command))
	output, err := b.run(ctx, command)
	if err != nil {
		err = fmt.Errorf("%s app build failed (%s): %w\n%s", kind, shellescape.QuoteCommand(command), err,
			strings.TrimSpace(string(output)))
		b.logger.Println(err)
	} else {
		b.logger.Printf("Built %s app", kind)
	}
	b.results[kind] = err
	return err
}

func runBuildCommand(ctx context.Context, command []string) ([]byte, error) {
	return exec.CommandContext(ctx, command[0], command[1:]...).CombinedOutput() //nolint:gosec
}
