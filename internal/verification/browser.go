package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/config"
)

// ErrBrowserClosed is returned by NewPage after Shutdown.
var ErrBrowserClosed = errors.New("browser manager is shut down")

// Manager owns the single shared browser process. It launches lazily, relaunches when
// the handle stops answering, and hands out pages that callers must close.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// NewManager creates a manager; no process is started until the first page is requested.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, logger: logger}
}

// NewPage opens a tab on the shared browser.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	browser, err := m.acquire()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		m.discard(browser)
		return nil, fmt.Errorf("open page: %w", err)
	}
	page = page.Context(ctx)

	if m.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: m.cfg.UserAgent}); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return &rodPage{page: page}, nil
}

func (m *Manager) acquire() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrBrowserClosed
	}
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return m.browser, nil
		}
		m.logger.Warn("browser handle is dead, relaunching")
		m.teardownLocked()
	}

	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if m.cfg.BinPath != "" {
		l = l.Bin(m.cfg.BinPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	m.logger.Info("browser launched", zap.String("control_url", controlURL))
	m.browser = browser
	m.launcher = l
	return browser, nil
}

// discard drops the handle if it is still the current one, forcing a relaunch next time.
func (m *Manager) discard(browser *rod.Browser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser == browser {
		m.teardownLocked()
	}
}

func (m *Manager) teardownLocked() {
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.logger.Debug("closing browser", zap.Error(err))
		}
	}
	if m.launcher != nil {
		m.launcher.Kill()
	}
	m.browser = nil
	m.launcher = nil
}

// Shutdown closes the browser process. Later NewPage calls fail with ErrBrowserClosed.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.teardownLocked()
}
