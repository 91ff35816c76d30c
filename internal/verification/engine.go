package verification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/config"
	"github.com/spec-kit/codefinder/internal/domain"
)

// Options holds the engine's timeouts and fixed settle delays.
type Options struct {
	NavigationTimeout time.Duration
	FallbackTimeout   time.Duration
	SettleDelay       time.Duration
	RevealDelay       time.Duration
	TypeDelay         time.Duration
	ResultDelay       time.Duration
	ScreenshotDir     string
}

// OptionsFromConfig maps browser configuration onto engine options.
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	return Options{
		NavigationTimeout: cfg.NavigationTimeout(),
		FallbackTimeout:   cfg.FallbackTimeout(),
		SettleDelay:       time.Duration(cfg.SettleDelayMs) * time.Millisecond,
		RevealDelay:       time.Duration(cfg.RevealDelayMs) * time.Millisecond,
		TypeDelay:         time.Duration(cfg.TypeDelayMs) * time.Millisecond,
		ResultDelay:       time.Duration(cfg.ResultDelayMs) * time.Millisecond,
		ScreenshotDir:     cfg.ScreenshotDir,
	}
}

// Engine applies a code on a merchant page and classifies what the page says back.
type Engine struct {
	browser Browser
	rules   *Rules
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine builds an engine. Nil rules fall back to the built-in set.
func NewEngine(browser Browser, rules *Rules, opts Options, logger *zap.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{browser: browser, rules: rules, opts: opts, logger: logger, now: time.Now}
}

// Verify makes one attempt to apply code on merchantURL. It never returns an error:
// every failure is reported as an invalid result with a distinguishing outcome.
func (e *Engine) Verify(ctx context.Context, code, merchantURL, merchantName string) (result domain.VerificationResult) {
	log := e.logger.With(zap.String("code", code), zap.String("merchant", merchantName))

	defer func() {
		if r := recover(); r != nil {
			log.Error("verification panicked", zap.Any("panic", r))
			result = technicalError(fmt.Errorf("%v", r))
		}
		log.Info("verification finished", zap.String("outcome", string(result.Outcome)))
	}()

	if merchantURL == "" {
		return technicalError(errors.New("no merchant URL provided"))
	}
	if e.browser == nil {
		return technicalError(errors.New("browser unavailable"))
	}

	page, err := e.browser.NewPage(ctx)
	if err != nil {
		return technicalError(err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug("closing page", zap.Error(err))
		}
	}()

	outcome, err := e.run(ctx, page, code, merchantURL, log)
	if err != nil {
		return technicalError(err)
	}
	return classified(outcome, merchantName)
}

func (e *Engine) run(ctx context.Context, page Page, code, merchantURL string, log *zap.Logger) (domain.VerificationOutcome, error) {
	if err := e.navigate(ctx, page, merchantURL, log); err != nil {
		return "", err
	}
	if err := sleep(ctx, e.opts.SettleDelay); err != nil {
		return "", err
	}
	e.screenshot(ctx, page, code, log)

	input, err := e.locateInput(ctx, page, log)
	if err != nil {
		return "", err
	}
	if input == nil {
		return domain.OutcomeNoInput, nil
	}

	if err := input.Click(ctx); err != nil {
		log.Debug("clicking code input", zap.Error(err))
	}
	if err := input.Focus(ctx); err != nil {
		return "", fmt.Errorf("focus code input: %w", err)
	}
	if err := input.TypeText(ctx, code, e.opts.TypeDelay); err != nil {
		return "", fmt.Errorf("type code: %w", err)
	}

	if err := e.submit(ctx, page, input, log); err != nil {
		return "", err
	}
	if err := sleep(ctx, e.opts.ResultDelay); err != nil {
		return "", err
	}

	text, err := page.VisibleText(ctx)
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	success, failure := e.rules.Match(text)
	switch {
	case failure:
		return domain.OutcomeRejected, nil
	case success:
		return domain.OutcomeVerified, nil
	default:
		return domain.OutcomeInconclusive, nil
	}
}

// navigate tries a full load first, then settles for DOM content with a shorter timeout.
func (e *Engine) navigate(ctx context.Context, page Page, url string, log *zap.Logger) error {
	err := page.Navigate(ctx, url, WaitNetworkIdle, e.opts.NavigationTimeout)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Info("full page load timed out, retrying for content loaded", zap.Error(err))
	if err := page.Navigate(ctx, url, WaitDOMContentLoaded, e.opts.FallbackTimeout); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (e *Engine) locateInput(ctx context.Context, page Page, log *zap.Logger) (Element, error) {
	input, err := e.first(ctx, page, e.rules.InputSelectors, log)
	if input != nil || err != nil {
		return input, err
	}

	for _, sel := range e.rules.RevealSelectors {
		reveal, err := e.find(ctx, page, sel, log)
		if err != nil {
			return nil, err
		}
		if reveal == nil {
			continue
		}
		if err := reveal.Click(ctx); err != nil {
			log.Debug("clicking reveal affordance", zap.Stringer("selector", sel), zap.Error(err))
			continue
		}
		if err := sleep(ctx, e.opts.RevealDelay); err != nil {
			return nil, err
		}
		input, err := e.first(ctx, page, e.rules.InputSelectors, log)
		if input != nil || err != nil {
			return input, err
		}
	}
	return nil, nil
}

func (e *Engine) submit(ctx context.Context, page Page, input Element, log *zap.Logger) error {
	for _, sel := range e.rules.SubmitSelectors {
		button, err := e.find(ctx, page, sel, log)
		if err != nil {
			return err
		}
		if button == nil {
			continue
		}
		if err := button.Click(ctx); err != nil {
			log.Debug("clicking submit", zap.Stringer("selector", sel), zap.Error(err))
			continue
		}
		log.Debug("clicked submit", zap.Stringer("selector", sel))
		return nil
	}
	if err := input.PressEnter(ctx); err != nil {
		return fmt.Errorf("submit code: %w", err)
	}
	return nil
}

func (e *Engine) first(ctx context.Context, page Page, selectors []Selector, log *zap.Logger) (Element, error) {
	for _, sel := range selectors {
		el, err := e.find(ctx, page, sel, log)
		if err != nil || el != nil {
			if el != nil {
				log.Debug("matched selector", zap.Stringer("selector", sel))
			}
			return el, err
		}
	}
	return nil, nil
}

// find swallows per-selector lookup errors; only a dead context stops the probe.
func (e *Engine) find(ctx context.Context, page Page, sel Selector, log *zap.Logger) (Element, error) {
	el, err := page.Find(ctx, sel)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug("selector lookup failed", zap.Stringer("selector", sel), zap.Error(err))
		return nil, nil
	}
	return el, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (e *Engine) screenshot(ctx context.Context, page Page, code string, log *zap.Logger) {
	if e.opts.ScreenshotDir == "" {
		return
	}
	data, err := page.Screenshot(ctx)
	if err != nil {
		log.Debug("screenshot failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("verification-%s-%d.png", unsafeFileChars.ReplaceAllString(code, "_"), e.now().UnixNano())
	if err := os.WriteFile(filepath.Join(e.opts.ScreenshotDir, name), data, 0o644); err != nil {
		log.Debug("writing screenshot", zap.Error(err))
	}
}

func classified(outcome domain.VerificationOutcome, merchant string) domain.VerificationResult {
	switch outcome {
	case domain.OutcomeVerified:
		return domain.VerificationResult{
			Valid:   true,
			Outcome: outcome,
			Details: fmt.Sprintf("Code successfully applied on %s. Discount appears to be active and working.", merchant),
		}
	case domain.OutcomeRejected:
		return domain.VerificationResult{
			Outcome: outcome,
			Details: fmt.Sprintf("Code was rejected by %s. The website indicated the code is invalid or expired.", merchant),
		}
	case domain.OutcomeNoInput:
		return domain.VerificationResult{
			Outcome: outcome,
			Details: fmt.Sprintf("Verification could not locate a discount code input field on the %s website. The site may hide the coupon field until items are in the cart.", merchant),
		}
	default:
		return domain.VerificationResult{
			Outcome: domain.OutcomeInconclusive,
			Details: fmt.Sprintf("Code entered on %s but verification inconclusive. The site may require items in cart or additional steps to validate the code.", merchant),
		}
	}
}

func technicalError(err error) domain.VerificationResult {
	return domain.VerificationResult{
		Outcome: domain.OutcomeTechnicalError,
		Details: fmt.Sprintf("Verification failed due to technical error: %v. The website may be blocking automated access or experiencing issues.", err),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
