// Package browser manages disguised Playwright sessions. Sessions take
// seconds to start and are reused across many page operations; after a fatal
// page error callers must recreate the session rather than continue with a
// possibly corrupted one.
package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// hide the webdriver flag and plug the most common automation tells
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
`

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Provider struct {
	pw        *playwright.Playwright
	headless  bool
	timeoutMS float64
}

// NewProvider starts the Playwright driver. The driver is shared by every
// session the provider creates and must outlive them.
func NewProvider(headless bool, timeoutMS int) (*Provider, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &Provider{
		pw:        pw,
		headless:  headless,
		timeoutMS: float64(timeoutMS),
	}, nil
}

func (p *Provider) Close() {
	if p.pw != nil {
		p.pw.Stop()
	}
}

// Session is one exclusively-owned browser window. Not safe for concurrent
// use.
type Session struct {
	browser   playwright.Browser
	page      playwright.Page
	timeoutMS float64
}

func (p *Provider) NewSession() (*Session, error) {
	b, err := p.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(p.headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	ctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create context: %w", err)
	}

	if err := ctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		b.Close()
		return nil, fmt.Errorf("add init script: %w", err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	page.SetDefaultTimeout(p.timeoutMS)

	return &Session{browser: b, page: page, timeoutMS: p.timeoutMS}, nil
}

// Recreate closes a session and starts a fresh one. Used after fatal page
// errors.
func (p *Provider) Recreate(s *Session) (*Session, error) {
	if s != nil {
		s.Close()
	}
	return p.NewSession()
}

func (s *Session) Close() {
	if s.browser != nil {
		s.browser.Close()
	}
}

// Visit navigates and waits for the DOM to be ready. Rendering of dynamic
// content is covered by the bounded element waits of later operations.
func (s *Session) Visit(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("visit %s: %w", url, err)
	}
	return nil
}

// HTML returns the current rendered page source.
func (s *Session) HTML() (string, error) {
	return s.page.Content()
}

// Has waits up to the session timeout for the selector to attach. A timeout
// is a "not found" condition, not an error.
func (s *Session) Has(selector string) bool {
	return s.HasWithin(selector, s.timeoutMS)
}

// HasWithin is Has with an explicit wait bound, for checks that should give
// up quickly.
func (s *Session) HasWithin(selector string, timeoutMS float64) bool {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(timeoutMS),
	})
	return err == nil
}

func (s *Session) Click(selector string) error {
	if err := s.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// ClickNth clicks the n-th (0-based) element matching the selector.
func (s *Session) ClickNth(selector string, n int) error {
	if err := s.page.Locator(selector).Nth(n).Click(); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, n, err)
	}
	return nil
}

// Fill clears the matched input and types the value.
func (s *Session) Fill(selector, value string) error {
	if err := s.page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

// Pause blocks for the given number of milliseconds using the page clock.
func (s *Session) Pause(ms float64) {
	s.page.WaitForTimeout(ms)
}
