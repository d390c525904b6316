package browser

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// Reserved panel keywords with built-in behaviour.
const (
	PanelDefault = "DEFAULT"
	PanelURL     = "URL"
	PanelBlank   = "BLANK"
	PanelReload  = "RELOAD"

	blankURL = "about:blank"
)

// tabControl is the slice of Controller the panel table needs.
type tabControl interface {
	ActiveURL() (string, error)
	Navigate(target string) error
	Reload() error
}

// Panels resolves panel names to URLs and back for the panel and url
// channels.
//
// The table holds the configured panels plus three built-ins: DEFAULT
// (the FullPageOS default page), URL (the last address set on the url
// channel, initially the default page) and BLANK. RELOAD is not in the
// table; it reloads whatever is showing.
type Panels struct {
	ctrl tabControl

	// mu guards the table: the URL entry follows the url channel.
	mu    sync.Mutex
	urls  map[string]string
	order []string

	logger Logger
}

// NewPanels builds the panel table. Configured names match before the
// built-ins during reverse lookup, alphabetically for determinism.
func NewPanels(cfg config.BrowserConfig, defaultURL string, ctrl tabControl) *Panels {
	urls := make(map[string]string, len(cfg.Panels)+3)
	order := make([]string, 0, len(cfg.Panels)+3)
	for name, u := range cfg.Panels {
		urls[name] = u
		order = append(order, name)
	}
	sort.Strings(order)

	urls[PanelDefault] = defaultURL
	urls[PanelURL] = defaultURL
	urls[PanelBlank] = blankURL
	order = append(order, PanelDefault, PanelURL, PanelBlank)

	return &Panels{
		ctrl:   ctrl,
		urls:   urls,
		order:  order,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the panel table.
func (p *Panels) SetLogger(logger Logger) {
	p.logger = logger
}

// Current resolves the showing address back to a panel name in display
// form ("KITCHEN" reports as "Kitchen"). An address no panel claims
// reports as "Url".
func (p *Panels) Current() (string, error) {
	current, err := p.ctrl.ActiveURL()
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range p.order {
		if p.urls[name] == current {
			return capitalize(name), nil
		}
	}
	return capitalize(PanelURL), nil
}

// Set shows the named panel. The name is case-insensitive.
//
// Returns:
//   - error: ErrUnknownPanel, or the navigation failure
func (p *Panels) Set(name string) error {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == PanelReload {
		return p.ctrl.Reload()
	}

	p.mu.Lock()
	target, ok := p.urls[key]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPanel, name)
	}

	if err := p.ctrl.Navigate(target); err != nil {
		return fmt.Errorf("activating panel %s: %w", key, err)
	}

	p.logger.Info("panel activated", "panel", key, "url", target)
	return nil
}

// CurrentURL returns the showing address for the url channel.
func (p *Panels) CurrentURL() (string, error) {
	return p.ctrl.ActiveURL()
}

// SetURL shows an arbitrary page and remembers it as the URL panel, so
// selecting "Url" later brings it back.
//
// Returns:
//   - error: ErrInvalidURL for anything but absolute http(s), or the
//     navigation failure
func (p *Panels) SetURL(raw string) error {
	target := strings.TrimSpace(raw)
	if !validHTTPURL(target) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	if err := p.ctrl.Navigate(target); err != nil {
		return fmt.Errorf("opening url: %w", err)
	}

	p.mu.Lock()
	p.urls[PanelURL] = target
	p.mu.Unlock()

	p.logger.Info("url set", "url", target)
	return nil
}

// Names returns the selectable panel names in display form. The
// discovery select entity uses this as its options list.
func (p *Panels) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.order)+1)
	for _, name := range p.order {
		names = append(names, capitalize(name))
	}
	return append(names, capitalize(PanelReload))
}

// DefaultURL resolves the DEFAULT panel's address: the configured value
// when set, otherwise the FullPageOS config file. An unreadable file is
// a startup failure; the kiosk always has a default page.
func DefaultURL(cfg config.BrowserConfig) (string, error) {
	if cfg.DefaultURL != "" {
		return cfg.DefaultURL, nil
	}

	data, err := os.ReadFile(cfg.DefaultURLFile)
	if err != nil {
		return "", fmt.Errorf("reading default url file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// validHTTPURL accepts absolute http(s) addresses only.
func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// capitalize maps an uppercase panel name to its display form, e.g.
// "URL" to "Url".
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
