package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// devtoolsTimeout bounds every DevTools HTTP and websocket exchange.
const devtoolsTimeout = 5 * time.Second

// Logger defines the logging interface used by the browser controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Tab is one DevTools target from the /json list.
type Tab struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	Title                string `json:"title"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Controller drives the kiosk browser through Chromium's DevTools
// endpoint (--remote-debugging-port). Target listing and tab creation
// use the HTTP surface; navigating and reloading an existing tab go
// through the tab's debugger websocket, which is the only way DevTools
// exposes them.
//
// The controller is stateless; every method hits the endpoint fresh.
type Controller struct {
	debugURL string
	httpc    *http.Client
	logger   Logger
}

// NewController creates a controller for the configured DevTools endpoint.
func NewController(cfg config.BrowserConfig) *Controller {
	return &Controller{
		debugURL: strings.TrimRight(cfg.DebugURL, "/"),
		httpc:    &http.Client{Timeout: devtoolsTimeout},
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// Tabs returns the open page targets in DevTools order (most recently
// focused first). Extensions, workers and the like are filtered out.
func (c *Controller) Tabs() ([]Tab, error) {
	resp, err := c.httpc.Get(c.debugURL + "/json")
	if err != nil {
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing tabs: devtools returned %s", resp.Status)
	}

	var all []Tab
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding tab list: %w", err)
	}

	var pages []Tab
	for _, t := range all {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// ActiveTab returns the focused page target.
func (c *Controller) ActiveTab() (Tab, error) {
	tabs, err := c.Tabs()
	if err != nil {
		return Tab{}, err
	}
	if len(tabs) == 0 {
		return Tab{}, ErrNoActiveTab
	}
	return tabs[0], nil
}

// ActiveURL returns the address the focused tab is showing.
func (c *Controller) ActiveURL() (string, error) {
	tab, err := c.ActiveTab()
	if err != nil {
		return "", err
	}
	return tab.URL, nil
}

// TabCount returns the number of open page tabs.
func (c *Controller) TabCount() (int, error) {
	tabs, err := c.Tabs()
	if err != nil {
		return 0, err
	}
	return len(tabs), nil
}

// Navigate points the focused tab at target. With no page tab open (the
// kiosk browser crashed and restarted bare) a new one is created instead.
func (c *Controller) Navigate(target string) error {
	tab, err := c.ActiveTab()
	if errors.Is(err, ErrNoActiveTab) {
		return c.newTab(target)
	}
	if err != nil {
		return err
	}
	return c.command(tab, "Page.navigate", map[string]string{"url": target})
}

// Reload reloads the focused tab.
func (c *Controller) Reload() error {
	tab, err := c.ActiveTab()
	if err != nil {
		return err
	}
	return c.command(tab, "Page.reload", nil)
}

// newTab opens a new page target showing target. Chromium 111+ requires
// PUT on this endpoint; the query string is the address itself.
func (c *Controller) newTab(target string) error {
	req, err := http.NewRequest(http.MethodPut, c.debugURL+"/json/new?"+url.QueryEscape(target), nil)
	if err != nil {
		return fmt.Errorf("creating tab request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("opening tab: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("opening tab: devtools returned %s", resp.Status)
	}

	c.logger.Info("opened new tab", "url", target)
	return nil
}

// cdpRequest and cdpResponse are the protocol envelope for one DevTools
// command on a debugger websocket.
type cdpRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type cdpResponse struct {
	ID    int       `json:"id"`
	Error *cdpError `json:"error,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("devtools: %s (code %d)", e.Message, e.Code)
}

// command runs one DevTools method against a tab's debugger socket and
// waits for its response. Protocol events arriving first are skipped.
func (c *Controller) command(tab Tab, method string, params any) error {
	if tab.WebSocketDebuggerURL == "" {
		return fmt.Errorf("tab %s: no debugger socket advertised", tab.ID)
	}

	conn, _, err := websocket.DefaultDialer.Dial(tab.WebSocketDebuggerURL, nil)
	if err != nil {
		return fmt.Errorf("dialing debugger socket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(devtoolsTimeout)
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)

	req := cdpRequest{ID: 1, Method: method, Params: params}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending %s: %w", method, err)
	}

	for {
		var resp cdpResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("reading %s response: %w", method, err)
		}
		if resp.ID != req.ID {
			// Protocol event, not our response.
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		c.logger.Debug("devtools command ok", "method", method, "tab", tab.ID)
		return nil
	}
}
