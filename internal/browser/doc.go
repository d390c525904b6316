// Package browser controls the kiosk browser through Chromium's
// DevTools endpoint, backing the panel and url channels.
//
// # Architecture
//
//	┌──────────────────┐      ┌────────────────────┐
//	│      Panels      │─────▶│     Controller     │
//	│ name ↔ URL table │      │ /json, /json/new,  │
//	└──────────────────┘      │ debugger websocket │
//	                          └─────────┬──────────┘
//	                                    │ http + ws
//	                          Chromium  ▼  --remote-debugging-port
//
// The Controller speaks to DevTools two ways: target listing and tab
// creation over the HTTP surface, Page.navigate/Page.reload over the
// per-tab debugger websocket. Panels layers the name table on top:
// configured panels, DEFAULT (FullPageOS default page), URL (last
// address from the url channel), BLANK, and the RELOAD keyword.
//
// # Usage
//
//	ctrl := browser.NewController(cfg.Browser)
//	defaultURL, err := browser.DefaultURL(cfg.Browser)
//	if err != nil {
//	    // fatal: the kiosk has no page to fall back to
//	}
//	panels := browser.NewPanels(cfg.Browser, defaultURL, ctrl)
//
//	panels.Set("kitchen")   // navigate to the configured KITCHEN panel
//	name, _ := panels.Current() // "Kitchen"
package browser
