// Package exportchromium hosts live documents in headless Chromium for go-snapshot.
//
// Engine opens pages through chromedp and returns sessions that implement
// export.Host: section discovery, scroll container detection, inline style
// snapshots and region screenshots.
package exportchromium
