// Package chromium renders addressable pages to PDF with a shared headless
// Chromium instance driven over the DevTools protocol.
//
// The browser is started on first use and reused by every render. Each render
// opens its own tab, waits for the page's network to go idle and prints it.
// A browser whose context has ended is relaunched on the next render.
package chromium
