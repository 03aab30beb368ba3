package exportchromium

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-snapshot/export"
)

const (
	DefaultSectionAttribute = "data-section"
	DefaultViewportWidth    = 1280
	DefaultViewportHeight   = 900
)

// DefaultContainerSelectors mark common scroll and clip wrappers.
var DefaultContainerSelectors = []string{
	"[data-scroll-container]",
	".overflow-auto",
	".overflow-scroll",
	".overflow-hidden",
	".overflow-y-auto",
	".overflow-x-auto",
	".scrollable",
}

// Engine opens live documents in a shared headless Chromium instance.
type Engine struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string

	ViewportWidth       int
	ViewportHeight      int
	SectionAttribute    string
	ContainerSelectors  []string
	BlockExternalAssets bool
	Logger              export.Logger

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	initErr       error
}

// NewEngine returns a headless engine with default viewport and selectors.
func NewEngine() *Engine {
	return &Engine{
		Headless:           true,
		Timeout:            60 * time.Second,
		ViewportWidth:      DefaultViewportWidth,
		ViewportHeight:     DefaultViewportHeight,
		SectionAttribute:   DefaultSectionAttribute,
		ContainerSelectors: append([]string(nil), DefaultContainerSelectors...),
		Logger:             export.NopLogger{},
	}
}

// Open loads page into a new tab and returns it as a host session.
func (e *Engine) Open(ctx context.Context, target export.Page) (export.HostSession, error) {
	if e == nil {
		return nil, export.NewError(export.KindInternal, "chromium engine is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(target.URL) == "" && len(target.HTML) == 0 {
		return nil, export.NewError(export.KindValidation, "page url or html is required", nil)
	}

	if err := e.ensureBrowser(); err != nil {
		return nil, export.NewError(export.KindInternal, "chromium engine init failed", err)
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, export.NewError(export.KindInternal, "chromium tab open failed", err)
	}
	session := &Session{
		tabCtx:    tabCtx,
		cancel:    cancel,
		timeout:   e.Timeout,
		attribute: e.sectionAttribute(),
		selectors: e.containerSelectors(),
		logger:    e.logger(),
	}

	if err := session.exec(ctx, e.loadActions(target)...); err != nil {
		cancel()
		return nil, export.NewError(export.KindInternal, "chromium page load failed", err)
	}
	e.logger().Debugf("chromium: opened %s", describePage(target))
	return session, nil
}

// Close releases Chromium resources if they have been initialized.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *Engine) loadActions(target export.Page) []chromedp.Action {
	width, height := e.viewport()
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false),
	}
	if e.BlockExternalAssets {
		actions = append(actions,
			network.Enable(),
			network.SetBlockedURLs().WithURLPatterns(blockedURLPatterns()),
		)
	}

	if strings.TrimSpace(target.URL) != "" {
		return append(actions,
			chromedp.Navigate(target.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}

	document := injectBaseURL(target.HTML, target.BaseURL)
	return append(actions,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(document)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (e *Engine) ensureBrowser() error {
	e.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if e.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(e.BrowserPath))
		}
		options = append(options, chromedp.Flag("headless", e.Headless))
		options = append(options, allocatorOptionsFromArgs(e.Args)...)

		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
		// The browser process lives as long as the context of its first run.
		e.initErr = chromedp.Run(e.browserCtx)
	})
	if e.initErr != nil {
		return e.initErr
	}
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func (e *Engine) viewport() (int, int) {
	width, height := e.ViewportWidth, e.ViewportHeight
	if width <= 0 {
		width = DefaultViewportWidth
	}
	if height <= 0 {
		height = DefaultViewportHeight
	}
	return width, height
}

func (e *Engine) sectionAttribute() string {
	if strings.TrimSpace(e.SectionAttribute) == "" {
		return DefaultSectionAttribute
	}
	return strings.TrimSpace(e.SectionAttribute)
}

// containerSelectors never returns nil so the script always receives an array.
func (e *Engine) containerSelectors() []string {
	source := e.ContainerSelectors
	if source == nil {
		source = DefaultContainerSelectors
	}
	selectors := make([]string, 0, len(source))
	return append(selectors, source...)
}

func blockedURLPatterns() []*network.BlockPattern {
	return []*network.BlockPattern{
		{URLPattern: "http://*", Block: true},
		{URLPattern: "https://*", Block: true},
	}
}

func (e *Engine) logger() export.Logger {
	if e.Logger == nil {
		return export.NopLogger{}
	}
	return e.Logger
}

func describePage(target export.Page) string {
	if target.URL != "" {
		return target.URL
	}
	return fmt.Sprintf("inline document (%d bytes)", len(target.HTML))
}

func injectBaseURL(htmlInput []byte, baseURL string) []byte {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return htmlInput
	}

	lower := strings.ToLower(string(htmlInput))
	if strings.Contains(lower, "<base") {
		return htmlInput
	}

	baseTag := fmt.Sprintf(`<base href="%s">`, html.EscapeString(baseURL))
	if headIdx := strings.Index(lower, "<head"); headIdx >= 0 {
		if end := strings.Index(lower[headIdx:], ">"); end >= 0 {
			insertPos := headIdx + end + 1
			return append(append([]byte{}, htmlInput[:insertPos]...), append([]byte(baseTag), htmlInput[insertPos:]...)...)
		}
	}

	if htmlIdx := strings.Index(lower, "<html"); htmlIdx >= 0 {
		if end := strings.Index(lower[htmlIdx:], ">"); end >= 0 {
			insertPos := htmlIdx + end + 1
			injected := fmt.Sprintf("<head>%s</head>", baseTag)
			return append(append([]byte{}, htmlInput[:insertPos]...), append([]byte(injected), htmlInput[insertPos:]...)...)
		}
	}

	return append([]byte(baseTag), htmlInput...)
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
