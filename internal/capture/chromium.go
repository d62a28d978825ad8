package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth   = 800
	DefaultHeight  = 600
	DefaultTimeout = 30 * time.Second

	// readySelector is set on the root element of /view/{name} pages.
	readySelector = `[data-ready="true"]`
)

// Options describes one screenshot of a rendered view page.
type Options struct {
	// URL of the view page, e.g. "http://127.0.0.1:8080/view/custom".
	URL string
	// OutputPath receives the PNG.
	OutputPath string

	// Width/Height of the viewport; zero uses the defaults.
	Width  int
	Height int

	Timeout time.Duration

	// Username/Password, if set, are sent as HTTP Basic credentials.
	Username string
	Password string
}

// headers returns the extra request headers for the page load, or nil.
func (o Options) headers() network.Headers {
	if o.Username == "" && o.Password == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))
	return network.Headers{"Authorization": "Basic " + token}
}

func (o Options) tasks(png *[]byte) chromedp.Tasks {
	tasks := chromedp.Tasks{chromedp.EmulateViewport(int64(o.Width), int64(o.Height))}
	if h := o.headers(); h != nil {
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(h))
	}
	return append(tasks,
		chromedp.Navigate(o.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(png, 100),
	)
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// CapturePNG drives headless Chromium to opts.URL, waits for the view's
// ready marker and writes a full-page PNG to opts.OutputPath.
func CapturePNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	if err := chromedp.Run(ctx, opts.tasks(&png)); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
