package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/chromedp/chromedp"
)

// PNGWriter screenshots the HTML rendering of a table in headless Chrome.
type PNGWriter struct {
	ChromePath string
	Timeout    time.Duration
}

func (*PNGWriter) Format() string      { return FormatPNG }
func (*PNGWriter) ContentType() string { return "image/png" }

func (p *PNGWriter) Write(ctx context.Context, w io.Writer, t Tabular) error {
	var page bytes.Buffer
	if err := (HTMLWriter{}).Write(ctx, &page, t); err != nil {
		return err
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if p.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	url := "data:text/html;base64," + base64.StdEncoding.EncodeToString(page.Bytes())

	var shot []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(1600, 900, chromedp.EmulateScale(2)),
		chromedp.Navigate(url),
		chromedp.WaitVisible("#report", chromedp.ByQuery),
		chromedp.Screenshot("#report", &shot, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to render png: %w", err)
	}

	_, err = w.Write(shot)
	return err
}
