package cli

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// PopulateProgress renders population progress on a terminal. The bar is created on the first
// update, once the total is known.
type PopulateProgress struct {
	w   io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	max int
}

// NewPopulateProgress writes progress to w.
func NewPopulateProgress(w io.Writer) *PopulateProgress {
	return &PopulateProgress{w: w}
}

// Update matches ingest.ProgressFunc.
func (p *PopulateProgress) Update(processed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || p.max != total {
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		p.max = total
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("embedding"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	_ = p.bar.Set(processed)
}

// Finish completes the current bar, if any.
func (p *PopulateProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
