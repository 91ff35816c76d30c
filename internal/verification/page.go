package verification

import (
	"context"
	"time"
)

// WaitCondition tells Navigate when a page counts as loaded.
type WaitCondition int

const (
	WaitNetworkIdle WaitCondition = iota
	WaitDOMContentLoaded
)

// Browser hands out short-lived pages from a long-lived browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is one browser tab. Find returns a nil Element and nil error when nothing matches.
type Page interface {
	Navigate(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) error
	Find(ctx context.Context, sel Selector) (Element, error)
	VisibleText(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Element is a located DOM node.
type Element interface {
	Click(ctx context.Context) error
	Focus(ctx context.Context) error
	TypeText(ctx context.Context, text string, delay time.Duration) error
	PressEnter(ctx context.Context) error
}
