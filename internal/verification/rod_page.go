package verification

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	event := proto.PageLifecycleEventNameNetworkAlmostIdle
	if wait == WaitDOMContentLoaded {
		event = proto.PageLifecycleEventNameDOMContentLoaded
	}
	waitFn := page.WaitNavigation(event)
	if err := page.Navigate(url); err != nil {
		return err
	}
	waitFn()
	return page.GetContext().Err()
}

func (p *rodPage) Find(ctx context.Context, sel Selector) (Element, error) {
	page := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if sel.Text != "" {
		has, el, err = page.HasR(sel.CSS, fmt.Sprintf("/%s/i", regexp.QuoteMeta(sel.Text)))
	} else {
		has, el, err = page.Has(sel.CSS)
	}
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return &rodElement{el: el, page: page}, nil
}

func (p *rodPage) VisibleText(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, nil)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

type rodElement struct {
	el   *rod.Element
	page *rod.Page
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Focus(ctx context.Context) error {
	return e.el.Context(ctx).Focus()
}

// TypeText inserts one character at a time into the focused element.
func (e *rodElement) TypeText(ctx context.Context, text string, delay time.Duration) error {
	page := e.page.Context(ctx)
	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (e *rodElement) PressEnter(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}
