package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/go-rod/rod"

	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/resolve"
)

// SelectorCandidate builds a candidate that is displayed when every selector
// matches a visible element.
func SelectorCandidate(name string, selectors ...string) resolve.Candidate {
	return resolve.Candidate{
		Name: name,
		New: func(_ context.Context, acc resolve.Accessor) (resolve.Shape, error) {
			ba, ok := acc.(*Accessor)
			if !ok || ba.page == nil {
				return nil, fault.New(fault.ConstructionFailed, "%s needs a browser accessor, got %T", name, acc)
			}
			if len(selectors) == 0 {
				return nil, fault.New(fault.ConstructionFailed, "%s has no selectors", name)
			}
			return &selectorShape{name: name, selectors: selectors, page: ba.page}, nil
		},
	}
}

type selectorShape struct {
	name      string
	selectors []string
	page      *rod.Page
}

func (s *selectorShape) Name() string { return s.name }

func (s *selectorShape) IsDisplayed(ctx context.Context) (bool, error) {
	page := s.page.Context(ctx)
	for _, sel := range s.selectors {
		has, el, err := page.Has(sel)
		if err != nil {
			return false, classify(err)
		}
		if !has {
			return false, nil
		}
		visible, err := el.Visible()
		if err != nil {
			return false, classify(err)
		}
		if !visible {
			return false, nil
		}
	}
	return true, nil
}

// classify marks races with the page as transient reads.
func classify(err error) error {
	if isTransient(err) {
		return fault.Transient(err)
	}
	return err
}

// staleMessages are CDP error texts raised when the page navigated under a
// query.
var staleMessages = []string{
	"Cannot find context with specified id",
	"Execution context was destroyed",
	"Could not find node with given id",
	"Node with given id does not belong to the document",
	"Could not find object with given id",
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var notFound *rod.ElementNotFoundError
	var objNotFound *rod.ObjectNotFoundError
	switch {
	case errors.As(err, &notFound), errors.As(err, &objNotFound):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	msg := err.Error()
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
