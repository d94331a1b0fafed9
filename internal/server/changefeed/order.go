package changefeed

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFeedParent = errors.New("feed references unknown parent")
	ErrFeedCycle         = errors.New("feed parents form a cycle")
	ErrDuplicateFeed     = errors.New("duplicate feed name")
)

// OrderFeeds sorts feeds so that every parent precedes its children.
// Feeds with no ordering constraint between them keep their input order.
func OrderFeeds(feeds []Feed) ([]Feed, error) {
	byName := make(map[string]Feed, len(feeds))
	for _, f := range feeds {
		if _, ok := byName[f.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFeed, f.Name())
		}
		byName[f.Name()] = f
	}
	for _, f := range feeds {
		if p := f.Parent(); p != "" {
			if _, ok := byName[p]; !ok {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownFeedParent, f.Name(), p)
			}
		}
	}

	ordered := make([]Feed, 0, len(feeds))
	placed := make(map[string]bool, len(feeds))
	for len(ordered) < len(feeds) {
		progressed := false
		for _, f := range feeds {
			if placed[f.Name()] {
				continue
			}
			if p := f.Parent(); p == "" || placed[p] {
				ordered = append(ordered, f)
				placed[f.Name()] = true
				progressed = true
			}
		}
		if !progressed {
			var stuck []string
			for _, f := range feeds {
				if !placed[f.Name()] {
					stuck = append(stuck, f.Name())
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrFeedCycle, strings.Join(stuck, ", "))
		}
	}
	return ordered, nil
}
