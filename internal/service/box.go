package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/sirupsen/logrus"
)

// NewBoxService creates a new BoxService.
func NewBoxService(store store.BoxStore) *BoxService {
	return &BoxService{store: store}
}

// BoxService manages the set of remote boxes this node polls.
type BoxService struct {
	store store.BoxStore
}

func (b *BoxService) AddBox(ctx context.Context, name, baseURL string) (*model.Box, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidBox)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: bad base url %q", ErrInvalidBox, baseURL)
	}

	box := &model.Box{Name: name, BaseURL: u.String()}
	if err := b.store.CreateBox(ctx, box); err != nil {
		return nil, err
	}

	logrus.Infof("added box %s at %s", box.Name, box.BaseURL)
	return box, nil
}

func (b *BoxService) ListBoxes(ctx context.Context) ([]*model.Box, error) {
	return b.store.ListBoxes(ctx)
}

// RemoveBox deletes the box definition. Data received from it stays in the index.
func (b *BoxService) RemoveBox(ctx context.Context, name string) error {
	box, err := b.store.GetBoxByName(ctx, name)
	if err != nil {
		return err
	}
	return b.store.DeleteBox(ctx, box.ID)
}
