package vcard

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/model"
)

// ErrNothingToExport is returned when a bulk export is asked to export no contacts at all.
var ErrNothingToExport = errors.New("no contacts found to export")

// Exporter produces vCards for one or many contacts, embedding profile photos where possible.
type Exporter struct {
	photos      PhotoResolver
	concurrency int
	log         *zap.Logger
}

// NewExporter creates an exporter. concurrency bounds the number of photo fetches running at
// the same time during a bulk export.
func NewExporter(photos PhotoResolver, concurrency int, log *zap.Logger) *Exporter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Exporter{photos: photos, concurrency: concurrency, log: log}
}

// Card returns the vCard of a single contact.
func (e *Exporter) Card(ctx context.Context, contact model.Contact) string {
	var photo *Photo
	if imageURL := model.Value(contact.ProfileImageUrl); imageURL != "" && e.photos != nil {
		photo = e.photos.Resolve(ctx, imageURL)
	}
	return Encode(contact, photo)
}

// Cards returns the vCards of all contacts, separated by a blank line, in the order of the
// input. The photos are resolved concurrently; a missing photo never fails the export.
func (e *Exporter) Cards(ctx context.Context, contacts []model.Contact) (string, error) {
	if len(contacts) == 0 {
		return "", ErrNothingToExport
	}

	cards := make([]string, len(contacts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, contact := range contacts {
		g.Go(func() error {
			cards[i] = e.Card(gctx, contact)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.log.Debug("exported contacts", zap.Int("count", len(contacts)))
	return strings.Join(cards, "\n"), nil
}
