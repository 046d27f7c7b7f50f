package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/TremiDkhar/sitelink/internal/links"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

// Saver is the record edit surface seeds are written through.
type Saver interface {
	Save(ctx context.Context, in links.Input) (*links.Result, error)
}

// seedNamespace scopes ids derived from seed labels.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sitelink:seed"))

// RecordID returns the id a seed link is stored under: the explicit id, or
// a name-based UUID of the label so reapplying the file is idempotent.
func RecordID(link Link) string {
	if link.ID != "" {
		return link.ID
	}
	return uuid.NewSHA1(seedNamespace, []byte(link.Label)).String()
}

// ToInput maps a seed link to an edit.
func ToInput(link Link) links.Input {
	in := links.Input{
		ID:        RecordID(link),
		Label:     &link.Label,
		Site1:     &link.Site1,
		Site2:     &link.Site2,
		Published: link.Published,
	}
	if link.Secret != "" {
		in.Secret = &link.Secret
	}
	return in
}

// Apply saves every seed link. Links already locked with different material
// are skipped with a warning; storage failures abort.
func Apply(ctx context.Context, file *File, saver Saver, log logger.Logger) (int, error) {
	applied := 0
	for _, link := range file.Links {
		res, err := saver.Save(ctx, ToInput(link))
		if errors.Is(err, links.ErrLocked) {
			log.Warn("seed link differs from locked record, reset it to apply",
				logger.String("label", link.Label))
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("failed to apply seed link %q: %w", link.Label, err)
		}
		if res.LockErr != nil {
			log.Warn("seed link is not locked",
				logger.String("label", link.Label),
				logger.Error(res.LockErr))
		}
		applied++
	}
	return applied, nil
}
