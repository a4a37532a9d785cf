// Package forum implements the question, answer, notification and
// moderation operations around the vote ledger.
package forum

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
)

type Service struct {
	db       *gorm.DB
	notifier notify.Notifier
	live     notify.Publisher
	logger   *zap.Logger
}

func New(db *gorm.DB, notifier notify.Notifier, live notify.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		notifier: notifier,
		live:     live,
		logger:   logger.Named("forum"),
	}
}

// markers a rich text editor leaves behind in an otherwise empty field
var emptyMarkup = regexp.MustCompile(`<p><br></p>|<div><br></div>|<br>`)

// IsBlankHTML reports whether rich text has no content once editor line
// breaks are stripped.
func IsBlankHTML(html string) bool {
	return strings.TrimSpace(emptyMarkup.ReplaceAllString(html, "")) == ""
}

// storeError maps a database failure to a domain error
func storeError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, notFound, nil)
	}
	var de *apperr.DomainError
	if errors.As(err, &de) {
		return err
	}
	return apperr.Wrap(apperr.ErrTransientIO, "", err)
}
