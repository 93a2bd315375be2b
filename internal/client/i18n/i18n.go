// Package i18n renders the client's user-facing messages in Spanish or
// English from embedded TOML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// DefaultLanguage is used for unknown languages and missing messages.
var DefaultLanguage = language.Spanish

type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	tag       language.Tag
}

// New loads every embedded catalog and returns a translator for lang
// ("es", "en", "en-US", ...). Unsupported languages fall back to Spanish.
func New(lang string) (*Translator, error) {
	bundle := i18n.NewBundle(DefaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(locales, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(locales, f); err != nil {
			return nil, fmt.Errorf("failed to load locale %s: %w", f, err)
		}
	}

	matcher := language.NewMatcher(bundle.LanguageTags())
	tag, _, _ := matcher.Match(language.Make(strings.TrimSpace(lang)))
	base, _ := tag.Base()

	return &Translator{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, lang),
		tag:       language.Make(base.String()),
	}, nil
}

// Language returns the base language messages are rendered in.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// T renders message id with data. Unknown ids are returned unchanged so a
// missing translation never hides the message entirely.
func (t *Translator) T(id string, data map[string]any) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if msg == "" && err != nil {
		return id
	}
	return msg
}

// Has reports whether id exists in the default catalog.
func (t *Translator) Has(id string) bool {
	_, err := i18n.NewLocalizer(t.bundle, DefaultLanguage.String()).Localize(&i18n.LocalizeConfig{MessageID: id})
	return err == nil
}
