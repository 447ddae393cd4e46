// Package i18n holds the localized flash messages shown when a board action
// is rejected.
package i18n

import (
	"fmt"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
)

// Message keys.
const (
	MissingLockVersion = "rdb_flash_missing_lock_version"
	StaleObject        = "rdb_flash_stale_object"
	InvalidMove        = "rdb_flash_invalid_move"
	NotFound           = "rdb_flash_not_found"
	Forbidden          = "rdb_flash_forbidden"
)

var catalog = map[string]map[string]string{
	"en": {
		MissingLockVersion: "The request is missing the issue lock version. Please reload the board.",
		StaleObject:        "Issue \"{0}\" was changed by someone else. The board has been refreshed, please try again.",
		InvalidMove:        "The issue cannot be moved there.",
		NotFound:           "The requested board or issue was not found.",
		Forbidden:          "You are not allowed to do that.",
	},
	"de": {
		MissingLockVersion: "Der Anfrage fehlt die Sperrversion des Tickets. Bitte laden Sie das Board neu.",
		StaleObject:        "Ticket \"{0}\" wurde zwischenzeitlich geändert. Das Board wurde aktualisiert, bitte versuchen Sie es erneut.",
		InvalidMove:        "Das Ticket kann nicht dorthin verschoben werden.",
		NotFound:           "Das angeforderte Board oder Ticket wurde nicht gefunden.",
		Forbidden:          "Sie dürfen diese Aktion nicht ausführen.",
	},
}

// Catalog translates flash message keys.
type Catalog struct {
	uni      *ut.UniversalTranslator
	fallback string
	matcher  language.Matcher
	tags     []string
}

// New builds the catalog with defaultLocale as the fallback.
func New(defaultLocale string) (*Catalog, error) {
	translators := []locales.Translator{en.New(), de.New()}

	var fallback locales.Translator
	for _, t := range translators {
		if t.Locale() == defaultLocale {
			fallback = t
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("i18n: unsupported locale %q", defaultLocale)
	}

	c := &Catalog{uni: ut.New(fallback, translators...), fallback: defaultLocale}
	// The matcher prefers the first tag when nothing matches.
	tags := []language.Tag{language.Make(defaultLocale)}
	c.tags = []string{defaultLocale}
	for _, t := range translators {
		if t.Locale() != defaultLocale {
			tags = append(tags, language.Make(t.Locale()))
			c.tags = append(c.tags, t.Locale())
		}
	}
	c.matcher = language.NewMatcher(tags)

	for loc, messages := range catalog {
		trans, found := c.uni.GetTranslator(loc)
		if !found {
			return nil, fmt.Errorf("i18n: no translator for %q", loc)
		}
		for key, text := range messages {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("i18n: add %s/%s: %w", loc, key, err)
			}
		}
	}
	return c, nil
}

// Negotiate picks the best supported locale for an Accept-Language header,
// falling back to the default locale.
func (c *Catalog) Negotiate(acceptLanguage string) string {
	if acceptLanguage == "" {
		return c.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return c.fallback
	}
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return c.fallback
	}
	return c.tags[idx]
}

// T translates key in locale, substituting params for {0}, {1}, ... Unknown
// keys come back unchanged.
func (c *Catalog) T(locale, key string, params ...string) string {
	trans, _ := c.uni.GetTranslator(locale)
	msg, err := trans.T(key, params...)
	if err != nil {
		return key
	}
	return msg
}
