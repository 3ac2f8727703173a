// Package i18n resolves the language code given on the command line and
// provides localized user-facing strings.
package i18n

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// ErrInvalidLanguage is returned for empty or malformed language codes.
var ErrInvalidLanguage = errors.New("invalid language code")

var supported = []language.Tag{language.English, language.Polish}

// bindings map supported languages to system locales.
var bindings = map[language.Tag]string{
	language.English: "en_US.UTF-8",
	language.Polish:  "pl_PL.UTF-8",
}

var matcher = language.NewMatcher(supported)

// Locale is a resolved language.
type Locale struct {
	Requested string       // code as given by the caller
	Tag       language.Tag // supported tag it resolved to
	Binding   string       // system locale, e.g. pl_PL.UTF-8
	Fallback  bool         // requested language is not supported
}

// Code returns the short language code of the resolved tag.
func (l Locale) Code() string {
	base, _ := l.Tag.Base()
	return base.String()
}

// Resolve parses a language code and matches it against the supported languages.
// Well-formed but unsupported codes resolve to English with Fallback set.
func Resolve(code string) (Locale, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Locale{}, fmt.Errorf("%w: empty", ErrInvalidLanguage)
	}

	tag, err := language.Parse(code)
	if err != nil {
		return Locale{}, fmt.Errorf("%w %q: %v", ErrInvalidLanguage, code, err)
	}

	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		slog.Warn("Unsupported language, falling back to English", "language", code)
		return Locale{Requested: code, Tag: language.English, Binding: bindings[language.English], Fallback: true}, nil
	}

	base := supported[idx]
	return Locale{Requested: code, Tag: base, Binding: bindings[base]}, nil
}

// Default returns the English locale.
func Default() Locale {
	return Locale{Requested: "en", Tag: language.English, Binding: bindings[language.English]}
}

// Supported returns the short codes of all supported languages.
func Supported() []string {
	codes := make([]string, len(supported))
	for i, t := range supported {
		b, _ := t.Base()
		codes[i] = b.String()
	}
	return codes
}

// Printer returns a message printer for the locale backed by the bundled catalog.
func Printer(l Locale) *message.Printer {
	return message.NewPrinter(l.Tag, message.Catalog(cat))
}

var cat = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, tr := range translations {
		_ = b.SetString(language.English, key, key)
		if tr != "" {
			_ = b.SetString(language.Polish, key, tr)
		}
	}
	return b
}
