// Package i18n holds the translation resource table shared by the API and
// the frontend. English is both the default and the fallback language.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var ErrUnknownLanguage = errors.New("unknown language")

// aliases maps legacy language codes used by the web client to BCP 47 bases.
var aliases = map[string]string{
	"ch": "zh",
}

// Catalog is a process-scoped set of translation tables.
type Catalog struct {
	bundle  *goi18n.Bundle
	tables  map[string]map[string]string // base language -> key -> text
	tags    []language.Tag               // tags[0] is the default language
	matcher language.Matcher
}

// NewCatalog loads the embedded locale files.
func NewCatalog() (*Catalog, error) {
	return NewCatalogFromFS(localeFS, "locales")
}

// NewCatalogFromFS loads every <lang>.json file found in dir.
// Each file is a flat JSON object of message ID to text. An English table is required.
func NewCatalogFromFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale directory %s: %w", dir, err)
	}

	c := &Catalog{
		bundle: goi18n.NewBundle(language.English),
		tables: make(map[string]map[string]string),
	}

	var others []language.Tag
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), ".json")
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("invalid locale file name %s: %w", entry.Name(), err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}
		table := make(map[string]string)
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("invalid locale file %s: %w", entry.Name(), err)
		}

		messages := make([]*goi18n.Message, 0, len(table))
		for id, text := range table {
			messages = append(messages, &goi18n.Message{ID: id, Other: text})
		}
		if err := c.bundle.AddMessages(tag, messages...); err != nil {
			return nil, fmt.Errorf("failed to register locale %s: %w", code, err)
		}

		c.tables[baseOf(tag)] = table
		if tag != language.English {
			others = append(others, tag)
		}
		log.Printf("[i18n] Loaded %d messages for language: %s", len(table), tag)
	}

	if _, ok := c.tables[baseOf(language.English)]; !ok {
		return nil, errors.New("locale table for default language en is missing")
	}

	sort.Slice(others, func(i, j int) bool { return others[i].String() < others[j].String() })
	c.tags = append([]language.Tag{language.English}, others...)
	c.matcher = language.NewMatcher(c.tags)

	return c, nil
}

// Languages lists the supported languages, default first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, tag := range c.tags {
		out[i] = tag.String()
	}
	return out
}

// Match picks the best supported language for an Accept-Language header value.
func (c *Catalog) Match(acceptLanguage string) language.Tag {
	wanted, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(wanted) == 0 {
		return c.tags[0]
	}
	_, idx, confidence := c.matcher.Match(wanted...)
	if confidence == language.No {
		return c.tags[0]
	}
	return c.tags[idx]
}

// Localize returns the text for key in lang, falling back to English and finally to the key itself.
func (c *Catalog) Localize(lang language.Tag, key string) string {
	localizer := goi18n.NewLocalizer(c.bundle, lang.String())
	// A fallback to the default language still returns text alongside a not-found error.
	text, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: key})
	if text != "" {
		return text
	}
	log.Printf("WARN [i18n] No translation for key %q (lang=%s): %v", key, lang, err)
	return key
}

// Resources returns the complete table for lang with gaps filled from English.
func (c *Catalog) Resources(lang string) (language.Tag, map[string]string, error) {
	code := strings.ToLower(strings.TrimSpace(lang))
	if alias, ok := aliases[code]; ok {
		code = alias
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
	}
	table, ok := c.tables[baseOf(tag)]
	if !ok {
		return language.Und, nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
	}

	merged := make(map[string]string, len(c.tables["en"]))
	for k, v := range c.tables["en"] {
		merged[k] = v
	}
	for k, v := range table {
		merged[k] = v
	}

	base, _ := tag.Base()
	return language.Make(base.String()), merged, nil
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// --- Context Helper Functions ---

type contextKey string

const languageKey contextKey = "language"

// WithLanguage stores the negotiated response language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey, tag)
}

// LanguageFromContext returns the negotiated language, or English when none was set.
func LanguageFromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(languageKey).(language.Tag); ok {
		return tag
	}
	return language.English
}
