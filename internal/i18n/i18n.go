// Package i18n holds the message catalogs for user-facing strings.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is used when the configured language has no catalog or
// lacks a key.
const DefaultLanguage = "ja"

// SupportedLanguages lists the catalogs embedded in the binary.
var SupportedLanguages = []string{"ja", "en"}

// Message is a single catalog entry.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile is the layout of locales/<lang>/messages.json.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Translator resolves message keys. The stores depend on this rather than
// on *Catalog.
type Translator interface {
	T(key string, args ...any) string
}

// Catalog holds every embedded language and the currently selected one.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	matcher      language.Matcher
	supported    []language.Tag
	lang         string
	logger       logrus.FieldLogger
}

// New loads all embedded catalogs and selects the best match for lang.
// logger may be nil.
func New(lang string, logger logrus.FieldLogger) (*Catalog, error) {
	c := &Catalog{
		translations: make(map[string]map[string]string),
		lang:         DefaultLanguage,
		logger:       logger,
	}

	tags := make([]language.Tag, 0, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		tags = append(tags, language.MustParse(l))
	}
	c.supported = tags
	c.matcher = language.NewMatcher(tags)

	for _, l := range SupportedLanguages {
		if err := c.load(l); err != nil {
			return nil, fmt.Errorf("loading language %s: %w", l, err)
		}
	}

	c.SetLanguage(lang)
	return c, nil
}

// MustNew is New for package-level defaults and tests; it panics only if the
// embedded catalogs are malformed.
func MustNew(lang string) *Catalog {
	c, err := New(lang, nil)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) load(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file MessageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := make(map[string]string, len(file.Messages))
	for _, msg := range file.Messages {
		m[msg.ID] = msg.Translation
	}
	c.translations[lang] = m

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"language": lang, "count": len(m)}).Debug("loaded translations")
	}
	return nil
}

// Match returns the supported language closest to s, which may be a bare
// code ("en-US") or an Accept-Language style list.
func (c *Catalog) Match(s string) string {
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(s)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(c.supported) {
		return DefaultLanguage
	}
	base, _ := c.supported[idx].Base()
	return base.String()
}

// SetLanguage switches the active catalog.
func (c *Catalog) SetLanguage(lang string) {
	matched := c.Match(lang)
	c.mu.Lock()
	c.lang = matched
	c.mu.Unlock()
}

// Language returns the active language code.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lang
}

// T translates key into the active language, falling back to the default
// language and finally to the key itself. args are applied with Sprintf.
func (c *Catalog) T(key string, args ...any) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	translation, ok := c.translations[c.lang][key]
	if !ok && c.lang != DefaultLanguage {
		translation, ok = c.translations[DefaultLanguage][key]
		if ok && c.logger != nil {
			c.logger.WithFields(logrus.Fields{"key": key, "language": c.lang}).Debug("missing translation, using default")
		}
	}
	if !ok {
		return key
	}

	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// Count returns how many keys the given language defines.
func (c *Catalog) Count(lang string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.translations[lang])
}
