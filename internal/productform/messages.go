package productform

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// DefaultLocale is also the fallback for keys a locale does not define.
const DefaultLocale = "es"

// Messages is a flat key -> text catalog.
type Messages struct {
	locale string
	texts  map[string]string
}

// LoadMessages reads the embedded catalog for locale layered over the
// default one.
func LoadMessages(locale string) (*Messages, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}
	texts, err := readLocale(DefaultLocale)
	if err != nil {
		return nil, err
	}
	if locale != DefaultLocale {
		over, err := readLocale(locale)
		if err != nil {
			return nil, err
		}
		for k, v := range over {
			texts[k] = v
		}
	}
	return &Messages{locale: locale, texts: texts}, nil
}

// MustMessages is LoadMessages for the embedded locales known to exist.
func MustMessages(locale string) *Messages {
	m, err := LoadMessages(locale)
	if err != nil {
		panic(err)
	}
	return m
}

func readLocale(locale string) (map[string]string, error) {
	raw, err := locales.ReadFile("locales/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q", locale)
	}
	texts := map[string]string{}
	if err := yaml.Unmarshal(raw, &texts); err != nil {
		return nil, fmt.Errorf("locale %s: %w", locale, err)
	}
	return texts, nil
}

func (m *Messages) Locale() string { return m.locale }

// Get returns the text for key, or the key itself when it is unknown.
func (m *Messages) Get(key string) string {
	if m == nil {
		return key
	}
	if v, ok := m.texts[key]; ok {
		return v
	}
	return key
}
