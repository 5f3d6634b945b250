package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator maps message keys to display text for one language.
type Translator struct {
	translations map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T translates a key, formatting args into the message. Unknown keys come
// back verbatim so a missing entry is visible instead of silent.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Registry holds one Translator per supported language and falls back to the
// default language for anything it does not recognize.
type Registry struct {
	byLang      map[string]*Translator
	defaultLang string
}

func NewRegistry(fsys fs.FS, langs []string, defaultLang string) (*Registry, error) {
	if len(langs) == 0 {
		return nil, fmt.Errorf("no languages configured")
	}
	byLang := make(map[string]*Translator, len(langs))
	for _, lang := range langs {
		tr, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		byLang[lang] = tr
	}
	if _, ok := byLang[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no locale table", defaultLang)
	}
	return &Registry{byLang: byLang, defaultLang: defaultLang}, nil
}

// Supported reports whether lang has its own locale table.
func (r *Registry) Supported(lang string) bool {
	_, ok := r.byLang[lang]
	return ok
}

// ForLang returns the Translator for lang, or the default-language one.
func (r *Registry) ForLang(lang string) *Translator {
	if tr, ok := r.byLang[lang]; ok {
		return tr
	}
	return r.byLang[r.defaultLang]
}

// DefaultLang is the configured fallback language code.
func (r *Registry) DefaultLang() string { return r.defaultLang }
