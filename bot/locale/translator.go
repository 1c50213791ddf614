package locale

import "go.uber.org/zap"

// Translator binds a catalog to a single locale. It is the form
// handed to rendering code, which should not care about locales.
type Translator struct {
	catalog *Catalog
	locale  string
	log     *zap.Logger
}

// NewTranslator creates a Translator for the given locale. The locale
// does not need a catalog of its own; lookups fall back to the default.
func NewTranslator(catalog *Catalog, locale string, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Translator{catalog: catalog, locale: locale, log: log}
}

// Locale returns the bound locale.
func (t *Translator) Locale() string { return t.locale }

// T translates a key. Resolution failures are logged and render as an
// empty string so a missing translation never takes a dialog down.
func (t *Translator) T(key string, args ...any) string {
	s, err := t.catalog.Translate(key, t.locale, args...)
	if err != nil {
		t.log.Error("translation failed",
			zap.String("key", key),
			zap.String("locale", t.locale),
			zap.Error(err),
		)
		return ""
	}
	return s
}
