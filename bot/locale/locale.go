// Package locale resolves dotted translation keys against per-locale
// YAML catalogs.
package locale

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"
)

// DefaultLocale is used when a requested locale has no catalog.
const DefaultLocale = "en-US"

// Locale identifiers Discord can hand us. A catalog file with any
// other stem fails the whole load.
var validLocales = map[string]struct{}{
	"id": {}, "da": {}, "de": {}, "en-GB": {}, "en-US": {}, "es-ES": {},
	"es-419": {}, "fr": {}, "hr": {}, "it": {}, "lt": {}, "hu": {},
	"nl": {}, "no": {}, "pl": {}, "pt-BR": {}, "ro": {}, "fi": {},
	"sv-SE": {}, "vi": {}, "tr": {}, "cs": {}, "el": {}, "bg": {},
	"ru": {}, "uk": {}, "hi": {}, "th": {}, "zh-CN": {}, "ja": {},
	"zh-TW": {}, "ko": {},
}

// KeyError is returned when a key path segment does not exist. Prefix
// is the deepest valid path reached, including the locale; Suggestion
// is the closest sibling key, if any is close enough.
type KeyError struct {
	Prefix     string
	Missing    string
	Suggestion string
}

func (e *KeyError) Error() string {
	msg := fmt.Sprintf("%q has no key %q", e.Prefix, e.Missing)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean %q?", e.Suggestion)
	}
	return msg
}

// TemplateError is returned when a key path resolves to something
// other than a template string.
type TemplateError struct {
	Key string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid translation key %q: does not resolve to a string", e.Key)
}

// Catalog is a loaded set of locale documents. It is immutable; a
// reload builds a new Catalog and swaps the reference.
type Catalog struct {
	locales map[string]map[string]any
}

// Load reads every YAML document in dir. The load is all or nothing: a
// single invalid file or unrecognized locale identifier fails the
// whole load with the per-file errors aggregated, and no partial
// catalog is ever returned.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	locales := make(map[string]map[string]any)
	var errs error

	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}

		id := strings.TrimSuffix(name, ext)
		if _, ok := validLocales[id]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("%q is not a valid locale", id))
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("parsing %s: %w", name, err))
			continue
		}

		locales[id] = doc
	}

	if errs != nil {
		return nil, errs
	}
	if _, ok := locales[DefaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q has no catalog in %s", DefaultLocale, dir)
	}

	return &Catalog{locales: locales}, nil
}

// Locales returns the loaded locale identifiers.
func (c *Catalog) Locales() []string {
	ids := make([]string, 0, len(c.locales))
	for id := range c.locales {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether a catalog for the locale was loaded.
func (c *Catalog) Has(locale string) bool {
	_, ok := c.locales[locale]
	return ok
}

// Translate resolves a dotted key against the locale's catalog and
// formats the template with positional {0}, {1}, ... arguments.
// Unknown locales silently fall back to the default locale.
func (c *Catalog) Translate(key, locale string, args ...any) (string, error) {
	if _, ok := c.locales[locale]; !ok {
		locale = DefaultLocale
	}

	var current any = c.locales[locale]
	segments := strings.Split(key, ".")

	for i, segment := range segments {
		mapping, ok := current.(map[string]any)
		if !ok {
			return "", &TemplateError{Key: key}
		}

		next, ok := mapping[segment]
		if !ok {
			prefix := locale
			if i > 0 {
				prefix += "." + strings.Join(segments[:i], ".")
			}
			return "", &KeyError{
				Prefix:     prefix,
				Missing:    segment,
				Suggestion: closestKey(segment, mapping),
			}
		}
		current = next
	}

	template, ok := current.(string)
	if !ok {
		return "", &TemplateError{Key: key}
	}

	return format(template, args...)
}

// closestKey returns the sibling key nearest to missing, or "" when
// nothing is close enough to be a plausible typo.
func closestKey(missing string, siblings map[string]any) string {
	best := ""
	bestDist := -1
	for key := range siblings {
		dist := levenshtein.ComputeDistance(missing, key)
		if bestDist == -1 || dist < bestDist {
			best, bestDist = key, dist
		}
	}

	limit := len(missing) / 2
	if limit < 2 {
		limit = 2
	}
	if bestDist == -1 || bestDist > limit {
		return ""
	}
	return best
}

// format substitutes {0}, {1}, ... placeholders. Referencing an
// argument that was not provided is an error.
func format(template string, args ...any) (string, error) {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		if template[i] != '{' {
			b.WriteByte(template[i])
			continue
		}

		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}

		index := 0
		digits := template[i+1 : i+end]
		valid := len(digits) > 0
		for _, r := range digits {
			if r < '0' || r > '9' {
				valid = false
				break
			}
			index = index*10 + int(r-'0')
		}

		if !valid {
			// Not a positional placeholder, keep it verbatim.
			b.WriteString(template[i : i+end+1])
			i += end
			continue
		}

		if index >= len(args) {
			return "", fmt.Errorf("template %q references argument {%d} but only %d given", template, index, len(args))
		}
		fmt.Fprint(&b, args[index])
		i += end
	}
	return b.String(), nil
}
