// Package i18n serves the UI label dictionaries. Dictionaries are embedded
// at build time; requesting an unsupported language falls back to English.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed labels/*.json
var labelFS embed.FS

var supported = map[string]bool{
	"en": true,
	"sv": true,
}

// Labels returns the label dictionary for lang, defaulting to "en" when the
// language is unknown.
func Labels(lang string) (map[string]string, error) {
	if !supported[lang] {
		lang = "en"
	}
	data, err := labelFS.ReadFile("labels/" + lang + ".json")
	if err != nil {
		return nil, fmt.Errorf("read label dictionary %q: %w", lang, err)
	}
	var labels map[string]string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse label dictionary %q: %w", lang, err)
	}
	return labels, nil
}
