// Package catalog maps short model identifiers to model hub repositories and
// enumerates the fixed set of models the bridge manages.
package catalog

// fallbackNamespace prefixes unknown identifiers so they still resolve to a
// plausible repository under the default organization.
const fallbackNamespace = "Systran/faster-whisper-"

// repoOverrides pins every known identifier to its exact hub repository. The
// naming convention is not regular: "large" lives in a versioned repository
// and "turbo" under a different organization entirely.
var repoOverrides = map[string]string{
	"tiny":   "Systran/faster-whisper-tiny",
	"base":   "Systran/faster-whisper-base",
	"small":  "Systran/faster-whisper-small",
	"medium": "Systran/faster-whisper-medium",
	"large":  "Systran/faster-whisper-large-v3",
	"turbo":  "mobiuslabsgmbh/faster-whisper-large-v3-turbo",

	"tiny.en":   "Systran/faster-whisper-tiny.en",
	"base.en":   "Systran/faster-whisper-base.en",
	"small.en":  "Systran/faster-whisper-small.en",
	"medium.en": "Systran/faster-whisper-medium.en",
}

// Resolve returns the hub repository for a model identifier. Unknown
// identifiers fall back to the default namespace convention; validity of the
// resulting repository is the caller's problem.
func Resolve(model string) string {
	if repo, ok := repoOverrides[model]; ok {
		return repo
	}
	return fallbackNamespace + model
}

// Entry describes one downloadable model preset.
type Entry struct {
	ID          string
	SizeLabel   string
	Description string
	EnglishOnly bool
}

// entries holds the catalog in its fixed enumeration order: multilingual
// models first, then English-only variants.
var entries = []Entry{
	{ID: "tiny", SizeLabel: "~75 MB", Description: "Fastest multilingual model."},
	{ID: "base", SizeLabel: "~142 MB", Description: "Balanced speed/quality, multilingual."},
	{ID: "small", SizeLabel: "~466 MB", Description: "Higher quality multilingual model."},
	{ID: "medium", SizeLabel: "~1.5 GB", Description: "High quality multilingual model."},
	{ID: "large", SizeLabel: "~2.9 GB", Description: "Highest quality multilingual model."},
	{ID: "turbo", SizeLabel: "~1.6 GB", Description: "Faster large-v3 variant."},
	{ID: "tiny.en", SizeLabel: "~75 MB", Description: "Fastest, English-only model.", EnglishOnly: true},
	{ID: "base.en", SizeLabel: "~142 MB", Description: "Balanced speed/quality, English-only.", EnglishOnly: true},
	{ID: "small.en", SizeLabel: "~466 MB", Description: "Higher quality, English-only.", EnglishOnly: true},
	{ID: "medium.en", SizeLabel: "~1.5 GB", Description: "High quality, English-only.", EnglishOnly: true},
}

// Entries returns the catalog in enumeration order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
