package models

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"captioner/internal/config"
	"captioner/internal/services"
)

// Providers understood by the registry.
const (
	ProviderWhisper     = "whisper"
	ProviderHuggingFace = "huggingface"
)

const (
	whisperBaseURL  = "https://openaipublic.azureedge.net/main/whisper/models/"
	defaultRevision = "main"
)

// Definition describes one downloadable model artifact. File definitions
// carry a Locator and pinned Digest; directory definitions name a Hugging Face
// Repo whose per-file digests come from the hub at acquisition time.
type Definition struct {
	Name     string
	Provider string
	Kind     Kind
	Locator  string
	Digest   string
	FileName string
	Repo     string
	Revision string
	// Files narrows a repository snapshot; empty takes every file.
	Files []string
}

// ctranslate2Repos are WhisperX-loadable conversions of the OpenAI checkpoints.
var ctranslate2Repos = []string{
	"tiny.en", "tiny", "base.en", "base", "small.en", "small",
	"medium.en", "medium", "large-v1", "large-v2", "large-v3",
}

// whisperCheckpoints lists the OpenAI checkpoints as "<sha256>/<file>" URL
// suffixes. The sha256 directory doubles as the expected digest.
var whisperCheckpoints = []struct {
	name   string
	suffix string
}{
	{"tiny.en", "d3dd57d32accea0b295c96e26691aa14d8822fac7d9d27d5dc00b4ca2826dd03/tiny.en.pt"},
	{"tiny", "65147644a518d12f04e32d6f3b26facc3f8dd46e5390956a9424a650c0ce22b9/tiny.pt"},
	{"base.en", "25a8566e1d0c1e2231d1c762132cd20e0f96a85d16145c3a00adf5d1ac670ead/base.en.pt"},
	{"base", "ed3a0b6b1c0edf879ad9b11b1af5a0e6ab5db9205f891f668f8b0e6c6326e34e/base.pt"},
	{"small.en", "f953ad0fd29cacd07d5a9eda5624af0f6bcf2258be67c92b79389873d91e0872/small.en.pt"},
	{"small", "9ecf779972d90ba49c06d968637d720dd632c55bbf19d441fb42bf17a411e794/small.pt"},
	{"medium.en", "d7440d1dc186f76616474e0ff0b3b6b879abc9d1a4926b7adfa41db2d497ab4f/medium.en.pt"},
	{"medium", "345ae4da62f9b3d59415adc60127b97c714f32e89e936602e85993674d08dcb1/medium.pt"},
	{"large-v1", "e4b87e7e0bf463eb8e6956e646f1e277e901512310def2c24bf0e11bd3c28e9a/large-v1.pt"},
	{"large-v2", "81f7c96c852ee8fc832187b0132e569d6c3065a3252ed18e56effd0b6a73e524/large-v2.pt"},
	{"large-v3", "e5b1a55b89c1367dacf97e3e19bfd829a01529dbfdeefa8caeb59b3f1b81dadb/large-v3.pt"},
	{"large", "e5b1a55b89c1367dacf97e3e19bfd829a01529dbfdeefa8caeb59b3f1b81dadb/large-v3.pt"},
	{"large-v3-turbo", "aff26ae408abcba5fbf8813c21e62b0941638c5f6eebfb145be0c9839262a19a/large-v3-turbo.pt"},
	{"turbo", "aff26ae408abcba5fbf8813c21e62b0941638c5f6eebfb145be0c9839262a19a/large-v3-turbo.pt"},
}

// Registry resolves model names to download definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns the built-in whisper checkpoints merged with extra
// entries from configuration. Extra entries replace built-ins of the same name.
func NewRegistry(extra []config.ModelEntry) (*Registry, error) {
	defs := make(map[string]Definition, len(whisperCheckpoints)+len(extra))
	for _, cp := range whisperCheckpoints {
		locator := whisperBaseURL + cp.suffix
		digest, file, err := splitDigestURL(locator)
		if err != nil {
			return nil, err
		}
		defs[cp.name] = Definition{
			Name:     cp.name,
			Provider: ProviderWhisper,
			Kind:     KindFile,
			Locator:  locator,
			Digest:   digest,
			FileName: file,
		}
	}
	for _, size := range ctranslate2Repos {
		name := "faster-whisper-" + size
		defs[name] = Definition{
			Name:     name,
			Provider: ProviderHuggingFace,
			Kind:     KindDirectory,
			Repo:     "Systran/" + name,
			Revision: defaultRevision,
		}
	}
	for _, entry := range extra {
		def, err := definitionFromEntry(entry)
		if err != nil {
			return nil, err
		}
		defs[def.Name] = def
	}
	return &Registry{defs: defs}, nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, error) {
	key := strings.TrimSpace(name)
	def, ok := r.defs[key]
	if !ok {
		return Definition{}, services.Wrap(
			services.ErrNotFound,
			"acquire",
			"lookup model",
			fmt.Sprintf("unknown model %q (known: %s)", key, strings.Join(r.Names(), ", ")),
			nil,
		)
	}
	return def, nil
}

// Names returns registered model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every registered model ordered by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		out = append(out, r.defs[name])
	}
	return out
}

func definitionFromEntry(entry config.ModelEntry) (Definition, error) {
	provider := entry.Provider
	if provider == "" {
		provider = ProviderHuggingFace
	}
	if entry.Repo != "" {
		revision := entry.Revision
		if revision == "" {
			revision = defaultRevision
		}
		return Definition{
			Name:     entry.Name,
			Provider: ProviderHuggingFace,
			Kind:     KindDirectory,
			Repo:     entry.Repo,
			Revision: revision,
			Files:    append([]string(nil), entry.Files...),
		}, nil
	}
	file := entry.FileName
	if file == "" {
		parsed, err := url.Parse(entry.URL)
		if err != nil {
			return Definition{}, services.Wrap(services.ErrConfiguration, "acquire", "register model", fmt.Sprintf("model %q has invalid url", entry.Name), err)
		}
		file = path.Base(parsed.Path)
	}
	if file == "" || file == "." || file == "/" {
		return Definition{}, services.Wrap(services.ErrConfiguration, "acquire", "register model", fmt.Sprintf("model %q has no file name", entry.Name), nil)
	}
	return Definition{
		Name:     entry.Name,
		Provider: provider,
		Kind:     KindFile,
		Locator:  entry.URL,
		Digest:   strings.ToLower(entry.SHA256),
		FileName: file,
	}, nil
}

// splitDigestURL extracts the digest directory and file name from an OpenAI
// checkpoint URL of the form .../<sha256>/<file>.
func splitDigestURL(locator string) (string, string, error) {
	parsed, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("parse checkpoint url %q: %w", locator, err)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("checkpoint url %q lacks a digest segment", locator)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
