package track

import (
	"bytes"
	"embed"
	"fmt"
	"os"

	"github.com/samber/lo"
)

//go:embed maps/*.svg
var mapFS embed.FS

type catalogEntry struct {
	name string
	file string
}

// cup order
var catalog = []catalogEntry{
	{name: "Pool", file: "maps/pool.svg"},
	{name: "Uphill Both Ways", file: "maps/uphill-both-ways.svg"},
	{name: "Milky Way", file: "maps/milky-way.svg"},
}

// Catalog returns the names of the embedded tracks in cup order.
func Catalog() []string {
	return lo.Map(catalog, func(e catalogEntry, _ int) string { return e.name })
}

// LoadEmbedded compiles the embedded track with the given name.
func LoadEmbedded(name string, opts ...CompileOption) (*Track, error) {
	e, ok := lo.Find(catalog, func(e catalogEntry) bool { return e.name == name })
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrack, name)
	}
	data, err := mapFS.ReadFile(e.file)
	if err != nil {
		return nil, err
	}
	return Compile(bytes.NewReader(data), append([]CompileOption{WithName(name)}, opts...)...)
}

// NextInCup returns the track following name in a cup.
// The second return value is false if name is the last (or unknown) track.
func NextInCup(name string) (string, bool) {
	_, idx, ok := lo.FindIndexOf(catalog, func(e catalogEntry) bool { return e.name == name })
	if !ok || idx+1 >= len(catalog) {
		return "", false
	}
	return catalog[idx+1].name, true
}

// LoadFile compiles the svg file at path. The track is named after the file.
func LoadFile(path string, opts ...CompileOption) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Compile(f, append([]CompileOption{WithName(path)}, opts...)...)
}

// Load resolves nameOrPath against the catalog first and falls back to a file.
func Load(nameOrPath string, opts ...CompileOption) (*Track, error) {
	if IsEmbedded(nameOrPath) {
		return LoadEmbedded(nameOrPath, opts...)
	}
	return LoadFile(nameOrPath, opts...)
}

func IsEmbedded(name string) bool {
	return lo.ContainsBy(catalog, func(e catalogEntry) bool { return e.name == name })
}
