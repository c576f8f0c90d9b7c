package model

import (
	"fmt"
	"strings"
)

// Level is the administrative level of a region.
// A region's level is the depth at which the crawler found it; it is never
// inferred from the region's code or name.
type Level int

const (
	// LevelProvince is depth 0: provinces, autonomous regions and municipalities.
	LevelProvince Level = iota

	// LevelCity is depth 1: prefecture-level divisions.
	LevelCity

	// LevelCounty is depth 2: county-level divisions.
	LevelCounty

	// LevelTown is depth 3: township-level divisions.
	LevelTown

	// LevelVillage is depth 4: village-level divisions.
	LevelVillage
)

// LevelCount is the number of administrative levels, and therefore the
// largest valid crawl depth.
const LevelCount = 5

// levelNames is indexed by Level.
var levelNames = [LevelCount]string{
	"province",
	"city",
	"county",
	"town",
	"village",
}

// LevelAt returns the level of regions found at the given crawl depth.
// ok is false when depth is outside 0..LevelCount-1.
func LevelAt(depth int) (Level, bool) {
	if depth < 0 || depth >= LevelCount {
		return 0, false
	}
	return Level(depth), true
}

// Levels returns all levels from province to village.
func Levels() []Level {
	levels := make([]Level, LevelCount)
	for i := range levels {
		levels[i] = Level(i)
	}
	return levels
}

// Valid reports whether l is one of the five defined levels.
func (l Level) Valid() bool {
	return l >= LevelProvince && l <= LevelVillage
}

// CSSName returns the lower-case name the source markup uses as a class
// prefix for this level, e.g. "province" for ".provincetable".
func (l Level) CSSName() string {
	if !l.Valid() {
		return ""
	}
	return levelNames[l]
}

// String returns the upper-case level name written to exports.
func (l Level) String() string {
	if !l.Valid() {
		return "UNKNOWN"
	}
	return strings.ToUpper(levelNames[l])
}

// ParseLevel parses a level name in any letter case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown region level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid region level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
