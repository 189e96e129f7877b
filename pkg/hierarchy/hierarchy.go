// Package hierarchy scans the on-disk study tree into an in-memory model.
//
// The layout is fixed: a root directory holds idr* study directories, each
// study holds screen* directories, and each screen keeps one entry per plate
// under plates/. Screens are identified by their study-relative path
// ("idr0001-graml-sysgro/screenA"), which is how the catalog names them.
package hierarchy

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

// Hierarchy maps study name to screen name to the plate names found on disk.
type Hierarchy map[string]map[string][]string

// Studies returns the study names in lexicographic order.
func (h Hierarchy) Studies() []string {
	studies := make([]string, 0, len(h))
	for study := range h {
		studies = append(studies, study)
	}
	sort.Strings(studies)
	return studies
}

// Screens returns the screens of a study. The order is sorted for readable
// reports; nothing depends on it for correctness.
func (h Hierarchy) Screens(study string) []string {
	screens := make([]string, 0, len(h[study]))
	for screen := range h[study] {
		screens = append(screens, screen)
	}
	sort.Strings(screens)
	return screens
}

// Plates returns the plate names recorded for a screen of a study.
func (h Hierarchy) Plates(study, screen string) []string {
	return h[study][screen]
}

// Walk calls fn for every (study, screen) pair, studies in lexicographic
// order. Walking stops at the first error.
func (h Hierarchy) Walk(fn func(study, screen string, plates []string) error) error {
	for _, study := range h.Studies() {
		for _, screen := range h.Screens(study) {
			if err := fn(study, screen, h[study][screen]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names returns every screen and plate name on disk in one set.
//
// Screen and plate names share the set, so a plate named like some screen
// elsewhere counts as known. The unknown report relies on this behaviour.
func (h Hierarchy) Names() NameSet {
	names := NameSet{}
	_ = h.Walk(func(_, screen string, plates []string) error {
		names.Add(screen)
		for _, plate := range plates {
			names.Add(plate)
		}
		return nil
	})
	return names
}

// NameSet is a set of on-disk names.
type NameSet map[string]struct{}

// Add inserts a name.
func (s NameSet) Add(name string) { s[name] = struct{}{} }

// Has reports whether name is present.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Scanner walks a study tree on an afero filesystem.
type Scanner struct {
	fs   afero.Fs
	root string
}

// NewScanner creates a scanner rooted at root on fs.
func NewScanner(fs afero.Fs, root string) *Scanner {
	if root == "" {
		root = constants.DefaultRoot
	}
	return &Scanner{fs: fs, root: root}
}

// Root returns the directory the scanner resolves studies against.
func (s *Scanner) Root() string {
	return s.root
}

// Scan enumerates studies, screens and plates. A screen without a plates
// directory gets an empty plate list.
func (s *Scanner) Scan() (Hierarchy, error) {
	h := Hierarchy{}

	studies, err := s.glob(constants.StudyPattern)
	if err != nil {
		return nil, err
	}
	for _, study := range studies {
		screens, err := s.glob(path.Join(study, constants.ScreenPattern))
		if err != nil {
			return nil, err
		}
		for _, screen := range screens {
			plates, err := s.Plates(screen)
			if err != nil {
				return nil, err
			}
			if h[study] == nil {
				h[study] = map[string][]string{}
			}
			h[study][screen] = plates
		}
	}
	return h, nil
}

// Plates lists the plate names under <screen>/plates, where screen is a
// study-relative screen name.
func (s *Scanner) Plates(screen string) ([]string, error) {
	matches, err := s.glob(path.Join(normalize(screen), constants.PlatesDir, "*"))
	if err != nil {
		return nil, err
	}
	plates := make([]string, 0, len(matches))
	for _, m := range matches {
		plates = append(plates, path.Base(m))
	}
	return plates, nil
}

// glob matches a root-relative slash pattern and returns root-relative,
// slash-separated names without trailing separators.
func (s *Scanner) glob(pattern string) ([]string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(pattern))
	matches, err := afero.Glob(s.fs, full)
	if err != nil {
		return nil, errors.WrapIO("glob", full, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(s.root, m)
		if err != nil {
			return nil, errors.WrapIO("glob", m, err)
		}
		names = append(names, normalize(filepath.ToSlash(rel)))
	}
	return names, nil
}

// normalize strips trailing separators so directory names are usable as
// identifiers.
func normalize(name string) string {
	trimmed := strings.TrimRight(name, "/"+string(filepath.Separator))
	if trimmed == "" {
		return name
	}
	return trimmed
}
