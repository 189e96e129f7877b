package sqlcatalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

var _ catalog.SearchService = (*Search)(nil)

// probeTemplate matches a term against an object's name, description and
// the values of map annotations linked to it. %[1]s is the object table.
const probeTemplate = `select o.id from %[1]s o
where lower(o.name) like :term escape '!'
   or lower(coalesce(o.description, '')) like :term escape '!'
   or exists (select 1 from %[1]sannotationlink l
              join annotation_mapvalue m on m.annotation_id = l.child
              where l.parent = o.id and lower(m.value) like :term escape '!')
limit 1`

var probes = map[string]string{
	constants.TypeScreen: probeQuery("screen"),
	constants.TypePlate:  probeQuery("plate"),
	constants.TypeImage:  probeQuery("image"),
}

func probeQuery(table string) string {
	return strings.ReplaceAll(probeTemplate, "%[1]s", table)
}

// Search answers full-text probes with case-insensitive substring matches.
// It is stateful: the last probe's result is held until the next one.
type Search struct {
	store *Store

	typeName string
	hit      bool
}

// RestrictType implements catalog.SearchService.
func (s *Search) RestrictType(typeName string) {
	s.typeName = typeName
	s.hit = false
}

// ByFullText implements catalog.SearchService.
func (s *Search) ByFullText(ctx context.Context, term string) error {
	s.hit = false
	if err := ValidateTerm(term); err != nil {
		return err
	}
	query, ok := probes[s.typeName]
	if !ok {
		return errors.NewBadUsageError(term, "unsupported type "+s.typeName)
	}
	params := catalog.NewParams().AddString("term", "%"+escapeLike(strings.ToLower(term))+"%")
	_, found, err := s.store.FindByQuery(ctx, query, params)
	if err != nil {
		return err
	}
	s.hit = found
	return nil
}

// HasNext implements catalog.SearchService.
func (s *Search) HasNext() bool {
	return s.hit
}

// ValidateTerm rejects terms the full-text engine cannot parse.
func ValidateTerm(term string) error {
	switch {
	case strings.TrimSpace(term) == "":
		return errors.NewBadUsageError(term, "empty term")
	case strings.HasPrefix(term, "*"), strings.HasPrefix(term, "?"):
		return errors.NewBadUsageError(term, "leading wildcard not allowed")
	case utf8.RuneCountInString(term) > constants.MaxSearchTermLength:
		return errors.NewBadUsageError(term, "term too long")
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
