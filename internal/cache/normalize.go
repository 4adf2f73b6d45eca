package cache

import (
	"fmt"
	"path/filepath"

	"github.com/sstent/garmin-summary/internal/models"
)

// FromList keys records by base filename. Later duplicates win.
func FromList(records []*models.Summary) map[string]*models.Summary {
	out := make(map[string]*models.Summary, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		out[filepath.Base(r.Filename)] = r
	}
	return out
}

// FromRecord wraps a single record.
func FromRecord(r *models.Summary) map[string]*models.Summary {
	if r == nil {
		return map[string]*models.Summary{}
	}
	return FromList([]*models.Summary{r})
}

// Normalize accepts any snapshot shape a store may hand back (a map, a list
// or a single record, by value or pointer) and returns a filename keyed map.
func Normalize(v any) (map[string]*models.Summary, error) {
	switch x := v.(type) {
	case nil:
		return map[string]*models.Summary{}, nil
	case map[string]*models.Summary:
		list := make([]*models.Summary, 0, len(x))
		for _, r := range x {
			list = append(list, r)
		}
		return FromList(list), nil
	case map[string]models.Summary:
		list := make([]*models.Summary, 0, len(x))
		for _, r := range x {
			r := r
			list = append(list, &r)
		}
		return FromList(list), nil
	case []*models.Summary:
		return FromList(x), nil
	case []models.Summary:
		list := make([]*models.Summary, len(x))
		for i := range x {
			list[i] = &x[i]
		}
		return FromList(list), nil
	case *models.Summary:
		return FromRecord(x), nil
	case models.Summary:
		return FromRecord(&x), nil
	}
	return nil, fmt.Errorf("unsupported snapshot type %T", v)
}

func cloneSnapshot(in map[string]*models.Summary) map[string]*models.Summary {
	out := make(map[string]*models.Summary, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		c := *v
		out[k] = &c
	}
	return out
}
