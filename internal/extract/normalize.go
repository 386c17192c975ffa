package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minYear = 1950
	maxYear = 2100
)

var vinStripRE = regexp.MustCompile(`[\s\-]+`)

// Normalize converts the extraction model's untyped output into a Listing,
// enforcing every schema constraint. Validation is atomic: the first
// violation rejects the whole record and no Listing is produced.
func Normalize(raw map[string]any) (Listing, error) {
	var l Listing

	postID, err := stringField(raw, "post_id")
	if err != nil {
		return Listing{}, err
	}
	if postID == "" {
		return Listing{}, fmt.Errorf("post_id is required")
	}
	l.PostID = postID

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"url", &l.URL},
		{"title", &l.Title},
		{"make", &l.Make},
		{"model", &l.Model},
		{"trim", &l.Trim},
		{"color", &l.Color},
		{"condition", &l.Condition},
		{"location", &l.Location},
		{"posted_iso", &l.PostedISO},
		{"body", &l.Body},
	} {
		v, err := stringField(raw, f.key)
		if err != nil {
			return Listing{}, err
		}
		*f.dst = v
	}

	if l.Price, err = intField(raw, "price"); err != nil {
		return Listing{}, err
	}
	if l.Price != nil && *l.Price < 0 {
		return Listing{}, fmt.Errorf("price %d is negative", *l.Price)
	}

	if l.Mileage, err = intField(raw, "mileage"); err != nil {
		return Listing{}, err
	}
	if l.Mileage != nil && *l.Mileage < 0 {
		return Listing{}, fmt.Errorf("mileage %d is negative", *l.Mileage)
	}

	if l.Year, err = intField(raw, "year"); err != nil {
		return Listing{}, err
	}
	if l.Year != nil && (*l.Year < minYear || *l.Year > maxYear) {
		return Listing{}, fmt.Errorf("year %d outside [%d, %d]", *l.Year, minYear, maxYear)
	}

	vin, err := stringField(raw, "vin")
	if err != nil {
		return Listing{}, err
	}
	l.VIN = strings.ToUpper(vinStripRE.ReplaceAllString(vin, ""))

	trans, err := stringField(raw, "transmission")
	if err != nil {
		return Listing{}, err
	}
	if trans != "" {
		canonical, ok := canonicalTransmission(trans)
		if !ok {
			return Listing{}, fmt.Errorf("transmission %q not one of %v", trans, Transmissions)
		}
		l.Transmission = canonical
	}

	if v, ok := raw["attrs_json"]; ok && v != nil {
		attrs, ok := v.(map[string]any)
		if !ok {
			return Listing{}, fmt.Errorf("attrs_json: expected object, got %T", v)
		}
		l.Attrs = attrs
	}

	return l, nil
}

func canonicalTransmission(s string) (string, bool) {
	for _, t := range Transmissions {
		if strings.EqualFold(strings.TrimSpace(s), t) {
			return t, true
		}
	}
	return "", false
}

func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return strings.TrimSpace(s), nil
}

// intField accepts the numeric shapes that show up in decoded model output:
// Go ints, JSON floats (only when integral), json.Number, and numeric
// strings with optional commas.
func intField(raw map[string]any, key string) (*int, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case int:
		return &n, nil
	case int64:
		i := int(n)
		return &i, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%s: %v is not an integer", key, n)
		}
		i := int(n)
		return &i, nil
	case json.Number:
		i64, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		i := int(i64)
		return &i, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", key, n)
		}
		return &i, nil
	default:
		return nil, fmt.Errorf("%s: expected integer, got %T", key, v)
	}
}
