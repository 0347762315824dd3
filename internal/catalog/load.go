package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Load reads the catalog file. Entries that are not objects or cannot be
// decoded into a Posting are skipped.
func Load(path string, logger *zap.Logger) ([]Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	// Numbers stay json.Number so large ids keep every digit.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var entries []any
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalog %s: unexpected data after the posting list", path)
	}

	postings, skipped := Decode(entries)
	if logger != nil && skipped > 0 {
		logger.Debug("skipping malformed catalog entries",
			zap.String("path", path),
			zap.Int("skipped", skipped),
			zap.Int("loaded", len(postings)),
		)
	}

	return postings, nil
}

// Decode converts generic JSON entries into postings and reports how many
// entries were dropped as malformed.
func Decode(entries []any) ([]Posting, int) {
	postings := make([]Posting, 0, len(entries))
	skipped := 0

	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			skipped++
			continue
		}

		posting, err := decodePosting(fields)
		if err != nil {
			skipped++
			continue
		}
		postings = append(postings, posting)
	}

	return postings, skipped
}

func decodePosting(fields map[string]any) (Posting, error) {
	var posting Posting

	cfg := &mapstructure.DecoderConfig{
		DecodeHook:       sectorHook,
		WeaklyTypedInput: true,
		Result:           &posting,
		TagName:          "mapstructure",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return Posting{}, err
	}

	if raw, ok := fields["id"]; ok {
		id, err := idText(raw)
		if err != nil {
			return Posting{}, err
		}
		fields = withID(fields, id)
	}

	if err := decoder.Decode(fields); err != nil {
		return Posting{}, err
	}

	return posting, nil
}

// idText renders a catalog id as text. Empty or zero ids (0, false, null, "",
// [] and {}) yield "" so the posting falls back to its title and org.
func idText(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case bool:
		if !id {
			return "", nil
		}
		return "true", nil
	case json.Number:
		if f, err := id.Float64(); err == nil && f == 0 {
			return "", nil
		}
		return id.String(), nil
	case float64:
		if id == 0 {
			return "", nil
		}
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case []any:
		if len(id) == 0 {
			return "", nil
		}
	case map[string]any:
		if len(id) == 0 {
			return "", nil
		}
	}
	return "", fmt.Errorf("unsupported id %v", v)
}

func withID(fields map[string]any, id string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	out["id"] = id
	return out
}

var sectorType = reflect.TypeOf(Sector{})

// sectorHook turns the string or list form of a sector into a Sector that
// remembers which form it came from.
func sectorHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != sectorType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return SectorText(v), nil
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				values = append(values, s)
			case json.Number:
				values = append(values, s.String())
			default:
				return nil, fmt.Errorf("unsupported sector value %v", item)
			}
		}
		return NewSector(values...), nil
	case []string:
		return NewSector(v...), nil
	default:
		return data, nil
	}
}
