package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cinereco/internal/dataset"
)

func sqlType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInt:
		return "BIGINT"
	case dataset.TypeFloat:
		return "DOUBLE"
	case dataset.TypeDate:
		return "DATE"
	default:
		return "VARCHAR"
	}
}

// encodeValue converts a cell to a DuckDB parameter.
func encodeValue(t dataset.ColumnType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch t {
	case dataset.TypeStringList, dataset.TypeIntList:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	case dataset.TypeDate:
		date, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("date cell holds %T", value)
		}
		if date.IsZero() {
			return nil, nil
		}
		return date, nil
	default:
		return value, nil
	}
}

// decodeValue converts a scanned DuckDB value back to the cell type of f.
func decodeValue(f dataset.Field, value any) (any, error) {
	if value == nil {
		if f.Type == dataset.TypeStringList {
			return []string{}, nil
		}
		if f.Type == dataset.TypeIntList {
			return []int64{}, nil
		}
		return nil, nil
	}
	switch f.Type {
	case dataset.TypeString:
		return toString(value), nil
	case dataset.TypeInt:
		return toInt(value)
	case dataset.TypeFloat:
		return toFloat(value)
	case dataset.TypeDate:
		date, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("column %s: %T is not a date", f.Name, value)
		}
		return date.UTC(), nil
	case dataset.TypeStringList:
		list := []string{}
		if err := decodeJSONList(toString(value), &list); err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		return list, nil
	case dataset.TypeIntList:
		list := []int64{}
		if err := decodeJSONList(toString(value), &list); err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		return list, nil
	default:
		return value, nil
	}
}

func decodeJSONList(text string, dst any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return json.Unmarshal([]byte(text), dst)
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%T is not an integer", value)
	}
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%T is not a number", value)
	}
}

// quoteIdent double-quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes a SQL string literal.
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func sanitizeIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
