package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/filter"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

var validate = validator.New()

// Recorder receives domain events worth counting
type Recorder interface {
	bulk.Recorder
	ObserveConversion(err error)
	ObserveStageChange(stage string)
	ObserveExport(err error)
	ObserveImport(entity string, created, failed int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBatch(string, string, bulk.Policy, int, int, time.Duration) {}
func (nopRecorder) ObserveConversion(error)                                           {}
func (nopRecorder) ObserveStageChange(string)                                         {}
func (nopRecorder) ObserveExport(error)                                               {}
func (nopRecorder) ObserveImport(string, int, int)                                    {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// notFoundOr converts gorm.ErrRecordNotFound into a NotFoundError and wraps anything else
func notFoundOr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

// parseQuery turns the structured filters of a list query into predicates
func parseQuery(query domain.ListQuery) (filter.Filters, error) {
	active, err := filter.ParseFilters(query.Filters)
	if err != nil {
		return nil, newFieldError("filters", err.Error())
	}
	return active, nil
}

// paginate slices an already filtered collection
func paginate[T any](items []T, page, pageSize int) ([]T, *domain.PaginatedResponse) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	return items[start:end], &domain.PaginatedResponse{
		Total:      int64(total),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// decodeRow decodes a loosely typed import row into target. Keys match json
// tags case-insensitively, ignoring '_' and '-', so "postal_code" fills PostalCode.
// Empty values are treated as absent.
func decodeRow(row map[string]any, target any) error {
	cleaned := make(map[string]any, len(row))
	for k, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v = s
		}
		cleaned[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
		DecodeHook: mapstructure.ComposeDecodeHookFunc(stringToUUIDHook, stringToTimeHook),
		Result:     target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(cleaned)
}

func normalizeKey(s string) string {
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToLower(s)
}

var (
	uuidType = reflect.TypeOf(uuid.UUID{})
	timeType = reflect.TypeOf(time.Time{})
)

func stringToUUIDHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != uuidType {
		return data, nil
	}
	return uuid.Parse(data.(string))
}

func stringToTimeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := data.(string)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// importRowError describes a rejected row
func importRowError(index int, err error) domain.ImportRowError {
	rowErr := domain.ImportRowError{Row: index + 1, Error: err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) {
		rowErr.Fields = ve.Fields
	}
	return rowErr
}
