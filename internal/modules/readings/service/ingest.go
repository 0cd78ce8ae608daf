package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"waterwatch-server/internal/modules/readings/types"
)

// parsed is the outcome of converting one payload value: either a number,
// or the raw text that failed to parse.
type parsed struct {
	raw   string
	value float64
	ok    bool
}

func parseField(raw string) parsed {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	// out-of-range literals parse to ±Inf and fail the finiteness check instead
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return parsed{raw: raw}
	}
	return parsed{raw: raw, value: v, ok: true}
}

// Submit validates payload and appends one reading. Nothing is written when
// a field is missing or invalid.
func (s *Service) Submit(ctx context.Context, payload types.Payload) (types.Reading, error) {
	return s.Ingest(ctx, SourceHTTP, payload)
}

// Ingest is Submit with an explicit source label for metrics and logs.
func (s *Service) Ingest(ctx context.Context, source string, payload types.Payload) (types.Reading, error) {
	ph, ntu, tds, err := s.validate(payload)
	if err != nil {
		s.metrics.RecordRejected(source, rejectReason(err))
		return types.Reading{}, err
	}

	reading, err := s.repository.Append(ctx, ph, ntu, tds)
	if err != nil {
		s.metrics.RecordRejected(source, rejectReason(err))
		s.logger.Error("append reading failed", "source", source, "error", err)
		return types.Reading{}, err
	}

	s.metrics.RecordIngested(source)
	s.logger.Debug("reading stored", "source", source, "id", reading.ID, "ph", ph, "ntu", ntu, "tds", tds)
	return reading, nil
}

func (s *Service) validate(payload types.Payload) (ph, ntu, tds float64, err error) {
	var missing []string
	for _, f := range types.RequiredFields {
		if strings.TrimSpace(payload[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return 0, 0, 0, &types.MissingFieldsError{Fields: missing}
	}

	values := make(map[string]float64, len(types.RequiredFields))
	for _, f := range types.RequiredFields {
		p := parseField(payload[f])
		if !p.ok {
			if !s.lenient {
				return 0, 0, 0, &types.ValidationError{Field: f, Value: p.raw, Reason: "not a number"}
			}
			s.logger.Warn("coercing unparseable field to 0", "field", f, "value", p.raw)
		}
		if err := checkRange(f, p); err != nil {
			return 0, 0, 0, err
		}
		values[f] = p.value
	}
	return values[types.FieldPH], values[types.FieldNTU], values[types.FieldTDS], nil
}

func checkRange(field string, p parsed) error {
	v := p.value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &types.ValidationError{Field: field, Value: p.raw, Reason: "must be finite"}
	}
	switch field {
	case types.FieldPH:
		if v < 0 || v > 14 {
			return &types.ValidationError{Field: field, Value: p.raw, Reason: "must be within [0, 14]"}
		}
	default:
		if v < 0 {
			return &types.ValidationError{Field: field, Value: p.raw, Reason: "must be >= 0"}
		}
	}
	return nil
}

func rejectReason(err error) string {
	var missing *types.MissingFieldsError
	var invalid *types.ValidationError
	switch {
	case errors.As(err, &missing):
		return "missing_fields"
	case errors.As(err, &invalid):
		return "validation"
	default:
		return "storage"
	}
}

// StoredMessage is the human-readable confirmation echoed after a write.
func StoredMessage(r types.Reading) string {
	return "stored: pH=" + formatFloat(r.PH) + ", NTU=" + formatFloat(r.NTU) + ", TDS=" + formatFloat(r.TDS)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
