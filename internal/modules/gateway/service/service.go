package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"envgate-server/internal/apperr"
	"envgate-server/internal/metrics"
	"envgate-server/internal/modules/gateway/types"
)

const (
	fieldData          = "data"
	fieldTemperature   = "Temperature"
	fieldHumidity      = "Humidity"
	fieldPressure      = "Pressure"
	fieldGasResistance = "Gas_resistance"
	fieldVoltage       = "Voltage"
)

var requiredFields = []string{fieldTemperature, fieldHumidity, fieldPressure, fieldGasResistance}

// Enricher attaches location metadata for a client IP. A nil result means
// enrichment is disabled.
type Enricher interface {
	Enrich(ctx context.Context, ip string) *types.LocationInfo
}

type LatestWriter interface {
	Set(env types.Envelope)
}

// Meta describes where a payload came from.
type Meta struct {
	Source   string
	ClientIP string
}

type Options struct {
	// Strict rejects empty bodies and missing fields with validation errors.
	// When false, missing fields default to 0.
	Strict bool
}

type Service struct {
	latest   LatestWriter
	enricher Enricher
	opts     Options
	logger   *slog.Logger
}

func NewService(latest LatestWriter, enricher Enricher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{latest: latest, enricher: enricher, opts: opts, logger: logger}
}

// Ingest validates body, computes the processed reading, records it as the
// latest envelope and returns it.
func (s *Service) Ingest(ctx context.Context, body []byte, meta Meta) (types.Envelope, error) {
	env, err := s.ingest(ctx, body, meta)
	if err != nil {
		kind := apperr.KindOf(err)
		metrics.IngestFailures.WithLabelValues(kind.String()).Inc()
		if kind == apperr.KindValidation {
			s.logger.Warn("validation error", "source", meta.Source, "error", err)
		} else {
			s.logger.Error("ingest failed", "source", meta.Source, "kind", kind.String(), "error", err)
		}
		return types.Envelope{}, err
	}
	metrics.ReadingsIngested.WithLabelValues(meta.Source).Inc()
	return env, nil
}

func (s *Service) ingest(ctx context.Context, body []byte, meta Meta) (types.Envelope, error) {
	fields, err := s.decode(body)
	if err != nil {
		return types.Envelope{}, err
	}
	s.logger.Info("received data", "source", meta.Source, "client_ip", meta.ClientIP, "fields", len(fields))

	reading, err := s.reading(fields)
	if err != nil {
		return types.Envelope{}, err
	}

	env := types.Envelope{
		Message:     types.ProcessedMessage,
		GatewayData: Process(reading),
	}
	if s.enricher != nil && meta.ClientIP != "" {
		env.Location = s.enricher.Enrich(ctx, meta.ClientIP)
	}

	if s.latest != nil {
		s.latest.Set(env)
	}
	s.logger.Debug("response data",
		"prediction", env.GatewayData.Prediction,
		"enriched", env.Location != nil,
	)
	return env, nil
}

// decode returns the object under "data", applying the strict or lenient body rules.
func (s *Service) decode(body []byte) (map[string]json.RawMessage, error) {
	if s.opts.Strict && len(bytes.TrimSpace(body)) == 0 {
		return nil, apperr.Validation("No data provided")
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		if s.opts.Strict {
			return nil, apperr.Validation("Invalid JSON body")
		}
		return nil, apperr.Internal("decode body", err)
	}
	if s.opts.Strict && len(outer) == 0 {
		return nil, apperr.Validation("No data provided")
	}
	// Lenient mode still needs an object to look "data" up in.
	if outer == nil {
		return nil, apperr.Internal("decode body", errors.New("body is null"))
	}

	raw, ok := outer[fieldData]
	if s.opts.Strict && (!ok || isNull(raw)) {
		return nil, apperr.Validation("Missing required field: %s", requiredFields[0])
	}
	if !ok {
		return map[string]json.RawMessage{}, nil
	}
	if isNull(raw) {
		return nil, apperr.Internal("decode data", errors.New("data is null"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		if s.opts.Strict {
			return nil, apperr.Validation("Invalid field: %s must be an object", fieldData)
		}
		return nil, apperr.Internal("decode data", err)
	}

	if s.opts.Strict {
		for _, name := range requiredFields {
			if _, ok := fields[name]; !ok {
				return nil, apperr.Validation("Missing required field: %s", name)
			}
		}
	}
	return fields, nil
}

func (s *Service) reading(fields map[string]json.RawMessage) (types.Reading, error) {
	var r types.Reading
	targets := map[string]*float64{
		fieldTemperature:   &r.Temperature,
		fieldHumidity:      &r.Humidity,
		fieldPressure:      &r.Pressure,
		fieldGasResistance: &r.GasResistance,
	}
	for _, name := range requiredFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		v, err := toFloat(raw)
		if err != nil {
			return types.Reading{}, apperr.Internal(fmt.Sprintf("field %s", name), err)
		}
		*targets[name] = v
	}

	if raw, ok := fields[fieldVoltage]; ok {
		v, err := toFloat(raw)
		if err != nil {
			return types.Reading{}, apperr.Internal(fmt.Sprintf("field %s", fieldVoltage), err)
		}
		r.Voltage = &v
	}
	return r, nil
}

var errNotNumeric = errors.New("value is not numeric")

// toFloat accepts JSON numbers and strings holding a number.
func toFloat(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, errNotNumeric
	}

	var v float64
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotNumeric, s)
		}
		v = parsed
	} else if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, fmt.Errorf("%w: %s", errNotNumeric, string(trimmed))
	}

	// NaN and Inf cannot be written back as JSON.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", errNotNumeric, v)
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
