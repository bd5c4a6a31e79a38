package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/KaramelBytes/insightloom/internal/analysis"
)

// Status of a pipeline run.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Step names used in StepError, FatalError and Result.Fallbacks.
const (
	StepParse     = "parse"
	StepWorkflow  = "workflow"
	StepFetch     = "fetch"
	StepAggregate = "aggregate"
	StepAnalyze   = "analyze"
	StepReport    = "report"
)

// StepError records a text-generation step that fell back to its default.
// It never changes the run status.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s step fell back to default: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// FatalError aborts the run. Stage is one of fetch, aggregate or analyze.
// Stack is set when the error was recovered from a panic.
type FatalError struct {
	Stage string
	Err   error
	Stack []byte
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s failed: %v", e.Stage, e.Err) }

func (e *FatalError) Unwrap() error { return e.Err }

// Result accumulates the output of every stage. Slots filled before a fatal
// error stay populated.
type Result struct {
	Status          Status                             `json:"status"`
	Query           string                             `json:"query"`
	RequestID       string                             `json:"request_id"`
	ParsedRequest   *ParsedRequest                     `json:"parsed_request,omitempty"`
	Workflow        *Workflow                          `json:"workflow,omitempty"`
	DataSourcesUsed []string                           `json:"data_sources_used,omitempty"`
	RecordsFetched  map[string]int                     `json:"records_fetched,omitempty"`
	AggregatedData  *analysis.Aggregates               `json:"aggregated_data,omitempty"`
	Anomalies       []analysis.Finding                 `json:"anomalies,omitempty"`
	Insights        []string                           `json:"insights,omitempty"`
	Forecasts       map[string]analysis.ForecastResult `json:"forecasts,omitempty"`
	Report          string                             `json:"report,omitempty"`
	Error           string                             `json:"error,omitempty"`
	Fallbacks       []string                           `json:"fallbacks,omitempty"`
	StartedAt       time.Time                          `json:"started_at"`
	Duration        time.Duration                      `json:"-"`

	stepErrs []*StepError
	err      error
}

// Err returns the fatal error, if any.
func (r *Result) Err() error { return r.err }

// StepErrors lists the steps that substituted a fallback value.
func (r *Result) StepErrors() []*StepError { return r.stepErrs }

func (r *Result) fallback(se *StepError) {
	r.stepErrs = append(r.stepErrs, se)
	r.Fallbacks = append(r.Fallbacks, se.Step)
}

func (r *Result) fail(err error) {
	r.err = err
	r.Status = StatusError
	r.Error = err.Error()
}

// Map returns the result as generic JSON-ready data with every non-finite
// number replaced by nil.
func (r *Result) Map() map[string]any {
	type plain Result
	m, _ := Sanitize((*plain)(r)).(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	m["duration_ms"] = r.Duration.Milliseconds()
	return m
}

// MarshalJSON encodes the sanitized form.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// Sanitize converts v into maps, slices and scalars following json tags and
// replaces NaN and ±Inf with nil at any depth. Values with their own
// MarshalJSON (time.Time, for instance) are kept as is.
func Sanitize(v any) any {
	return sanitizeValue(reflect.ValueOf(v))
}

func sanitizeValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer && rv.Type().Implements(marshalerType) {
			return rv.Interface()
		}
		return sanitizeValue(rv.Elem())
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = sanitizeValue(iter.Value())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface()
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = sanitizeValue(rv.Index(i))
		}
		return out
	case reflect.Struct:
		if rv.Type().Implements(marshalerType) {
			return rv.Interface()
		}
		return sanitizeStruct(rv)
	}
	if rv.CanInterface() {
		return rv.Interface()
	}
	return nil
}

func sanitizeStruct(rv reflect.Value) map[string]any {
	out := map[string]any{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		fv := rv.Field(i)
		if f.Anonymous && name == "" && fv.Kind() == reflect.Struct {
			for k, v := range sanitizeStruct(fv) {
				out[k] = v
			}
			continue
		}
		if name == "" {
			name = f.Name
		}
		// Unlike encoding/json, an empty but non-nil slice or map is kept:
		// it marks a stage that ran and found nothing.
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}
		out[name] = sanitizeValue(fv)
	}
	return out
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
