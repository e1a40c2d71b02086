// Package extract converts raw path segments and query parameters into typed
// values placed in the request state before any middleware runs.
//
// A schema is derived from a prototype struct: fields tagged `path:"name"`
// bind route segments, fields tagged `query:"name"` bind query parameters.
// Query fields are optional unless tagged `query:"name,required"`; path
// fields are always required. Validation runs through go-playground/validator
// `validate:` tags after binding.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vireo-web/vireo/state"
)

// Error reports a failed extraction: which field and why. The dispatcher
// surfaces it as a client error.
type Error struct {
	Field string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: field %q: %v", e.Field, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

var (
	errMissing = fmt.Errorf("missing required value")
)

// Converter turns one raw text value into a typed value.
type Converter func(raw string) (any, error)

var converters = map[reflect.Type]Converter{
	reflect.TypeOf(time.Duration(0)): func(raw string) (any, error) { return time.ParseDuration(raw) },
	reflect.TypeOf(time.Time{}): func(raw string) (any, error) {
		return time.Parse(time.RFC3339, raw)
	},
	reflect.TypeOf(uuid.UUID{}): func(raw string) (any, error) { return uuid.Parse(raw) },
}

// RegisterConverter installs a conversion for an opaque value type. Call it
// during route declaration, before traffic; the registry is read-only at
// dispatch time.
func RegisterConverter[T any](fn func(raw string) (T, error)) {
	converters[reflect.TypeOf((*T)(nil)).Elem()] = func(raw string) (any, error) {
		return fn(raw)
	}
}

type source uint8

const (
	fromPath source = iota
	fromQuery
)

type field struct {
	index    int
	name     string
	source   source
	required bool
	conv     Converter
}

// Schema binds raw request values into one prototype struct type. Built once
// per route during declaration; immutable and shared afterwards.
type Schema struct {
	typ      reflect.Type
	fields   []field
	validate *validator.Validate
}

// NewSchema derives a schema from the prototype struct type T.
func NewSchema[T any]() (*Schema, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("extract: prototype %v is not a struct", typ)
	}

	s := &Schema{typ: typ, validate: validator.New()}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		pathTag := sf.Tag.Get("path")
		queryTag := sf.Tag.Get("query")
		if pathTag != "" && queryTag != "" {
			return nil, fmt.Errorf("extract: field %s has both path and query tags", sf.Name)
		}

		var f field
		switch {
		case pathTag != "":
			f = field{index: i, name: pathTag, source: fromPath, required: true}
		case queryTag != "":
			name, opts, _ := strings.Cut(queryTag, ",")
			f = field{index: i, name: name, source: fromQuery, required: opts == "required"}
		default:
			continue
		}

		if conv, ok := converters[sf.Type]; ok {
			f.conv = conv
		} else if !kindConvertible(sf.Type.Kind()) {
			return nil, fmt.Errorf("extract: field %s has unsupported type %v", sf.Name, sf.Type)
		}
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on a malformed prototype. Route
// declaration runs once at startup, where a panic is an acceptable failure.
func MustSchema[T any]() *Schema {
	s, err := NewSchema[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Type returns the prototype struct type the schema produces.
func (s *Schema) Type() reflect.Type { return s.typ }

// Apply binds params and the raw query string into a fresh prototype value,
// validates it, and stores it in st. It runs exactly once per request, before
// the pipeline chain, so downstream steps may assume the value is present and
// well formed.
func (s *Schema) Apply(st *state.State, params state.Params, rawQuery string) error {
	var query url.Values
	if rawQuery != "" {
		var err error
		query, err = url.ParseQuery(rawQuery)
		if err != nil {
			return &Error{Field: "(query)", Cause: err}
		}
	}

	out := reflect.New(s.typ).Elem()
	for _, f := range s.fields {
		var raw string
		var ok bool
		switch f.source {
		case fromPath:
			raw, ok = params[f.name]
		case fromQuery:
			if vs, present := query[f.name]; present && len(vs) > 0 {
				raw, ok = vs[0], true
			}
		}

		if !ok {
			if f.required {
				return &Error{Field: f.name, Cause: errMissing}
			}
			continue
		}

		if err := setField(out.Field(f.index), raw, f.conv); err != nil {
			return &Error{Field: f.name, Cause: err}
		}
	}

	if err := s.validate.Struct(out.Addr().Interface()); err != nil {
		return &Error{Field: firstFailedField(err), Cause: err}
	}

	state.PutValue(st, out.Interface())
	return nil
}

func kindConvertible(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func setField(fv reflect.Value, raw string, conv Converter) error {
	if conv != nil {
		v, err := conv(raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(v))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	default:
		return fmt.Errorf("unsupported field kind %v", fv.Kind())
	}
	return nil
}

func firstFailedField(err error) string {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) && len(verr) > 0 {
		return verr[0].Field()
	}
	return "(validation)"
}
