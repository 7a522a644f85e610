package oracle

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/d2oracle/oracle/core/infra/schema"
)

//go:embed schema/request.schema.json
var requestSchemaJSON []byte

var requestSchema = schema.MustCompile("weapon-request", requestSchemaJSON)

// Request field names as they appear on the wire.
const (
	FieldHash          = "hash"
	FieldItemFamily    = "itemFamily"
	FieldItemSubFamily = "itemSubFamily"
	FieldAmmoType      = "ammoType"
	FieldDamageType    = "damageType"
	FieldStats         = "stats"
)

var requiredFields = []string{FieldHash, FieldItemFamily, FieldItemSubFamily, FieldAmmoType, FieldDamageType, FieldStats}

// ValidationMode controls what counts as a missing field.
type ValidationMode string

const (
	// ValidatePresence accepts any present value, zero included.
	ValidatePresence ValidationMode = "presence"
	// ValidateTruthy also treats identity fields equal to zero as missing.
	ValidateTruthy ValidationMode = "truthy"
)

// ParseValidationMode maps a config value to a mode. Empty selects presence.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ValidatePresence:
		return ValidatePresence, nil
	case ValidateTruthy:
		return ValidateTruthy, nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
}

// ValidatedFields is a structurally checked request. Identity values keep their decimal text.
type ValidatedFields struct {
	Hash          string
	ItemFamily    string
	ItemSubFamily string
	AmmoType      string
	DamageType    string
	Stats         map[string]json.Number
}

// Validator checks raw request bodies. It holds no mutable state.
type Validator struct {
	mode ValidationMode
}

// NewValidator returns a validator for the given mode.
func NewValidator(mode ValidationMode) *Validator {
	if mode == "" {
		mode = ValidatePresence
	}
	return &Validator{mode: mode}
}

// Mode reports the active validation mode.
func (v *Validator) Mode() ValidationMode { return v.mode }

// Validate decodes and checks a raw request body.
func (v *Validator) Validate(raw []byte) (*ValidatedFields, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	body, err := decodeBody(raw)
	if err != nil {
		return nil, err
	}
	for _, field := range requiredFields {
		if v.missing(field, body[field]) {
			return nil, missingField(field)
		}
	}
	if err := requestSchema.Validate(body); err != nil {
		return nil, schemaFieldError(err)
	}

	out := &ValidatedFields{Stats: map[string]json.Number{}}
	targets := map[string]*string{
		FieldHash:          &out.Hash,
		FieldItemFamily:    &out.ItemFamily,
		FieldItemSubFamily: &out.ItemSubFamily,
		FieldAmmoType:      &out.AmmoType,
		FieldDamageType:    &out.DamageType,
	}
	for field, dst := range targets {
		text, ok := identifierText(body[field])
		if !ok {
			return nil, &FieldError{Field: field}
		}
		*dst = text
	}
	stats, _ := body[FieldStats].(map[string]any)
	for key, val := range stats {
		num, ok := val.(json.Number)
		if !ok {
			return nil, &FieldError{Field: FieldStats + "." + key}
		}
		out.Stats[key] = num
	}
	return out, nil
}

func decodeBody(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after body", ErrInvalidPayload)
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body is not an object", ErrInvalidPayload)
	}
	return obj, nil
}

func (v *Validator) missing(field string, val any) bool {
	switch t := val.(type) {
	case nil:
		return true
	case string:
		if strings.TrimSpace(t) == "" {
			return true
		}
		return v.mode == ValidateTruthy && field != FieldStats && isZeroText(t)
	case json.Number:
		return v.mode == ValidateTruthy && isZeroText(t.String())
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func isZeroText(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.Trim(s, "0") == ""
}

func identifierText(val any) (string, bool) {
	switch t := val.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func schemaFieldError(err error) error {
	violation, ok := schema.LeafViolation(err)
	if !ok || len(violation.Path) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &FieldError{Field: strings.Join(violation.Path, "."), Err: errors.New(violation.Message)}
}
