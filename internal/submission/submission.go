package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/slok/codesbx/internal/model"
)

// ErrInvalidJSON is returned when the body is not a valid JSON document.
var ErrInvalidJSON = errors.New("invalid JSON")

// ValidationError is a submission that is valid JSON but doesn't have the
// expected shape. The message is meant to be shown to the user as is.
type ValidationError struct {
	// Field is the offending key, empty when the error is about the whole body.
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes validation errors match model.ErrNotValid.
func (e *ValidationError) Is(target error) bool { return target == model.ErrNotValid }

// Submission is a decoded and validated editor submission.
type Submission struct {
	Code string
}

// Action is the operation requested on the live editor channel.
type Action string

const (
	ActionCompile Action = "compile"
	ActionExecute Action = "execute"
)

// Frame is a decoded and validated live editor message.
type Frame struct {
	Action Action
	Code   string
}

// Decode reads and validates a `{"code": "..."}` submission body.
func Decode(r io.Reader) (Submission, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Submission{}, fmt.Errorf("could not read body: %w", err)
	}

	obj, err := decodeObject(data)
	if err != nil {
		return Submission{}, err
	}

	code, err := obj.code()
	if err != nil {
		return Submission{}, err
	}
	if err := obj.onlyKeys("code"); err != nil {
		return Submission{}, err
	}

	return Submission{Code: code}, nil
}

// DecodeFrame decodes and validates a `{"action": "...", "code": "..."}` frame.
func DecodeFrame(data []byte) (Frame, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Frame{}, err
	}

	action, err := obj.action()
	if err != nil {
		return Frame{}, err
	}
	code, err := obj.code()
	if err != nil {
		return Frame{}, err
	}
	if err := obj.onlyKeys("action", "code"); err != nil {
		return Frame{}, err
	}

	return Frame{Action: action, Code: code}, nil
}

// object is a decoded top level JSON object that remembers the key order.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func decodeObject(data []byte) (*object, error) {
	// An empty body is an empty object.
	if len(bytes.TrimSpace(data)) == 0 {
		return &object{values: map[string]json.RawMessage{}}, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("body is not valid JSON: %w", ErrInvalidJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tk, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("could not decode body: %w", ErrInvalidJSON)
	}
	if d, ok := tk.(json.Delim); !ok || d != '{' {
		return nil, &ValidationError{Message: `"value" must be of type object`}
	}

	obj := &object{values: map[string]json.RawMessage{}}
	for dec.More() {
		tk, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("could not decode body: %w", ErrInvalidJSON)
		}
		key, _ := tk.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("could not decode body: %w", ErrInvalidJSON)
		}

		// Duplicated keys, the last one wins.
		if _, ok := obj.values[key]; !ok {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}

	return obj, nil
}

func (o *object) stringField(key string) (string, error) {
	raw, ok := o.values[key]
	if !ok {
		return "", &ValidationError{Field: key, Message: fmt.Sprintf("%q is required", key)}
	}

	var s string
	if len(raw) == 0 || raw[0] != '"' {
		return "", &ValidationError{Field: key, Message: fmt.Sprintf("%q must be a string", key)}
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("could not decode %q: %w", key, ErrInvalidJSON)
	}
	if s == "" {
		return "", &ValidationError{Field: key, Message: fmt.Sprintf("%q is not allowed to be empty", key)}
	}

	return s, nil
}

func (o *object) code() (string, error) {
	code, err := o.stringField("code")
	if err != nil {
		return "", err
	}

	if model.SourceLength(code) > model.MaxSourceLength {
		return "", &ValidationError{
			Field:   "code",
			Message: fmt.Sprintf(`"code" length must be less than or equal to %d characters long`, model.MaxSourceLength),
		}
	}

	return code, nil
}

func (o *object) action() (Action, error) {
	action, err := o.stringField("action")
	if err != nil {
		return "", err
	}

	switch a := Action(action); a {
	case ActionCompile, ActionExecute:
		return a, nil
	default:
		return "", &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf(`"action" must be one of [%s]`, strings.Join([]string{string(ActionCompile), string(ActionExecute)}, ", ")),
		}
	}
}

// onlyKeys fails with the first key, in document order, that is not allowed.
func (o *object) onlyKeys(allowed ...string) error {
	for _, k := range o.keys {
		if !slices.Contains(allowed, k) {
			return &ValidationError{Field: k, Message: fmt.Sprintf("%q is not allowed", k)}
		}
	}
	return nil
}
