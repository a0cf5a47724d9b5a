package protocol

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dkeye/Jam/internal/core"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Envelope is a frame whose type is known and whose body is still raw.
type Envelope struct {
	Type string
	Raw  []byte
}

// Decode reads the type of a frame. Frames that are not a JSON object or
// carry no type fail with core.ErrMalformedMessage.
func Decode(data []byte) (Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid JSON", core.ErrMalformedMessage)
	}
	if head.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", core.ErrMalformedMessage)
	}
	return Envelope{Type: head.Type, Raw: data}, nil
}

// DecodePayload unmarshals and validates the body of an envelope.
func DecodePayload[T any](env Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(env.Raw, &v); err != nil {
		return v, fmt.Errorf("%w: bad %s payload", core.ErrMalformedMessage, env.Type)
	}
	if err := validate.Struct(&v); err != nil {
		return v, fmt.Errorf("%w: %s", core.ErrMalformedMessage, describe(err))
	}
	return v, nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed %s", fe.Namespace(), fe.Tag())
}

func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

// UnknownType is the error reply for a type nobody handles.
func UnknownType(t string) error {
	return fmt.Errorf("%w: %s", core.ErrUnknownMessageType, t)
}
