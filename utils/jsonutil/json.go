package jsonutil

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func ValidateModel[T any](model *T) error {
	return Validator().Struct(model)
}

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func ParseJson[T any](data []byte) (*T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func ParseJsonAndValidate[T any](data []byte) (*T, error) {
	result, err := ParseJson[T](data)
	if err != nil {
		return nil, err
	}
	err = ValidateModel(result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func ParseJsonAndValidateFromReader[T any](r io.Reader) (*T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseJsonAndValidate[T](data)
}
