package estimation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default and maximum job retention
const (
	DefaultTTLMinutes = 60
	MaxTTLMinutes     = 10080
)

// Validate checks the request and fills in defaults
func (r *EstimateRequest) Validate() error {
	if r.Method == "" {
		r.Method = MethodStandard
	}
	if r.TTLMinutes == 0 {
		r.TTLMinutes = DefaultTTLMinutes
	}
	if err := checkMethod(r.Method, r.Alpha); err != nil {
		return err
	}
	if err := checkTTL(r.TTLMinutes); err != nil {
		return err
	}
	if err := validate.Struct(r); err != nil {
		return invalid(err)
	}
	return nil
}

// Validate checks the request and fills in defaults
func (r *EnergyRequest) Validate() error {
	if r.Method == "" {
		r.Method = MethodStandard
	}
	if r.TTLMinutes == 0 {
		r.TTLMinutes = DefaultTTLMinutes
	}
	if err := checkMethod(r.Method, r.Alpha); err != nil {
		return err
	}
	if err := checkTTL(r.TTLMinutes); err != nil {
		return err
	}
	if err := validate.Struct(r); err != nil {
		return invalid(err)
	}
	if want := 2 * r.Ansatz.Layers * r.Ansatz.Qubits; len(r.Params) != want {
		return &RequestError{Message: fmt.Sprintf("ansatz needs %d parameters, got %d", want, len(r.Params))}
	}
	return nil
}

func checkMethod(method string, alpha float64) error {
	if method == MethodCvar && alpha == 0 {
		return ErrMissingAlpha
	}
	return nil
}

func checkTTL(minutes int) error {
	if minutes < 1 || minutes > MaxTTLMinutes {
		return ErrInvalidTTL
	}
	return nil
}

// invalid turns validator errors into a RequestError naming each failed field
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestError{Message: err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return &RequestError{Message: "invalid request: " + strings.Join(fields, "; ")}
}

// RequestError is a client error; handlers answer it with 4xx
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

var (
	ErrInvalidJobID = &RequestError{"invalid job ID"}
	ErrInvalidTTL   = &RequestError{fmt.Sprintf("TTL must be between 1 and %d minutes", MaxTTLMinutes)}
	ErrMissingAlpha = &RequestError{"cvar method requires alpha in (0, 1]"}
	ErrJobNotFound  = &RequestError{"job not found"}
)
