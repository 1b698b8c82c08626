package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeValidation answers 400 with one message per invalid field.
func writeValidation(w http.ResponseWriter, err error) {
	resp := validationResponse{Message: "Validation error", Errors: map[string]string{}}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, e := range verrs {
			resp.Errors[field] = e.Error()
		}
	} else {
		resp.Errors["body"] = err.Error()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

type validatable interface {
	Validate() error
}

const maxBodyBytes = 1 << 20

// decode reads a JSON body into dst and validates it. Unknown fields are
// rejected.
func decode(w http.ResponseWriter, r *http.Request, dst validatable) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return dst.Validate()
}
