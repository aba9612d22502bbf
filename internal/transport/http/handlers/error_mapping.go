package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhmdrz22/enginner/internal/usecase"
)

const nonFieldErrors = "non_field_errors"

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// commonCases apply to every endpoint after its own cases.
var commonCases = []ErrorCase{
	{Err: usecase.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "Authentication credentials were not provided."},
	{Err: usecase.ErrNoSuchToken, Status: http.StatusUnauthorized, Message: "Invalid token."},
	{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "You do not have permission to perform this action."},
	{Err: usecase.ErrTaskNotFound, Status: http.StatusNotFound, Message: "Not found."},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "Not found."},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
// Unmapped errors are attached to the gin context so the access log records them.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if invalid := validationErrors(err); len(invalid) > 0 {
		respondValidation(c, invalid)
		return
	}

	for _, set := range [][]ErrorCase{cases, commonCases} {
		for _, cs := range set {
			if cs.Err != nil && errors.Is(err, cs.Err) {
				c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
				return
			}
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// validationErrors flattens errors.Join trees so every rejected field is reported.
func validationErrors(err error) []*usecase.ValidationError {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*usecase.ValidationError
		for _, e := range joined.Unwrap() {
			out = append(out, validationErrors(e)...)
		}
		return out
	}

	var validation *usecase.ValidationError
	if errors.As(err, &validation) {
		return []*usecase.ValidationError{validation}
	}
	return nil
}

func respondValidation(c *gin.Context, invalid []*usecase.ValidationError) {
	resp := NewErrorResponse(c, invalid[0].Message)
	resp.Fields = make(map[string][]string, len(invalid))
	for _, v := range invalid {
		field := v.Field
		if field == "" {
			field = nonFieldErrors
		}
		resp.Fields[field] = append(resp.Fields[field], v.Message)
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondBindingError reports a request body that could not be decoded or validated.
func respondBindingError(c *gin.Context, err error) {
	resp := NewErrorResponse(c, "Invalid request payload.")
	if fields := bindingFields(err); fields != nil {
		resp.Error = "validation failed"
		resp.Fields = fields
	}
	c.JSON(http.StatusBadRequest, resp)
}
