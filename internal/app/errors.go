package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(details map[string]string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Datos inválidos", details)
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

var (
	errUnauthorized  = domainError(http.StatusUnauthorized, "UNAUTHORIZED", "No autorizado", nil)
	errMisconfigured = domainError(http.StatusInternalServerError, "SERVER_MISCONFIGURED", "Configuración del servidor incompleta", nil)
	errWrongPassword = domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Contraseña incorrecta", nil)
)
