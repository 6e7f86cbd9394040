package app

import (
	"net/url"
	"strings"

	"tresde/api/internal/store"
)

// ValidateGemelo checks a tour before it is persisted.
func ValidateGemelo(g store.Gemelo) error {
	problems := map[string]string{}
	if g.Titulo == "" {
		problems["titulo"] = "El título es requerido"
	}
	if g.Descripcion == "" {
		problems["descripcion"] = "La descripción es requerida"
	}
	switch {
	case g.Iframe == "":
		problems["iframe"] = "El código del iframe es requerido"
	case !strings.Contains(strings.ToLower(g.Iframe), "<iframe") && !isAbsoluteHTTP(g.Iframe):
		problems["iframe"] = "Debe contener una etiqueta iframe o la URL del visor"
	}
	if g.ThumbnailURL != "" {
		if msg := imageURLProblem(g.ThumbnailURL); msg != "" {
			problems["thumbnailUrl"] = msg
		}
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}

// ValidateMarca checks a brand before it is persisted. Logos must already be
// uploaded: inline data URIs are rejected.
func ValidateMarca(m store.Marca) error {
	problems := map[string]string{}
	if m.Nombre == "" {
		problems["nombre"] = "El nombre es requerido"
	}
	if m.LogoURL == "" {
		problems["logoUrl"] = "La URL del logo es requerida"
	} else if msg := imageURLProblem(m.LogoURL); msg != "" {
		problems["logoUrl"] = msg
	}
	if m.URL != "" && !isAbsoluteHTTP(m.URL) {
		problems["url"] = "Debe ser una URL válida"
	}
	if m.Orden < 0 {
		problems["orden"] = "El orden debe ser un entero mayor o igual a 0"
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}

func imageURLProblem(value string) string {
	if strings.HasPrefix(strings.ToLower(value), "data:") {
		return "La imagen debe subirse como archivo, no como data URI"
	}
	if !isAbsoluteHTTP(value) && !isRootRelative(value) {
		return "Debe ser una URL válida"
	}
	return ""
}

func isAbsoluteHTTP(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isRootRelative(value string) bool {
	return strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//")
}
