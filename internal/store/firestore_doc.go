package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
)

// Documents written by the previous admin carry createdAt as an ISO string
// and may hold orden as a double, so both are decoded loosely. New writes
// store a Firestore timestamp and an integer.

type gemeloDoc struct {
	Titulo       string `firestore:"titulo"`
	Descripcion  string `firestore:"descripcion"`
	Iframe       string `firestore:"iframe"`
	Ubicacion    string `firestore:"ubicacion"`
	Fecha        string `firestore:"fecha"`
	ThumbnailURL string `firestore:"thumbnailUrl,omitempty"`
	CreatedAt    any    `firestore:"createdAt,omitempty"`
}

type marcaDoc struct {
	Nombre    string `firestore:"nombre"`
	LogoURL   string `firestore:"logoUrl"`
	URL       string `firestore:"url"`
	Orden     any    `firestore:"orden"`
	Fecha     string `firestore:"fecha"`
	CreatedAt any    `firestore:"createdAt,omitempty"`
}

func gemeloToDoc(g Gemelo) any {
	return gemeloDoc{
		Titulo:       g.Titulo,
		Descripcion:  g.Descripcion,
		Iframe:       g.Iframe,
		Ubicacion:    g.Ubicacion,
		Fecha:        g.Fecha,
		ThumbnailURL: g.ThumbnailURL,
		CreatedAt:    timestampValue(g.CreatedAt),
	}
}

func gemeloFromDoc(snap *firestore.DocumentSnapshot) (Gemelo, error) {
	var doc gemeloDoc
	if err := snap.DataTo(&doc); err != nil {
		return Gemelo{}, err
	}
	return Gemelo{
		ID:           snap.Ref.ID,
		Titulo:       doc.Titulo,
		Descripcion:  doc.Descripcion,
		Iframe:       doc.Iframe,
		Ubicacion:    doc.Ubicacion,
		Fecha:        doc.Fecha,
		ThumbnailURL: doc.ThumbnailURL,
		CreatedAt:    looseTime(doc.CreatedAt),
	}, nil
}

func marcaToDoc(m Marca) any {
	return marcaDoc{
		Nombre:    m.Nombre,
		LogoURL:   m.LogoURL,
		URL:       m.URL,
		Orden:     int64(m.Orden),
		Fecha:     m.Fecha,
		CreatedAt: timestampValue(m.CreatedAt),
	}
}

func marcaFromDoc(snap *firestore.DocumentSnapshot) (Marca, error) {
	var doc marcaDoc
	if err := snap.DataTo(&doc); err != nil {
		return Marca{}, err
	}
	orden, err := looseInt(doc.Orden)
	if err != nil {
		return Marca{}, fmt.Errorf("orden: %w", err)
	}
	return Marca{
		ID:        snap.Ref.ID,
		Nombre:    doc.Nombre,
		LogoURL:   doc.LogoURL,
		URL:       doc.URL,
		Orden:     orden,
		Fecha:     doc.Fecha,
		CreatedAt: looseTime(doc.CreatedAt),
	}, nil
}

func timestampValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// looseTime accepts a Firestore timestamp or an RFC 3339 string. Anything
// else, including a missing field, reads as the zero time.
func looseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t)); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func looseInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%v is not a number", n)
		}
		return int(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
