package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracker/internal/core"
)

const (
	maxBodyBytes = 64 << 10
	dateLayout   = "2006-01-02"
)

var errBadRequest = errors.New("bad request")

type habitRequest struct {
	Fecha      string `json:"fecha"`
	CCCCM      bool   `json:"ccccm"`
	Hielo      bool   `json:"hielo"`
	Esport     bool   `json:"esport"`
	Cepillo    bool   `json:"cepillo"`
	Exfoliante bool   `json:"exfoliante"`
	Lectura    bool   `json:"lectura"`
	ModoAvion  bool   `json:"modo_avion"`
	Prote      int    `json:"prote"`
	Pasos      int    `json:"pasos"`
}

type expenseRequest struct {
	Fecha      string  `json:"fecha"`
	Concepto   string  `json:"concepto"`
	Cantidad   float64 `json:"cantidad"`
	Naturalesa string  `json:"naturalesa"`
}

type gymRequest struct {
	Fecha     string  `json:"fecha"`
	Ejercicio string  `json:"ejercicio"`
	Peso      float64 `json:"peso"`
	Reps      int     `json:"reps"`
	Esfuerzo  *int    `json:"esfuerzo"`
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD. Blank means today.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha must be YYYY-MM-DD", errBadRequest)
	}
	return t, nil
}

func (h habitRequest) entry() (core.HabitEntry, error) {
	fecha, err := parseDate(h.Fecha)
	if err != nil {
		return core.HabitEntry{}, err
	}
	return core.HabitEntry{
		Fecha:      fecha,
		CCCCM:      h.CCCCM,
		Hielo:      h.Hielo,
		Esport:     h.Esport,
		Cepillo:    h.Cepillo,
		Exfoliante: h.Exfoliante,
		Lectura:    h.Lectura,
		ModoAvion:  h.ModoAvion,
		Prote:      h.Prote,
		Pasos:      h.Pasos,
	}, nil
}

func (e expenseRequest) entry() (core.ExpenseEntry, error) {
	fecha, err := parseDate(e.Fecha)
	if err != nil {
		return core.ExpenseEntry{}, err
	}
	nature := e.Naturalesa
	if strings.TrimSpace(nature) == "" {
		nature = core.NatureGasto
	}
	return core.ExpenseEntry{
		Fecha:      fecha,
		Concepto:   sanitizeInput(e.Concepto),
		Cantidad:   e.Cantidad,
		Naturalesa: nature,
	}, nil
}

func (g gymRequest) entry() (core.GymSet, error) {
	fecha, err := parseDate(g.Fecha)
	if err != nil {
		return core.GymSet{}, err
	}
	effort := core.DefaultEffort
	if g.Esfuerzo != nil {
		effort = *g.Esfuerzo
	}
	return core.GymSet{
		Fecha:     fecha,
		Ejercicio: sanitizeInput(g.Ejercicio),
		Peso:      g.Peso,
		Reps:      g.Reps,
		Esfuerzo:  effort,
	}, nil
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
