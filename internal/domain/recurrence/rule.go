// Package recurrence calcula las fechas de una serie de facturación recurrente.
//
// Toda la aritmética es de calendario puro (civil.Date): sin hora ni zona
// horaria, para que las fechas no se desplacen al cruzar cambios de horario.
package recurrence

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// Type periodicidad de la serie.
type Type string

const (
	TypeMonthly   Type = "monthly"
	TypeWeekly    Type = "weekly"
	TypeBiWeekly  Type = "bi-weekly"
	TypeTriWeekly Type = "tri-weekly"
	TypeManual    Type = "manual"  // sin calendario; solo disparo manual
	TypeCounted   Type = "counted" // Interval × Unit
)

// Unit unidad de tiempo para TypeCounted.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// Rule regla de recurrencia. Interval y Unit solo aplican cuando Type es counted.
type Rule struct {
	Type     Type `json:"type"`
	Interval int  `json:"interval,omitempty"`
	Unit     Unit `json:"unit,omitempty"`
}

// IsValid indica si el tipo es uno de los soportados.
func (t Type) IsValid() bool {
	switch t {
	case TypeMonthly, TypeWeekly, TypeBiWeekly, TypeTriWeekly, TypeManual, TypeCounted:
		return true
	}
	return false
}

// IsValid indica si la unidad es una de las soportadas.
func (u Unit) IsValid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// Scheduled indica si la regla produce fechas automáticas.
func (r Rule) Scheduled() bool {
	return r.Type != TypeManual
}

// Validate verifica que la regla esté bien formada.
func (r Rule) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: tipo de recurrencia desconocido %q", domain.ErrValidation, r.Type)
	}
	if r.Type != TypeCounted {
		return nil
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval debe ser mayor que cero", domain.ErrValidation)
	}
	if !r.Unit.IsValid() {
		return fmt.Errorf("%w: unit inválida %q", domain.ErrValidation, r.Unit)
	}
	return nil
}

// Normalize descarta Interval/Unit cuando no aplican, para no persistir ruido.
func (r Rule) Normalize() Rule {
	if r.Type != TypeCounted {
		return Rule{Type: r.Type}
	}
	return r
}

// NextDate devuelve la siguiente fecha de la serie a partir de from.
// Retorna nil para reglas manuales o mal formadas.
func NextDate(r Rule, from civil.Date) *civil.Date {
	var next civil.Date
	switch r.Type {
	case TypeMonthly:
		next = AddMonthsClamped(from, 1)
	case TypeWeekly:
		next = from.AddDays(7)
	case TypeBiWeekly:
		next = from.AddDays(14)
	case TypeTriWeekly:
		next = from.AddDays(21)
	case TypeCounted:
		if r.Interval <= 0 {
			return nil
		}
		switch r.Unit {
		case UnitDay:
			next = from.AddDays(r.Interval)
		case UnitWeek:
			next = from.AddDays(7 * r.Interval)
		case UnitMonth:
			next = AddMonthsClamped(from, r.Interval)
		case UnitYear:
			next = AddMonthsClamped(from, 12*r.Interval)
		default:
			return nil
		}
	default:
		return nil
	}
	return &next
}

// Preview devuelve hasta n fechas consecutivas a partir de from (excluida).
func Preview(r Rule, from civil.Date, n int) []civil.Date {
	out := make([]civil.Date, 0, n)
	cur := from
	for i := 0; i < n; i++ {
		next := NextDate(r, cur)
		if next == nil {
			break
		}
		out = append(out, *next)
		cur = *next
	}
	return out
}

// AddMonthsClamped suma meses manteniendo el día del mes; si el día no existe
// en el mes destino se usa el último día válido (31-ene + 1 mes = 28/29-feb).
func AddMonthsClamped(d civil.Date, months int) civil.Date {
	total := int(d.Month) - 1 + months
	year := d.Year + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)

	day := d.Day
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// DaysIn número de días del mes.
func DaysIn(year int, month time.Month) int {
	// El día 0 del mes siguiente es el último del mes pedido.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
