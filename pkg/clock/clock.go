// Package clock abstrae la hora actual para que los barridos y los tests
// puedan ejecutarse contra un instante fijo.
package clock

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock fuente de tiempo inyectable.
type Clock interface {
	Now() time.Time
	// Today fecha de calendario en la zona del reloj.
	Today() civil.Date
}

// System reloj del sistema en la zona indicada (UTC si loc es nil).
type System struct {
	Location *time.Location
}

// NewSystem construye el reloj del sistema.
func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{Location: loc}
}

func (s System) Now() time.Time { return time.Now().In(s.loc()) }

func (s System) Today() civil.Date { return civil.DateOf(s.Now()) }

func (s System) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Fixed reloj detenido en un instante.
type Fixed struct {
	At time.Time
}

// NewFixedDate reloj fijo a las 00:00 UTC de la fecha dada.
func NewFixedDate(d civil.Date) Fixed {
	return Fixed{At: d.In(time.UTC)}
}

func (f Fixed) Now() time.Time { return f.At }

func (f Fixed) Today() civil.Date { return civil.DateOf(f.At) }
