// Package roll draws the percentile rolls that gate seed updates and chain
// continuation.
package roll

import "github.com/brianvoe/gofakeit/v7"

// Roller draws a uniform integer in [1,100].
type Roller interface {
	Roll() int
}

type fakerRoller struct{ f *gofakeit.Faker }

func (r fakerRoller) Roll() int { return r.f.Number(1, 100) }

// New draws from f.
func New(f *gofakeit.Faker) Roller { return fakerRoller{f: f} }
