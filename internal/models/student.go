package models

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Department is one of the fixed academic branches.
type Department string

const (
	DepartmentCSE Department = "CSE"
	DepartmentECE Department = "ECE"
	DepartmentME  Department = "ME"
	DepartmentCE  Department = "CE"
	DepartmentEE  Department = "EE"
)

// Departments lists the recognised departments in display order.
var Departments = []Department{DepartmentCSE, DepartmentECE, DepartmentME, DepartmentCE, DepartmentEE}

// Valid reports whether d is a recognised department.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// Year is the study year, kept as a string token for equality filtering.
type Year string

const (
	Year1 Year = "1"
	Year2 Year = "2"
	Year3 Year = "3"
	Year4 Year = "4"
)

// Years lists the recognised study years.
var Years = []Year{Year1, Year2, Year3, Year4}

// Valid reports whether y is a recognised year.
func (y Year) Valid() bool {
	for _, known := range Years {
		if y == known {
			return true
		}
	}
	return false
}

// CGPA bounds, both inclusive.
const (
	MinCGPA = 0.0
	MaxCGPA = 10.0
)

// Student is a record admitted into the roster.
type Student struct {
	Roll string     `json:"roll"`
	Name string     `json:"name"`
	Dept Department `json:"dept"`
	Year Year       `json:"year"`
	CGPA float64    `json:"cgpa"`
}

// Input renders the record back into form values, used to prefill an edit.
func (s Student) Input() StudentInput {
	return StudentInput{
		Roll: s.Roll,
		Name: s.Name,
		Dept: string(s.Dept),
		Year: string(s.Year),
		CGPA: strconv.FormatFloat(s.CGPA, 'f', -1, 64),
	}
}

// StudentInput is a candidate record exactly as entered on the form.
type StudentInput struct {
	Roll string `json:"roll" validate:"required"`
	Name string `json:"name" validate:"required"`
	Dept string `json:"dept" validate:"required,department"`
	Year string `json:"year" validate:"required,year"`
	CGPA string `json:"cgpa" validate:"required,cgpa_number,cgpa_range"`
}

// Normalize trims surrounding whitespace from every field.
func (in StudentInput) Normalize() StudentInput {
	return StudentInput{
		Roll: strings.TrimSpace(in.Roll),
		Name: strings.TrimSpace(in.Name),
		Dept: strings.TrimSpace(in.Dept),
		Year: strings.TrimSpace(in.Year),
		CGPA: strings.TrimSpace(in.CGPA),
	}
}

// ToStudent converts a validated input into a record. CGPA is rounded to two decimals.
func (in StudentInput) ToStudent() (Student, error) {
	cgpa, err := ParseCGPA(in.CGPA)
	if err != nil {
		return Student{}, err
	}
	return Student{
		Roll: in.Roll,
		Name: in.Name,
		Dept: Department(in.Dept),
		Year: Year(in.Year),
		CGPA: RoundCGPA(cgpa),
	}, nil
}

// ErrCGPAOverflow marks a well-formed CGPA too large in magnitude for a float64.
var ErrCGPAOverflow = errors.New("cgpa overflows")

// ParseCGPA parses a CGPA entry. NaN and infinities are rejected. A number
// beyond float64 range returns the signed infinity along with ErrCGPAOverflow.
func ParseCGPA(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if errors.Is(err, strconv.ErrRange) && math.IsInf(v, 0) {
		return v, fmt.Errorf("parse cgpa %q: %w", raw, ErrCGPAOverflow)
	}
	if err != nil {
		return 0, fmt.Errorf("parse cgpa %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse cgpa %q: not a finite number", raw)
	}
	return v, nil
}

// CGPAInRange reports whether v lies within [MinCGPA, MaxCGPA].
func CGPAInRange(v float64) bool {
	return v >= MinCGPA && v <= MaxCGPA
}

// RoundCGPA rounds to two decimals, half away from zero. It works on the
// shortest decimal form of v, so 9.995 becomes 10 rather than following its
// float64 approximation just below.
func RoundCGPA(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return math.Round(v*100) / 100
	}
	r.Mul(r, big.NewRat(100, 1))
	den := r.Denom()
	// floor((2|num| + den) / 2den) is |r| rounded half up
	n := new(big.Int).Abs(r.Num())
	n.Lsh(n, 1).Add(n, den)
	n.Quo(n, new(big.Int).Lsh(den, 1))
	out, _ := new(big.Rat).SetFrac(n, big.NewInt(100)).Float64()
	if r.Sign() < 0 {
		out = -out
	}
	return out
}

// Field error messages.
const (
	MsgRequired   = "required"
	MsgUnique     = "must be unique"
	MsgOutOfRange = "out of range"
)

// FieldErrors maps a field name to its validation message. Empty means valid.
type FieldErrors map[string]string

// Error implements error with a deterministic field ordering.
func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}
