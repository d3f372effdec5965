package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dieworks-backend/internal/calc"
)

var (
	productionOrderRe = regexp.MustCompile(`^(?i:UE)-(.+)-(\d{3,})$`)
	workOrderRe       = regexp.MustCompile(`^(?i:IE)-(.+)-(\d{3,})-(\d{2,})$`)
)

// OrderKind tells which traveler a scanned number belongs to.
type OrderKind string

const (
	KindProductionOrder OrderKind = "production_order"
	KindWorkOrder       OrderKind = "work_order"
)

// ParsedOrderNumber holds the parts of a UE-/IE- number.
type ParsedOrderNumber struct {
	Kind               OrderKind
	DieNumber          string
	ProductionSequence int
	ComponentSequence  int // zero for production orders
}

// String re-formats the number in canonical padding.
func (p ParsedOrderNumber) String() string {
	if p.Kind == KindWorkOrder {
		return calc.GenerateWorkOrderNumber(p.DieNumber, p.ProductionSequence, p.ComponentSequence)
	}
	return calc.GenerateProductionOrderNumber(p.DieNumber, p.ProductionSequence)
}

// ParseOrderNumber parses a number as printed by calc.GenerateProductionOrderNumber
// or calc.GenerateWorkOrderNumber. Die numbers may contain dashes; the
// sequences are always the trailing groups.
func ParseOrderNumber(raw string) (ParsedOrderNumber, error) {
	// Panel scanners append a trailing CR.
	s := strings.TrimSpace(raw)

	if m := workOrderRe.FindStringSubmatch(s); m != nil {
		prodSeq, err := strconv.Atoi(m[2])
		if err != nil {
			return ParsedOrderNumber{}, fmt.Errorf("invalid production sequence in %q: %w", raw, err)
		}
		compSeq, err := strconv.Atoi(m[3])
		if err != nil {
			return ParsedOrderNumber{}, fmt.Errorf("invalid component sequence in %q: %w", raw, err)
		}
		return ParsedOrderNumber{
			Kind:               KindWorkOrder,
			DieNumber:          m[1],
			ProductionSequence: prodSeq,
			ComponentSequence:  compSeq,
		}, nil
	}

	if m := productionOrderRe.FindStringSubmatch(s); m != nil {
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			return ParsedOrderNumber{}, fmt.Errorf("invalid production sequence in %q: %w", raw, err)
		}
		return ParsedOrderNumber{
			Kind:               KindProductionOrder,
			DieNumber:          m[1],
			ProductionSequence: seq,
		}, nil
	}

	return ParsedOrderNumber{}, fmt.Errorf("unable to parse order number: %q", raw)
}
