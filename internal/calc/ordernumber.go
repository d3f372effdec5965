package calc

import (
	"fmt"
	"math/rand"
	"time"
)

// Prefixes printed on production order and work order travelers.
const (
	ProductionOrderPrefix = "UE"
	WorkOrderPrefix       = "IE"
)

// GenerateOrderNumber returns prefix-epochMillis-NNN. Two calls in the same
// millisecond collide one time in a thousand; use it only where a unique index
// backs it up.
func GenerateOrderNumber(prefix string) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, time.Now().UnixMilli(), rand.Intn(1000))
}

// GenerateProductionOrderNumber formats UE-{die}-{seq:03d}.
func GenerateProductionOrderNumber(dieNumber string, sequence int) string {
	return fmt.Sprintf("%s-%s-%03d", ProductionOrderPrefix, dieNumber, sequence)
}

// GenerateWorkOrderNumber formats IE-{die}-{production seq:03d}-{component seq:02d}.
func GenerateWorkOrderNumber(dieNumber string, productionSequence, componentSequence int) string {
	return fmt.Sprintf("%s-%s-%03d-%02d", WorkOrderPrefix, dieNumber, productionSequence, componentSequence)
}
