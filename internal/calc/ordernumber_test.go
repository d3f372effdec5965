package calc

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateProductionOrderNumber(t *testing.T) {
	assert.Equal(t, "UE-1100-001", GenerateProductionOrderNumber("1100", 1))
	assert.Equal(t, "UE-1100-023", GenerateProductionOrderNumber("1100", 23))
	assert.Equal(t, "UE-1100-1234", GenerateProductionOrderNumber("1100", 1234))
}

func TestGenerateWorkOrderNumber(t *testing.T) {
	assert.Equal(t, "IE-1100-001-03", GenerateWorkOrderNumber("1100", 1, 3))
	assert.Equal(t, "IE-A-77-012-10", GenerateWorkOrderNumber("A-77", 12, 10))
}

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^UE-\d+-\d{3}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, GenerateOrderNumber("UE"))
	}
}
