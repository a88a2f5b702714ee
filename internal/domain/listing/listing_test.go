package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestText_JoinsTitleAndDescription(t *testing.T) {
	l := &Listing{Title: "Renault Clio IV", Description: "entretien complet"}
	assert.Equal(t, "Renault Clio IV entretien complet", l.Text())

	noDesc := &Listing{Title: "Peugeot 208"}
	assert.Equal(t, "Peugeot 208", noDesc.Text())
}

func TestEvaluable(t *testing.T) {
	tests := []struct {
		name string
		l    Listing
		want bool
	}{
		{"price only", Listing{Price: int64Ptr(900000)}, true},
		{"year only", Listing{Year: intPtr(2018)}, true},
		{"mileage only", Listing{Mileage: intPtr(120000)}, true},
		{"text only", Listing{Title: "BMW 320d"}, true},
		{"whitespace text", Listing{Title: "   ", Description: "\t"}, false},
		{"completely empty", Listing{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.l.Evaluable())
		})
	}
}

func TestAgeYears(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	l := &Listing{Year: intPtr(2018)}
	assert.Equal(t, 7, l.AgeYears(now))

	future := &Listing{Year: intPtr(2030)}
	assert.Equal(t, 0, future.AgeYears(now))

	unknown := &Listing{}
	assert.Equal(t, -1, unknown.AgeYears(now))
}

func TestPriceValue(t *testing.T) {
	l := &Listing{Price: int64Ptr(8000)}
	v, ok := l.PriceValue()
	assert.True(t, ok)
	assert.EqualValues(t, 8000, v)

	_, ok = (&Listing{}).PriceValue()
	assert.False(t, ok)
}
