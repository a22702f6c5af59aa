package divitax

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMoneyRound2(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"97.7915", "97.79"},
		{"4.8895", "4.89"},
		{"1.005", "1.01"},   // half rounds up
		{"-1.005", "-1.01"}, // and away from zero
		{"27", "27"},
		{"0.004999", "0"},
	}
	for _, tc := range tests {
		got := M(d(tc.value), "BGN").Round2().Amount()
		if !got.Equal(d(tc.want)) {
			t.Errorf("Round2(%s) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestMoneyUnit(t *testing.T) {
	pence := M(d("500"), "GBX").Unit()
	if pence.Currency() != "GBP" {
		t.Errorf("Unit() currency = %s, want GBP", pence.Currency())
	}
	if !pence.Amount().Equal(d("5")) {
		t.Errorf("Unit() amount = %s, want 5", pence.Amount())
	}

	dollars := M(d("100"), "USD").Unit()
	if dollars.Currency() != "USD" || !dollars.Amount().Equal(d("100")) {
		t.Errorf("Unit() changed a unit currency: %s %s", dollars.Amount(), dollars.Currency())
	}
}

func TestMoneyAddWeakCurrency(t *testing.T) {
	sum := Money{}.Add(M(d("3"), "USD")).Add(M(d("4"), "USD"))
	if sum.Currency() != "USD" || !sum.Amount().Equal(d("7")) {
		t.Errorf("Add = %s %s, want 7 USD", sum.Amount(), sum.Currency())
	}
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("12.34", "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Amount().Equal(d("12.34")) || m.Currency() != "EUR" {
		t.Errorf("ParseMoney = %s %s", m.Amount(), m.Currency())
	}
	if _, err := ParseMoney("not-a-number", "EUR"); err == nil {
		t.Error("ParseMoney accepted garbage")
	}
}
