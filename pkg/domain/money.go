package domain

import "fmt"

// Money is an amount in cents (MXN).
type Money int64

// Pesos builds a Money value from whole pesos.
func Pesos(p int64) Money {
	return Money(p * 100)
}

// String renders the amount as "$150" or "$150.50".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	if m%100 == 0 {
		return fmt.Sprintf("%s$%d", sign, int64(m)/100)
	}
	return fmt.Sprintf("%s$%d.%02d", sign, int64(m)/100, int64(m)%100)
}
