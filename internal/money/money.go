/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package money represents naira amounts as an integer count of kobo.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// KoboPerNaira is the number of minor units in one naira.
const KoboPerNaira = 100

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrZeroOrNegative = errors.New("amount must be greater than zero")
)

var koboScale = decimal.NewFromInt(KoboPerNaira)

// Money is an amount in kobo. Ledger entry amounts are signed; balances never are.
type Money int64

const Zero Money = 0

// FromKobo wraps a raw kobo count.
func FromKobo(kobo int64) Money {
	return Money(kobo)
}

// FromNaira converts whole naira to Money.
func FromNaira(naira int64) Money {
	return Money(naira * KoboPerNaira)
}

// ParseNaira parses a decimal naira string such as "1500" or "49.50".
func ParseNaira(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a naira decimal. Fractions below one kobo are rejected, not rounded.
func FromDecimal(d decimal.Decimal) (Money, error) {
	kobo := d.Mul(koboScale)
	if !kobo.Equal(kobo.Truncate(0)) {
		return Zero, fmt.Errorf("%w: %s has sub-kobo precision", ErrInvalidAmount, d.String())
	}
	if kobo.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || kobo.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return Zero, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Money(kobo.IntPart()), nil
}

func (m Money) Kobo() int64 {
	return int64(m)
}

// Naira returns the amount as a naira decimal.
func (m Money) Naira() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount in naira with two decimal places.
func (m Money) String() string {
	return m.Naira().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return m + o
}

func (m Money) Sub(o Money) Money {
	return m - o
}

func (m Money) Neg() Money {
	return -m
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	}
	return 0
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsNegative() bool { return m < 0 }
func (m Money) IsPositive() bool { return m > 0 }

// CheckedAdd adds o and reports ErrInvalidAmount on int64 overflow.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o > 0 && m > math.MaxInt64-o) || (o < 0 && m < math.MinInt64-o) {
		return Zero, fmt.Errorf("%w: %s + %s overflows", ErrInvalidAmount, m, o)
	}
	return m + o, nil
}

// SubNonNegative subtracts o, failing with ErrInvalidAmount when the result would be negative.
func (m Money) SubNonNegative(o Money) (Money, error) {
	if o < 0 {
		return Zero, fmt.Errorf("%w: cannot subtract negative %s", ErrInvalidAmount, o)
	}
	if m < o {
		return Zero, fmt.Errorf("%w: %s - %s is negative", ErrInvalidAmount, m, o)
	}
	return m - o, nil
}

// RequirePositive rejects externally supplied amounts that are zero or negative.
func RequirePositive(m Money) error {
	if m <= 0 {
		return fmt.Errorf("%w: got %s", ErrZeroOrNegative, m)
	}
	return nil
}
