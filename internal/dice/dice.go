// Package dice implements dice-expression rolling ("2d6+3").
package dice

import (
	"errors"
	"math/rand"
	"regexp"
	"strconv"
)

// ErrInvalidExpr indicates the expression is not of the form NdM[+K|-K].
var ErrInvalidExpr = errors.New("invalid dice expression")

var exprPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Result captures one evaluated expression.
type Result struct {
	Total    int   `json:"total"`
	Rolls    []int `json:"rolls"`
	Modifier int   `json:"modifier"`
}

// Roll parses expr and rolls it with rng. Given the same rng state and
// expression it always produces the same Result.
func Roll(expr string, rng *rand.Rand) (Result, error) {
	m := exprPattern.FindStringSubmatch(expr)
	if m == nil {
		return Result{}, ErrInvalidExpr
	}

	count, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, ErrInvalidExpr
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Result{}, ErrInvalidExpr
	}
	if count <= 0 || sides <= 0 {
		return Result{}, ErrInvalidExpr
	}
	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Result{}, ErrInvalidExpr
		}
	}

	res := Result{Modifier: modifier, Total: modifier, Rolls: make([]int, 0, count)}
	for i := 0; i < count; i++ {
		v := rng.Intn(sides) + 1
		res.Rolls = append(res.Rolls, v)
		res.Total += v
	}
	return res, nil
}
