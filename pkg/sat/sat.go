package sat

import (
	"fmt"
	"strings"
)

type SATSolution []int64

type SAT struct {
	Variables uint64
	Clauses   [][]int64
}

func (s SAT) ToDIMACS() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "p cnf %d %d\n", s.Variables, len(s.Clauses))
	for _, clause := range s.Clauses {
		for _, literal := range clause {
			fmt.Fprintf(&builder, "%d ", literal)
		}
		builder.WriteString("0\n")
	}
	return builder.String()
}

// Value reports whether the variable is true in the solution.
func (solution SATSolution) Value(variable int64) bool {
	if variable <= 0 || variable > int64(len(solution)) {
		return false
	}
	return solution[variable-1] > 0
}

// Builder grows a SAT instance, allocating auxiliary variables as needed.
type Builder struct {
	sat SAT
}

func NewBuilder() *Builder {
	return &Builder{sat: SAT{Clauses: make([][]int64, 0)}}
}

func (builder *Builder) NewVariable() int64 {
	builder.sat.Variables++
	return int64(builder.sat.Variables)
}

func (builder *Builder) AddClause(literals ...int64) {
	builder.sat.Clauses = append(builder.sat.Clauses, literals)
}

func (builder *Builder) AtLeastOne(literals []int64) {
	builder.AddClause(append([]int64(nil), literals...)...)
}

// AtMostK encodes sum(literals) <= k with a sequential counter.
// A literal repeated n times counts n times.
func (builder *Builder) AtMostK(literals []int64, k int) {
	n := len(literals)
	if n <= k {
		return
	}
	if k <= 0 {
		for _, literal := range literals {
			builder.AddClause(-literal)
		}
		return
	}

	// counter[i][j] holds when at least j+1 of the first i+1 literals are true
	counter := make([][]int64, n-1)
	for i := range counter {
		counter[i] = make([]int64, k)
		for j := range counter[i] {
			counter[i][j] = builder.NewVariable()
		}
	}

	builder.AddClause(-literals[0], counter[0][0])
	for j := 1; j < k; j++ {
		builder.AddClause(-counter[0][j])
	}
	for i := 1; i < n-1; i++ {
		builder.AddClause(-literals[i], counter[i][0])
		builder.AddClause(-counter[i-1][0], counter[i][0])
		for j := 1; j < k; j++ {
			builder.AddClause(-literals[i], -counter[i-1][j-1], counter[i][j])
			builder.AddClause(-counter[i-1][j], counter[i][j])
		}
		builder.AddClause(-literals[i], -counter[i-1][k-1])
	}
	builder.AddClause(-literals[n-1], -counter[n-2][k-1])
}

func (builder *Builder) ExactlyOne(literals []int64) {
	builder.AtLeastOne(literals)
	builder.AtMostK(literals, 1)
}

func (builder *Builder) SAT() SAT {
	return builder.sat
}
