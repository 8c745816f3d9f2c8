package sat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func satisfies(sat SAT, solution SATSolution) bool {
	for _, clause := range sat.Clauses {
		satisfied := false
		for _, literal := range clause {
			if literal > 0 && solution.Value(literal) || literal < 0 && !solution.Value(-literal) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

func TestGini(t *testing.T) {
	solver := NewGiniSolver()

	t.Run("Satisfiable instance", func(t *testing.T) {
		//** Arrange
		instance := SAT{Variables: 3, Clauses: [][]int64{{1, 2}, {-1, 3}, {-3}}}

		//** Act
		solution, err := solver.Solve(instance)

		//** Assert
		require.NoError(t, err)
		require.NotNil(t, solution)
		assert.True(t, satisfies(instance, solution))
		assert.True(t, solution.Value(2))
		assert.False(t, solution.Value(1))
	})

	t.Run("Unsatisfiable instance", func(t *testing.T) {
		instance := SAT{Variables: 1, Clauses: [][]int64{{1}, {-1}}}

		solution, err := solver.Solve(instance)

		require.NoError(t, err)
		assert.Nil(t, solution)
	})
}

func TestAtMostK(t *testing.T) {
	tests := []struct {
		name      string
		k         int
		forced    int
		satisfied bool
	}{
		{"At most two of five, two forced", 2, 2, true},
		{"At most two of five, three forced", 2, 3, false},
		{"At most zero", 0, 1, false},
		{"Bound above size", 6, 5, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			//** Arrange
			builder := NewBuilder()
			literals := make([]int64, 5)
			for i := range literals {
				literals[i] = builder.NewVariable()
			}
			builder.AtMostK(literals, test.k)
			for _, literal := range literals[:test.forced] {
				builder.AddClause(literal)
			}

			//** Act
			solution, err := NewGiniSolver().Solve(builder.SAT())

			//** Assert
			require.NoError(t, err)
			assert.Equal(t, test.satisfied, solution != nil)
		})
	}

	t.Run("Repeated literal counts twice", func(t *testing.T) {
		builder := NewBuilder()
		a, b := builder.NewVariable(), builder.NewVariable()
		builder.AtMostK([]int64{a, a, b}, 2)
		builder.AddClause(a)
		builder.AddClause(b)

		solution, err := NewGiniSolver().Solve(builder.SAT())

		require.NoError(t, err)
		assert.Nil(t, solution)
	})

	t.Run("Exactly one", func(t *testing.T) {
		builder := NewBuilder()
		literals := []int64{builder.NewVariable(), builder.NewVariable(), builder.NewVariable()}
		builder.ExactlyOne(literals)

		solution, err := NewGiniSolver().Solve(builder.SAT())

		require.NoError(t, err)
		require.NotNil(t, solution)
		count := 0
		for _, literal := range literals {
			if solution.Value(literal) {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestToDIMACS(t *testing.T) {
	instance := SAT{Variables: 2, Clauses: [][]int64{{1, -2}, {2}}}

	assert.Equal(t, "p cnf 2 2\n1 -2 0\n2 0\n", instance.ToDIMACS())
}

func TestParseSolution(t *testing.T) {
	output := "c comment\ns SATISFIABLE\nv 1 -2 3\nv -4 0\n"

	solution, err := parseSolution(output)

	require.NoError(t, err)
	assert.Equal(t, SATSolution{1, -2, 3, -4}, solution)

	_, err = parseSolution("v 1 x 0\n")
	assert.Error(t, err)
}

func TestParseResultFile(t *testing.T) {
	solution, err := parseResultFile("SAT\n1 -2 3 0\n")

	require.NoError(t, err)
	assert.Equal(t, SATSolution{1, -2, 3}, solution)

	_, err = parseResultFile("INDET\n")
	assert.Error(t, err)
}

func TestExternalSolver(t *testing.T) {
	script := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "solver.sh")
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
		return path
	}
	instance := SAT{Variables: 2, Clauses: [][]int64{{1}, {-2}}}

	tests := []struct {
		name     string
		solver   string
		body     string
		expected SATSolution
	}{
		{"Model on stdout", "kissat", "cat > /dev/null\necho 's SATISFIABLE'\necho 'v 1 -2 0'\nexit 10\n", SATSolution{1, -2}},
		{"Model in result file", "minisat", "test -s \"$2\" || exit 1\nprintf 'SAT\\n1 -2 0\\n' > \"$3\"\nexit 10\n", SATSolution{1, -2}},
		{"Instance file", "slime", "grep -q 'p cnf 2 2' \"$1\" || exit 1\necho 'v 1 -2 0'\nexit 10\n", SATSolution{1, -2}},
		{"Unsatisfiable", "kissat", "cat > /dev/null\necho 's UNSATISFIABLE'\nexit 20\n", nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			solver := NewExternalSolver(test.solver, script(t, test.body))

			solution, err := solver.Solve(instance)

			require.NoError(t, err)
			assert.Equal(t, test.expected, solution)
		})
	}

	t.Run("Crashing solver", func(t *testing.T) {
		solver := NewExternalSolver("kissat", script(t, "echo boom >&2\nexit 3\n"))

		_, err := solver.Solve(instance)

		assert.ErrorContains(t, err, "boom")
	})

	t.Run("Missing binary", func(t *testing.T) {
		solver := NewExternalSolver("kissat", filepath.Join(t.TempDir(), "absent"))

		_, err := solver.Solve(instance)

		assert.Error(t, err)
	})
}
