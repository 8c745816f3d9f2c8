package sat

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/samber/lo"
)

type SATSolver interface {
	Solve(SAT) (SATSolution, error) // Returns a solution of the SAT instance if satisfiable, else returns nil (these are valid outputs where error shall be nil)
}

type giniSolver struct{}

// NewGiniSolver solves instances in-process.
func NewGiniSolver() SATSolver {
	return &giniSolver{}
}

func (solver *giniSolver) Solve(sat SAT) (SATSolution, error) {
	g := gini.New()
	for _, clause := range sat.Clauses {
		for _, literal := range clause {
			g.Add(z.Dimacs2Lit(int(literal)))
		}
		g.Add(z.LitNull)
	}

	if g.Solve() != 1 {
		return nil, nil
	}

	solution := make(SATSolution, sat.Variables)
	maxVar := g.MaxVar()
	for variable := uint64(1); variable <= sat.Variables; variable++ {
		// Variables absent from every clause are left false
		if z.Var(variable) <= maxVar && g.Value(z.Var(variable).Pos()) {
			solution[variable-1] = int64(variable)
		} else {
			solution[variable-1] = -int64(variable)
		}
	}
	return solution, nil
}

// InputMode is how an external solver receives the instance and reports the model.
type InputMode int

const (
	InputStdin          InputMode = iota // DIMACS on stdin, model on stdout
	InputFile                            // DIMACS file path as last argument, model on stdout
	InputFileWithResult                  // DIMACS and result file paths as last arguments, model in the result file
)

type ExternalSpec struct {
	Args []string
	Mode InputMode
}

// Well-known solvers
var ExternalSolvers = map[string]ExternalSpec{
	"kissat":        {Args: []string{"-q", "--relaxed"}},
	"cadical":       {Args: []string{"-q"}},
	"cryptominisat": {Args: []string{"--verb=0"}},
	"minisat":       {Args: []string{"-verb=0"}, Mode: InputFileWithResult},
	"glucosesimp":   {Args: []string{"-verb=0"}, Mode: InputFileWithResult},
	"slime":         {Mode: InputFile},
	"ortoolsat":     {Mode: InputFile},
}

type externalSolver struct {
	name string
	path string
	spec ExternalSpec
}

// NewExternalSolver runs a DIMACS solver binary. Unknown names read stdin and print the SAT competition format.
func NewExternalSolver(name, path string) SATSolver {
	return &externalSolver{name: name, path: path, spec: ExternalSolvers[name]}
}

func (solver *externalSolver) Solve(sat SAT) (SATSolution, error) {
	dimacs := sat.ToDIMACS() // Transform SAT into DIMACS-CNF string format
	args := slices.Clone(solver.spec.Args)

	var resultPath string
	if solver.spec.Mode != InputStdin {
		dir, err := os.MkdirTemp("", solver.name+"-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary directory: %w", err)
		}
		defer os.RemoveAll(dir)

		inputPath := filepath.Join(dir, "input.cnf")
		if err := os.WriteFile(inputPath, []byte(dimacs), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write DIMACS to temporary file: %w", err)
		}
		args = append(args, inputPath)
		if solver.spec.Mode == InputFileWithResult {
			resultPath = filepath.Join(dir, "result.cnf")
			args = append(args, resultPath)
		}
	}

	cmd := exec.Command(solver.path, args...)
	if solver.spec.Mode == InputStdin {
		cmd.Stdin = strings.NewReader(dimacs)
	}

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	if cmd.ProcessState == nil {
		return nil, fmt.Errorf("cannot start %v: %w", solver.name, err)
	} else if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during %v execution: %v : %v", solver.name, err.Error(), stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	if resultPath != "" {
		output, err := os.ReadFile(resultPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read result file: %w", err)
		}
		return parseResultFile(string(output))
	}
	return parseSolution(stdOut.String())
}

func parseSolution(solverOutput string) (SATSolution, error) {
	var parseErr error
	values := lo.Map(
		lo.Reduce(
			lo.Filter(strings.Split(solverOutput, "\n"), func(line string, _ int) bool {
				return len(line) > 1 && line[0] == 'v'
			}),
			func(values []string, line string, _ int) []string {
				return append(values, strings.Fields(line[2:])...)
			},
			[]string{},
		),
		func(valueStr string, _ int) int64 {
			value, err := strconv.ParseInt(valueStr, 10, 64)
			if err != nil && parseErr == nil {
				parseErr = fmt.Errorf("invalid literal in solver output: %w", err)
			}
			return value
		},
	)
	if parseErr != nil {
		return nil, parseErr
	}
	if len(values) > 0 && values[len(values)-1] == 0 {
		values = values[:len(values)-1]
	}
	return values, nil
}

// parseResultFile reads the minisat result format: a SAT/UNSAT header line followed by the model.
func parseResultFile(output string) (SATSolution, error) {
	lines := strings.SplitN(output, "\n", 3)
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "SAT" {
		return nil, fmt.Errorf("unexpected result file header %q", strings.TrimSpace(lines[0]))
	}
	return parseSolution("v " + lines[1])
}
