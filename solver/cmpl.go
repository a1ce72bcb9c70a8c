package solver

import (
	"bufio"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Files names the artifacts of one pass. Program is read from the executable
// path, everything else lives in the work path.
type Files struct {
	Program            string
	ProgramWithTimeout string
	Data               string
	Solution           string
}

// DefaultFiles are the artifact names used for each pass.
var DefaultFiles = map[Pass]Files{
	FirstPass: {
		Program:            "FirstPass.cmpl",
		ProgramWithTimeout: "FirstPass_withTimeOut.cmpl",
		Data:               "firstpass_input.cdat",
		Solution:           "firstpass_output.csv",
	},
	SecondPass: {
		Program:            "SecondPass.cmpl",
		ProgramWithTimeout: "SecondPass_withTimeOut.cmpl",
		Data:               "secondpass_input.cdat",
		Solution:           "secondpass_output.csv",
	},
}

const defaultBinary = "cmpl"

// CMPL solves problems by running the external cmpl binary against a
// program template for each pass.
type CMPL struct {
	// Binary is the solver executable, looked up in the executable path,
	// or in $PATH if the executable path is empty.
	Binary string
	Files  map[Pass]Files

	executablePath string
	workPath       string
	logger         *log.Logger
}

// NewCMPL returns a CMPL solver using the default binary and artifact names.
// A nil logger discards all messages.
func NewCMPL(executablePath, workPath string, logger *log.Logger) *CMPL {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &CMPL{
		Binary:         defaultBinary,
		Files:          DefaultFiles,
		executablePath: executablePath,
		workPath:       workPath,
		logger:         logger,
	}
}

// ExePath resolves a file relative to the executable path.
func (s *CMPL) ExePath(name string) string {
	return filepath.Join(s.executablePath, name)
}

// WorkPath resolves a file relative to the work path.
func (s *CMPL) WorkPath(name string) string {
	return filepath.Join(s.workPath, name)
}

func (s *CMPL) binary() (string, error) {
	if s.executablePath == "" {
		path, err := exec.LookPath(s.Binary)
		if err != nil {
			return "", errors.Wrapf(ErrConfig, "%v", err)
		}
		return path, nil
	}
	path := s.ExePath(s.Binary)
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(ErrConfig, "%v", err)
	}
	if info.IsDir() || info.Mode()&0111 == 0 {
		return "", errors.Wrapf(ErrConfig, "%s is not executable", path)
	}
	return path, nil
}

func removeStale(files ...string) error {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *CMPL) writeData(p *Problem, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n, err := p.WriteTo(w)
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s.logger.Printf("Wrote %s problem to %s (%s)\n", p.Pass, file, humanize.Bytes(uint64(n)))

	return f.Close()
}

// The program template is prefixed with the data file and, when there is a
// time budget, a solver option limiting the run time.
func (s *CMPL) writeProgram(template, file, data string, seconds int) error {
	b, err := ioutil.ReadFile(template)
	if err != nil {
		return err
	}

	header := fmt.Sprintf("%%data %s\n", data)
	if seconds > 0 {
		header += fmt.Sprintf("%%opt cbc seconds %d\n", seconds)
	}

	return ioutil.WriteFile(file, append([]byte(header), b...), 0644)
}

// Solve implements the Solver interface.
func (s *CMPL) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	files, ok := s.Files[p.Pass]
	if !ok {
		return nil, errors.Wrapf(ErrConfig, "no files for %s", p.Pass)
	}

	bin, err := s.binary()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.workPath, 0755); err != nil {
		return nil, errors.Wrapf(ErrConfig, "%v", err)
	}

	data := s.WorkPath(files.Data)
	program := s.WorkPath(files.ProgramWithTimeout)
	solution := s.WorkPath(files.Solution)

	if err := removeStale(program, solution); err != nil {
		return nil, errors.Wrapf(ErrConfig, "%v", err)
	}

	if err := s.writeData(p, data); err != nil {
		return nil, errors.Wrapf(ErrConfig, "%v", err)
	}

	seconds := 0
	if p.Timeout > 0 {
		seconds = int(math.Ceil(p.Timeout.Seconds()))
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	if err := s.writeProgram(s.ExePath(files.Program), program, data, seconds); err != nil {
		return nil, errors.Wrapf(ErrConfig, "%v", err)
	}

	s.logger.Printf("Running %s %s\n", bin, program)

	cmd := exec.CommandContext(ctx, bin, program, "-solutionCsv", solution)
	cmd.Dir = s.workPath
	out, err := cmd.CombinedOutput()
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return nil, errors.Wrapf(ErrInfeasible, "%s exceeded %v", p.Pass, p.Timeout)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, errors.Wrapf(ErrConfig, "%v", err)
		}
		s.logger.Printf("Solver exited with %v: %s\n", err, out)
	}

	f, err := os.Open(solution)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInfeasible, "%s produced no solution", p.Pass)
		}
		return nil, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		s.logger.Printf("Reading %s solution from %s (%s)\n", p.Pass, solution, humanize.Bytes(uint64(info.Size())))
	}

	return ParseSolution(bufio.NewReader(f), p)
}
