package lib

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrCollision is returned when two files map to the same C++ symbol
var ErrCollision = errors.New("symbol collision")

// ErrorPolicy decides what a run does after a file fails
type ErrorPolicy string

const (
	// AbortOnError stops at the first failing file
	AbortOnError ErrorPolicy = "abort"
	// ContinueOnError records the failure and moves on to the next file
	ContinueOnError ErrorPolicy = "continue"
)

// CollisionPolicy decides what happens when two files share a symbol
type CollisionPolicy string

const (
	FailOnCollision CollisionPolicy = "error"
	IgnoreCollision CollisionPolicy = "ignore"
)

// ParseErrorPolicy validates an error policy name; empty means abort
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return AbortOnError, nil
	case AbortOnError, ContinueOnError:
		return p, nil
	}
	return "", fmt.Errorf("invalid error policy %q (want %q or %q)", s, AbortOnError, ContinueOnError)
}

// ParseCollisionPolicy validates a collision policy name; empty means error
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailOnCollision, nil
	case FailOnCollision, IgnoreCollision:
		return p, nil
	}
	return "", fmt.Errorf("invalid collision policy %q (want %q or %q)", s, FailOnCollision, IgnoreCollision)
}

// Options configures a run
type Options struct {
	Suffix      string
	Encoding    string
	Exclude     []string // path.Match patterns, tested on the relative path and the base name
	OnError     ErrorPolicy
	OnCollision CollisionPolicy
	Logger      *log.Logger // receives one progress line per file; nil is silent
}

// Entry is one discovered file and everything derived from it
type Entry struct {
	Source    string // walked path of the input file
	Rel       string // path relative to the input root, slash separated
	Target    string // output path before the suffix
	Header    string // output path including the suffix
	Namespace string
	Name      string
}

// Symbol returns the fully qualified name of the embedded constant
func (e Entry) Symbol() string {
	if e.Namespace == "" {
		return e.Name + "_str"
	}
	return e.Namespace + NamespaceSeparator + e.Name + "_str"
}

// Job converts the entry into an embedding job
func (e Entry) Job() Job {
	return Job{
		Source:        e.Source,
		Target:        e.Target,
		NamespaceHint: e.Rel,
		NameHint:      path.Base(e.Rel),
	}
}

// Collision lists the files that share one symbol
type Collision struct {
	Symbol  string
	Sources []string
}

// Plan represents the headers one run will generate
type Plan struct {
	InputDir  string
	OutputDir string
	Entries   []Entry

	embedder *Embedder
	options  Options
}

// Failure records a file that could not be embedded
type Failure struct {
	Entry Entry
	Err   error
}

// Report summarizes an executed plan
type Report struct {
	Written []Entry
	Failed  []Failure
}

// CreatePlan walks inputDir and returns a Plan for embedding every regular
// file under it into outputDir. Nothing is written.
func CreatePlan(inputDir, outputDir string, opts Options) (*Plan, error) {
	var err error
	if opts.OnError, err = ParseErrorPolicy(string(opts.OnError)); err != nil {
		return nil, err
	}
	if opts.OnCollision, err = ParseCollisionPolicy(string(opts.OnCollision)); err != nil {
		return nil, err
	}
	if err := ValidEncoding(opts.Encoding); err != nil {
		return nil, err
	}
	for _, pattern := range opts.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", inputDir)
	}

	plan := &Plan{
		InputDir:  inputDir,
		OutputDir: outputDir,
		embedder:  &Embedder{Suffix: opts.Suffix, Encoding: opts.Encoding},
		options:   opts,
	}

	// Skip the output tree when it is nested in the input tree
	skipDir := ""
	absIn, errIn := filepath.Abs(inputDir)
	absOut, errOut := filepath.Abs(outputDir)
	if errIn == nil && errOut == nil && absIn != absOut && isWithin(absIn, absOut) {
		skipDir = absOut
	}

	err = filepath.WalkDir(inputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(inputDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDir != "" {
				if abs, err := filepath.Abs(p); err == nil && abs == skipDir {
					return filepath.SkipDir
				}
			}
			if plan.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isRegular(p, d) || plan.excluded(rel) {
			return nil
		}

		target := filepath.Join(outputDir, filepath.FromSlash(rel))
		plan.Entries = append(plan.Entries, Entry{
			Source:    p,
			Rel:       rel,
			Target:    target,
			Header:    plan.embedder.HeaderPath(target),
			Namespace: NamespaceOf(rel),
			Name:      IdentifierOf(path.Base(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", inputDir, err)
	}

	if opts.OnCollision == FailOnCollision {
		if collisions := plan.Collisions(); len(collisions) > 0 {
			return nil, collisionError(collisions)
		}
	}

	return plan, nil
}

// Collisions returns every symbol produced by more than one file
func (p *Plan) Collisions() []Collision {
	bySymbol := make(map[string][]string)
	for _, e := range p.Entries {
		bySymbol[e.Symbol()] = append(bySymbol[e.Symbol()], e.Rel)
	}

	var collisions []Collision
	for symbol, sources := range bySymbol {
		if len(sources) > 1 {
			collisions = append(collisions, Collision{Symbol: symbol, Sources: sources})
		}
	}
	sort.Slice(collisions, func(i, j int) bool {
		return collisions[i].Symbol < collisions[j].Symbol
	})
	return collisions
}

// Run embeds every entry of the plan in order
func (p *Plan) Run() (*Report, error) {
	report := &Report{}
	var errs []error

	for _, entry := range p.Entries {
		if p.options.Logger != nil {
			p.options.Logger.Printf("Processing file: %s", entry.Rel)
		}

		if _, err := p.embedder.Embed(entry.Job()); err != nil {
			if p.options.OnError != ContinueOnError {
				return report, err
			}
			report.Failed = append(report.Failed, Failure{Entry: entry, Err: err})
			errs = append(errs, err)
			continue
		}
		report.Written = append(report.Written, entry)
	}

	return report, errors.Join(errs...)
}

// Run creates a plan for inputDir and executes it
func Run(inputDir, outputDir string, opts Options) (*Report, error) {
	plan, err := CreatePlan(inputDir, outputDir, opts)
	if err != nil {
		return nil, err
	}
	return plan.Run()
}

func (p *Plan) excluded(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range p.options.Exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func collisionError(collisions []Collision) error {
	lines := make([]string, 0, len(collisions))
	for _, c := range collisions {
		lines = append(lines, fmt.Sprintf("%s <- %s", c.Symbol, strings.Join(c.Sources, ", ")))
	}
	return fmt.Errorf("%w: %s", ErrCollision, strings.Join(lines, "; "))
}

// isRegular reports whether the entry is a regular file or a symlink to one
func isRegular(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
