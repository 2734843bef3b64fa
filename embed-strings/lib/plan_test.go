package lib

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// listFiles returns the slash separated paths of all files under root
func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestRunScenario(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{"a/b.txt": "hello"})

	report, err := Run(in, out, Options{})
	require.NoError(t, err)
	require.Len(t, report.Written, 1)

	got := readFile(t, filepath.Join(out, "a", "b.txt.h"))
	assert.True(t, strings.HasPrefix(got, "// Generated from "+filepath.Join(in, "a", "b.txt")+"\n"))
	assert.Contains(t, got, "#pragma once")
	assert.Contains(t, got, "namespace a::b::txt\n{")
	assert.Contains(t, got, "b_txt_str[] = R\"(hello)\";")
}

func TestRunMirrorsTree(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{
		"top.glsl":             "void main() {}",
		"shaders/basic.vert":   "#version 330",
		"shaders/basic.frag":   "#version 330",
		"shaders/post/blur.fs": "uniform float r;",
		"docs/README":          "text",
	})

	var progress bytes.Buffer
	report, err := Run(in, out, Options{Logger: log.New(&progress, "", 0)})
	require.NoError(t, err)
	assert.Len(t, report.Written, 5)
	assert.Empty(t, report.Failed)

	assert.Equal(t, []string{
		"docs/README.h",
		"shaders/basic.frag.h",
		"shaders/basic.vert.h",
		"shaders/post/blur.fs.h",
		"top.glsl.h",
	}, listFiles(t, out))

	assert.Equal(t, "Processing file: docs/README\n"+
		"Processing file: shaders/basic.frag\n"+
		"Processing file: shaders/basic.vert\n"+
		"Processing file: shaders/post/blur.fs\n"+
		"Processing file: top.glsl\n", progress.String())
}

func TestRunIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{
		"a/b.txt": "hello",
		"a/c.txt": `f(")")`,
		"d.txt":   "line\r\nline\r\n",
	})

	_, err := Run(in, out, Options{})
	require.NoError(t, err)
	first := map[string]string{}
	for _, rel := range listFiles(t, out) {
		first[rel] = readFile(t, filepath.Join(out, rel))
	}

	_, err = Run(in, out, Options{})
	require.NoError(t, err)
	for _, rel := range listFiles(t, out) {
		assert.Equal(t, first[rel], readFile(t, filepath.Join(out, rel)), rel)
	}
	assert.Len(t, first, 3)
}

func TestCreatePlanEntries(t *testing.T) {
	tmpDir := t.TempDir()
	makeTree(t, tmpDir, map[string]string{"a/b.txt": "hello"})

	plan, err := CreatePlan(tmpDir, "out", Options{Suffix: ".hpp"})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)

	e := plan.Entries[0]
	assert.Equal(t, filepath.Join(tmpDir, "a", "b.txt"), e.Source)
	assert.Equal(t, "a/b.txt", e.Rel)
	assert.Equal(t, filepath.Join("out", "a", "b.txt"), e.Target)
	assert.Equal(t, filepath.Join("out", "a", "b.txt.hpp"), e.Header)
	assert.Equal(t, "a::b::txt", e.Namespace)
	assert.Equal(t, "b_txt", e.Name)
	assert.Equal(t, "a::b::txt::b_txt_str", e.Symbol())

	_, err = os.Stat("out")
	assert.True(t, os.IsNotExist(err), "planning writes nothing")
}

func TestCreatePlanCollisions(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{
		"a-b.txt": "one",
		"a.b.txt": "two",
		"c.txt":   "three",
	})

	_, err := CreatePlan(in, out, Options{})
	require.ErrorIs(t, err, ErrCollision)
	assert.Contains(t, err.Error(), "a::b::txt::a_b_txt_str")
	assert.Contains(t, err.Error(), "a-b.txt")
	assert.Contains(t, err.Error(), "a.b.txt")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "collisions are reported before writing")

	plan, err := CreatePlan(in, out, Options{OnCollision: IgnoreCollision})
	require.NoError(t, err)
	assert.Equal(t, []Collision{{
		Symbol:  "a::b::txt::a_b_txt_str",
		Sources: []string{"a-b.txt", "a.b.txt"},
	}}, plan.Collisions())
}

func TestCreatePlanSkipsNestedOutput(t *testing.T) {
	tmpDir := t.TempDir()
	makeTree(t, tmpDir, map[string]string{
		"src/x.txt":          "x",
		"generated/x.txt.h":  "old output",
		"generated/y/y.sh.h": "old output",
	})

	plan, err := CreatePlan(tmpDir, filepath.Join(tmpDir, "generated"), Options{})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "src/x.txt", plan.Entries[0].Rel)
}

func TestCreatePlanExclude(t *testing.T) {
	tmpDir := t.TempDir()
	makeTree(t, tmpDir, map[string]string{
		"keep.glsl":        "a",
		"notes.md":         "b",
		"sub/notes.md":     "c",
		".git/config":      "d",
		"build/out.glsl":   "e",
		"sub/keep.glsl":    "f",
		"sub/tmp/old.glsl": "g",
	})

	plan, err := CreatePlan(tmpDir, filepath.Join(tmpDir, "..", "out"), Options{
		Exclude: []string{"*.md", ".git", "build", "sub/tmp"},
	})
	require.NoError(t, err)

	var rels []string
	for _, e := range plan.Entries {
		rels = append(rels, e.Rel)
	}
	assert.Equal(t, []string{"keep.glsl", "sub/keep.glsl"}, rels)
}

func TestCreatePlanInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file.txt")
	writeFile(t, file, "x")

	tests := []struct {
		name  string
		input string
		opts  Options
	}{
		{name: "missing input", input: filepath.Join(tmpDir, "missing")},
		{name: "input is a file", input: file},
		{name: "bad error policy", input: tmpDir, opts: Options{OnError: "retry"}},
		{name: "bad collision policy", input: tmpDir, opts: Options{OnCollision: "rename"}},
		{name: "bad encoding", input: tmpDir, opts: Options{Encoding: "klingon"}},
		{name: "bad exclude pattern", input: tmpDir, opts: Options{Exclude: []string{"[a-"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreatePlan(tt.input, filepath.Join(tmpDir, "out"), tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestRunAbortKeepsEarlierOutput(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{
		"a.txt": "first",
		"b.bin": "\xff\xfe\x00\x01",
		"c.txt": "third",
	})

	report, err := Run(in, out, Options{})
	require.ErrorIs(t, err, ErrNotText)
	assert.Contains(t, err.Error(), "b.bin")
	require.Len(t, report.Written, 1)
	assert.Equal(t, "a.txt", report.Written[0].Rel)

	assert.Equal(t, []string{"a.txt.h"}, listFiles(t, out))
	assert.Contains(t, readFile(t, filepath.Join(out, "a.txt.h")), `R"(first)"`)
}

func TestRunContinueOnError(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{
		"a.txt": "first",
		"b.bin": "\xff\xfe\x00\x01",
		"c.txt": "third",
	})

	report, err := Run(in, out, Options{OnError: ContinueOnError})
	require.ErrorIs(t, err, ErrNotText)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "b.bin", report.Failed[0].Entry.Rel)
	assert.Len(t, report.Written, 2)

	assert.Equal(t, []string{"a.txt.h", "c.txt.h"}, listFiles(t, out))
}

func TestRunFollowsFileSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	makeTree(t, in, map[string]string{"real.txt": "real"})
	writeFile(t, filepath.Join(tmpDir, "elsewhere.txt"), "linked")
	if err := os.Symlink(filepath.Join(tmpDir, "elsewhere.txt"), filepath.Join(in, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	report, err := Run(in, out, Options{})
	require.NoError(t, err)
	assert.Len(t, report.Written, 2)
	assert.Contains(t, readFile(t, filepath.Join(out, "link.txt.h")), `R"(linked)"`)
}
