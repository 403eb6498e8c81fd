package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Two Sum", "two-sum"},
		{"  Hello,   World!  ", "hello-world"},
		{"A+B", "a-b"},
		{"---", "problem"},
		{"", "problem"},
		{"Already-Slugged-3", "already-slugged-3"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func sampleInput() CreateInput {
	return CreateInput{
		Title:        "Two Sum",
		Description:  "Add two numbers.",
		SampleInput:  "1 2",
		SampleOutput: "3",
		Difficulty:   "easy",
		Tests: []TestCase{
			{Input: "1 2", Output: "3"},
			{Input: "5 7", Output: "12"},
		},
	}
}

func TestCreateWritesFullLayout(t *testing.T) {
	repo := NewDiskRepository(t.TempDir())
	result, err := repo.Create(sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.ProblemID != "001-two-sum" {
		t.Fatalf("unexpected problem id: %s", result.ProblemID)
	}
	if result.Number != 1 || result.TestsCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	base := filepath.Join(repo.root, result.ProblemID)
	for _, name := range []string{
		"statement.md", "sample_input.txt", "sample_output.txt",
		"input1.txt", "output1.txt", "input2.txt", "output2.txt", "meta.json",
	} {
		if _, err := os.Stat(filepath.Join(base, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(base, "meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Number != 1 || meta.Difficulty != "easy" || meta.Title != "Two Sum" {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	statement, _ := os.ReadFile(filepath.Join(base, "statement.md"))
	if !strings.Contains(string(statement), "# Problem 1: Two Sum") {
		t.Fatalf("statement missing heading:\n%s", statement)
	}
	if !strings.Contains(string(statement), result.ProblemID) {
		t.Fatalf("statement must name the problem id")
	}
}

func TestCreateAssignsMonotonicNumbers(t *testing.T) {
	repo := NewDiskRepository(t.TempDir())
	first, err := repo.Create(sampleInput())
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	input := sampleInput()
	input.Title = "Three Sum"
	second, err := repo.Create(input)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("numbers must be monotonic: %d then %d", first.Number, second.Number)
	}
	if second.ProblemID != "002-three-sum" {
		t.Fatalf("unexpected second id: %s", second.ProblemID)
	}
}

func TestNextNumberPrefersMeta(t *testing.T) {
	root := t.TempDir()
	repo := NewDiskRepository(root)

	// Directory named 003-x but meta says 7.
	dir := filepath.Join(root, "003-x")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	meta, _ := json.Marshal(Meta{Number: 7, Difficulty: "hard", Title: "X"})
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), meta, 0644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	if got := repo.NextNumber(); got != 8 {
		t.Fatalf("NextNumber = %d, want 8", got)
	}
}

func TestNextNumberDirNameFallback(t *testing.T) {
	root := t.TempDir()
	repo := NewDiskRepository(root)
	if err := os.MkdirAll(filepath.Join(root, "012-old-problem"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if got := repo.NextNumber(); got != 13 {
		t.Fatalf("NextNumber = %d, want 13", got)
	}
}

func TestCreateNameCollisionGetsSuffix(t *testing.T) {
	root := t.TempDir()
	repo := NewDiskRepository(root)
	// Occupy the name the next create would pick: the meta.json number (1)
	// wins over the directory prefix, so the next number is 2 and
	// 002-two-sum is already taken.
	dir := filepath.Join(root, "002-two-sum")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	meta, _ := json.Marshal(Meta{Number: 1, Difficulty: "easy", Title: "Two Sum"})
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), meta, 0644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	result, err := repo.Create(sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.ProblemID == "002-two-sum" {
		t.Fatalf("collision must produce a suffixed directory")
	}
	if result.ProblemID != "002-two-sum-1" {
		t.Fatalf("unexpected collision handling: %s", result.ProblemID)
	}
}

func TestGetDetail(t *testing.T) {
	repo := NewDiskRepository(t.TempDir())
	created, err := repo.Create(sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, err := repo.GetDetail(created.ProblemID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.ProblemID != created.ProblemID || detail.Number != 1 || detail.Difficulty != "easy" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Statement == "" {
		t.Fatalf("detail must include the statement")
	}

	if _, err := repo.GetDetail("999-missing"); err != ErrProblemNotFound {
		t.Fatalf("expected ErrProblemNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo := NewDiskRepository(t.TempDir())
	created, err := repo.Create(sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !repo.Exists(created.ProblemID) {
		t.Fatalf("created problem must exist")
	}
	if repo.Exists("nope") {
		t.Fatalf("absent problem must not exist")
	}
}
