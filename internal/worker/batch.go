package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Verdict is the classification of one path
type Verdict struct {
	Index         int
	Path          string
	Documentation bool
	Err           error
}

// GetError returns the error from the verdict
func (v *Verdict) GetError() error {
	return v.Err
}

// classifyJob classifies a single path
type classifyJob struct {
	index      int
	path       string
	classifier Classifier
}

func (j *classifyJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &Verdict{Index: j.index, Path: j.path, Err: err}
	}
	return &Verdict{
		Index:         j.index,
		Path:          j.path,
		Documentation: j.classifier.IsDocumentationResource(j.path),
	}
}

// BatchClassifier classifies many paths concurrently
type BatchClassifier struct {
	classifier  Classifier
	concurrency int
}

// NewBatchClassifier creates a new batch classifier
func NewBatchClassifier(c Classifier, concurrency int) *BatchClassifier {
	return &BatchClassifier{
		classifier:  c,
		concurrency: concurrency,
	}
}

// ClassifyPaths classifies paths and returns verdicts in input order.
// Paths not reached before ctx is done carry ctx's error.
func (b *BatchClassifier) ClassifyPaths(ctx context.Context, paths []string) []Verdict {
	verdicts := make([]Verdict, len(paths))
	if len(paths) == 0 {
		return verdicts
	}
	for i, p := range paths {
		verdicts[i] = Verdict{Index: i, Path: p}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	go func() {
		defer pool.Close()
		for i, p := range paths {
			job := &classifyJob{index: i, path: p, classifier: b.classifier}
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	done := make([]bool, len(paths))
	for r := range pool.Results() {
		v := r.(*Verdict)
		verdicts[v.Index] = *v
		done[v.Index] = true
	}

	if err := ctx.Err(); err != nil {
		for i := range verdicts {
			if !done[i] {
				verdicts[i].Err = err
			}
		}
	}

	return verdicts
}

// ClassifyFile reads paths from a file and classifies them
func (b *BatchClassifier) ClassifyFile(ctx context.Context, filePath string) ([]Verdict, error) {
	paths, err := ReadPathsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ClassifyPaths(ctx, paths), nil
}

// ReadPathsFromFile reads paths from a file (one per line)
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
