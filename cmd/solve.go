package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/distortfit/internal/metric"
	"github.com/cwbudde/distortfit/internal/sdp"
	"github.com/cwbudde/distortfit/internal/solver"
	"github.com/cwbudde/distortfit/internal/store"
)

var (
	matrixPath string
	pointsPath string
	graphPath  string
	vertices   int
	backend    string
	iters      int
	popSize    int
	seed       int64
	tol        float64
	verbose    bool
	saveResult bool
	dataDir    string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the distortion SDP for a metric",
	Long: `Computes the minimum-distortion Euclidean embedding bound for a
finite metric given as a distance matrix (CSV), a point set (CSV of
coordinates, one point per row), or a weighted graph edge list
("u v w" per line, shortest-path metric).`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&matrixPath, "matrix", "", "Distance matrix CSV path")
	solveCmd.Flags().StringVar(&pointsPath, "points", "", "Point coordinates CSV path")
	solveCmd.Flags().StringVar(&graphPath, "graph", "", "Graph edge list path")
	solveCmd.Flags().IntVar(&vertices, "vertices", 0, "Vertex count (required with --graph)")
	solveCmd.Flags().StringVar(&backend, "backend", "projection", "Solver backend: projection, mayfly")
	solveCmd.Flags().IntVar(&iters, "iters", 0, "Max iterations (0 = backend default)")
	solveCmd.Flags().IntVar(&popSize, "pop", 30, "Population size (mayfly)")
	solveCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed (mayfly)")
	solveCmd.Flags().Float64Var(&tol, "tol", 0, "Feasibility tolerance (0 = backend default)")
	solveCmd.Flags().BoolVar(&verbose, "verbose", false, "Report solver progress")
	solveCmd.Flags().BoolVar(&saveResult, "save", false, "Persist the result to the data directory")
	solveCmd.Flags().StringVar(&dataDir, "data", "./data", "Base directory for result storage")

	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	n, dist, err := loadMetric()
	if err != nil {
		return err
	}

	var s sdp.Solver
	switch backend {
	case "projection":
		s = solver.NewProjection(iters, tol)
	case "mayfly":
		mIters := iters
		if mIters <= 0 {
			mIters = 200
		}
		s = solver.NewMayfly(mIters, popSize, seed)
	default:
		return fmt.Errorf("unknown backend: %s", backend)
	}

	slog.Info("Starting solve", "n", n, "backend", backend)

	start := time.Now()
	result, err := sdp.Optimize(n, dist, s, verbose)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	slog.Info("Solve complete", "status", result.Status, "elapsed", elapsed)

	if result.Status != sdp.StatusOptimal {
		return fmt.Errorf("solver finished with status %s", result.Status)
	}

	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Distortion D: %.6f\n", result.D)
	fmt.Printf("Solved %d vertices in %s\n", n, elapsed.Round(time.Millisecond))

	if saveResult {
		id, err := persistResult(n, result, elapsed)
		if err != nil {
			return err
		}
		fmt.Printf("Saved result %s\n", id)
	}

	return nil
}

func persistResult(n int, result *sdp.Result, elapsed time.Duration) (string, error) {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to create result store: %w", err)
	}

	id := uuid.New().String()
	doc := &store.ResultDoc{
		ID:             id,
		N:              n,
		Status:         result.Status,
		D:              result.D,
		Backend:        backend,
		ElapsedSeconds: elapsed.Seconds(),
		Timestamp:      time.Now(),
	}
	if result.G != nil {
		m := result.G.SymmetricDim()
		doc.G = make([]float64, 0, m*m)
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				doc.G = append(doc.G, result.G.At(i, j))
			}
		}
	}
	if result.Delta != nil {
		r, c := result.Delta.Dims()
		doc.Delta = make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				doc.Delta = append(doc.Delta, result.Delta.At(i, j))
			}
		}
	}

	if err := st.SaveResult(id, doc); err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}
	return id, nil
}

// loadMetric builds (n, oracle) from whichever input flag is set.
func loadMetric() (int, sdp.DistFunc, error) {
	set := 0
	for _, p := range []string{matrixPath, pointsPath, graphPath} {
		if p != "" {
			set++
		}
	}
	if set != 1 {
		return 0, nil, fmt.Errorf("exactly one of --matrix, --points, --graph is required")
	}

	switch {
	case matrixPath != "":
		m, err := loadMatrixCSV(matrixPath)
		if err != nil {
			return 0, nil, err
		}
		r, c := m.Dims()
		if r != c {
			return 0, nil, fmt.Errorf("distance matrix must be square, got %dx%d", r, c)
		}
		return r, metric.FromMatrix(m), nil

	case pointsPath != "":
		points, err := loadPointsCSV(pointsPath)
		if err != nil {
			return 0, nil, err
		}
		dist, err := metric.Euclidean(points)
		if err != nil {
			return 0, nil, err
		}
		return len(points), dist, nil

	default:
		if vertices < 1 {
			return 0, nil, fmt.Errorf("--vertices is required with --graph")
		}
		edges, err := loadEdgeList(graphPath)
		if err != nil {
			return 0, nil, err
		}
		dist, err := metric.GraphShortestPath(vertices, edges)
		if err != nil {
			return 0, nil, err
		}
		return vertices, dist, nil
	}
}

func loadMatrixCSV(path string) (*mat.Dense, error) {
	rows, err := loadCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty matrix file: %s", path)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func loadPointsCSV(path string) ([][]float64, error) {
	return loadCSV(path)
}

func loadCSV(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make([][]float64, 0, len(records))
	for i, record := range records {
		row := make([]float64, 0, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad value at row %d, column %d: %w", path, i, j, err)
			}
			row = append(row, v)
		}
		out = append(out, row)
	}
	return out, nil
}

// loadEdgeList parses "u v w" lines; blank lines and #-comments are
// skipped.
func loadEdgeList(path string) ([]metric.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var edges []metric.Edge
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: want 'u v w', got %q", path, line, text)
		}
		u, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad vertex %q: %w", path, line, fields[0], err)
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad vertex %q: %w", path, line, fields[1], err)
		}
		w, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad weight %q: %w", path, line, fields[2], err)
		}
		edges = append(edges, metric.Edge{U: u, V: v, W: w})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return edges, nil
}
