package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func main() {
	numPoints := flag.Int("points", 5000, "Number of hit points")
	grid := flag.Int("grid", 200, "Fluence map resolution per axis")
	numWorkers := flag.Int("workers", 0, "Number of worker goroutines (0 = CPU count)")
	seed := flag.Int64("seed", 1, "Random seed for the hit points")
	flag.Parse()

	if *numWorkers == 0 {
		*numWorkers = runtime.NumCPU()
	}

	fmt.Printf("🔬 Parallel Fluence Estimation Benchmark\n")
	fmt.Printf("========================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Hit points:  %d\n", *numPoints)
	fmt.Printf("  Grid:        %d x %d\n", *grid, *grid)
	fmt.Printf("  CPU Cores:   %d\n", runtime.NumCPU())
	fmt.Printf("  Workers:     %d\n\n", *numWorkers)

	fmt.Printf("📊 Creating Gaussian spot...\n")
	h := createSpot(*numPoints, *seed)
	fmt.Printf("   %d hit points, %.3g J total\n\n", h.Len(), h.TotalWeight())

	shape := [2]int{*grid, *grid}
	for _, est := range hitmap.Estimators {
		fmt.Printf("⚡ %s\n", est)
		base := benchmark(h, shape, est, 1)
		fmt.Printf("   1 worker:   %s (peak %s)\n", base.Duration, base.Peak)
		for _, w := range []int{2, 4, *numWorkers} {
			s := benchmark(h, shape, est, w)
			fmt.Printf("   %d workers:  %s (%.2fx)\n", w, s.Duration, base.Duration.Seconds()/s.Duration.Seconds())
		}
		fmt.Println()
	}
}

type BenchmarkStats struct {
	Duration time.Duration
	Peak     units.Fluence
}

// createSpot scatters 1 J over a Gaussian spot of 1 mm sigma.
func createSpot(n int, seed int64) *hitmap.HitMap {
	rng := rand.New(rand.NewSource(seed))
	h := hitmap.New()
	bundle := uuid.New()
	per := units.Joule(1.0 / float64(n))
	for i := 0; i < n; i++ {
		pos := geom.NewVec3(rng.NormFloat64()*1e-3, rng.NormFloat64()*1e-3, 0)
		hp, err := hitmap.NewEnergyHit(pos, per)
		if err != nil {
			log.Fatalf("Failed to create hit point: %v", err)
		}
		if err := h.AddHitPoint(0, bundle, hp); err != nil {
			log.Fatalf("Failed to add hit point: %v", err)
		}
	}
	return h
}

func benchmark(h *hitmap.HitMap, shape [2]int, est hitmap.Estimator, workers int) BenchmarkStats {
	start := time.Now()
	f, err := h.CalcFluenceMapContext(context.Background(), shape, est, workers)
	if err != nil {
		log.Fatalf("%s with %d workers failed: %v", est, workers, err)
	}
	return BenchmarkStats{Duration: time.Since(start), Peak: f.Peak()}
}
