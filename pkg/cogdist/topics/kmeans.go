package topics

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Model is one fitted k-means partition.
type Model struct {
	K           int
	Assignments []int
	Centroids   [][]float64
	Inertia     float64 // sum of squared distances to the assigned centroid
}

// KMeans fits k clusters with k-means++ seeding, keeping the restart with
// the lowest inertia (the earliest restart on ties). Each restart draws
// from its own stream derived from seed, k and the restart number, so the
// result does not depend on which goroutine runs it.
func KMeans(points [][]float64, k, restarts, maxIter int, seed uint64) Model {
	if restarts < 1 {
		restarts = 1
	}
	if maxIter < 1 {
		maxIter = 300
	}
	var best Model
	for r := 0; r < restarts; r++ {
		rng := rand.New(rand.NewPCG(seed, uint64(k)<<32|uint64(r)))
		m := lloyd(points, k, maxIter, rng)
		if r == 0 || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best
}

func lloyd(points [][]float64, k, maxIter int, rng *rand.Rand) Model {
	dim := len(points[0])
	centroids := seedPlusPlus(points, k, rng)
	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c, _ := nearest(p, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		for c := range centroids {
			for d := range centroids[c] {
				centroids[c][d] = 0
			}
			counts[c] = 0
		}
		for i, p := range points {
			floats.Add(centroids[assign[i]], p)
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), centroids[c])
			}
		}
		reseedEmpty(points, assign, centroids, counts, dim)
	}

	var inertia float64
	for i, p := range points {
		inertia += sqDist(p, centroids[assign[i]])
	}
	return Model{K: k, Assignments: assign, Centroids: centroids, Inertia: inertia}
}

// seedPlusPlus picks initial centroids with probability proportional to the
// squared distance from the nearest centroid chosen so far.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(n)]))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := rng.IntN(n)
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}
		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// reseedEmpty moves each empty centroid onto the point farthest from its
// own centroid, taking that point out of its old cluster.
func reseedEmpty(points [][]float64, assign []int, centroids [][]float64, counts []int, dim int) {
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, 0.0
		for i, p := range points {
			if counts[assign[i]] <= 1 {
				continue
			}
			if d := sqDist(p, centroids[assign[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[assign[far]]--
		assign[far] = c
		counts[c] = 1
		copy(centroids[c][:dim], points[far])
	}
}

func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
