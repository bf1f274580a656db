package topics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DaviesBouldin scores a partition; lower is better. For each cluster the
// worst ratio (s_i + s_j) / d_ij against any other cluster is taken, where
// s is the mean distance of members to their centroid and d the centroid
// distance, and the ratios are averaged over non-empty clusters.
//
// Coincident centroids contribute a ratio of 0. A partition with fewer than
// two non-empty clusters scores +Inf.
func DaviesBouldin(points [][]float64, assign []int, k int) float64 {
	dim := len(points[0])
	centroids := make([][]float64, k)
	counts := make([]int, k)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
	}
	for i, p := range points {
		floats.Add(centroids[assign[i]], p)
		counts[assign[i]]++
	}

	var present []int
	for c := range centroids {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), centroids[c])
			present = append(present, c)
		}
	}
	if len(present) < 2 {
		return math.Inf(1)
	}

	scatter := make([]float64, k)
	for i, p := range points {
		scatter[assign[i]] += floats.Distance(p, centroids[assign[i]], 2)
	}
	for _, c := range present {
		scatter[c] /= float64(counts[c])
	}

	var sum float64
	for _, i := range present {
		worst := 0.0
		for _, j := range present {
			if i == j {
				continue
			}
			d := floats.Distance(centroids[i], centroids[j], 2)
			if d == 0 {
				continue
			}
			if r := (scatter[i] + scatter[j]) / d; r > worst {
				worst = r
			}
		}
		sum += worst
	}
	return sum / float64(len(present))
}
