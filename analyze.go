package flac

import (
	"math"

	"github.com/karlek/flac/frame"
	iobits "github.com/karlek/flac/internal/bits"
)

// analyzeSubframe selects the prediction method of the given subframe which
// yields the fewest estimated bits, considering constant, verbatim and fixed
// polynomial prediction with a single Rice partition.
func analyzeSubframe(subframe *frame.Subframe, bps uint) {
	samples := subframe.Samples
	if len(samples) == 0 {
		return
	}

	// A subframe of identical samples is stored as a single sample.
	if isConstant(samples) {
		subframe.Pred = frame.PredConstant
		return
	}

	// Verbatim cost, used as the baseline.
	bestCost := len(samples) * int(bps)
	subframe.Pred = frame.PredVerbatim

	// Try each fixed predictor order. Warm-up samples are stored unencoded, so
	// higher orders pay for their warm-up in full.
	for order := 0; order <= 4 && order < len(samples); order++ {
		residuals := fixedResiduals(samples, order)
		param, cost := bestRiceParam(residuals)
		cost += order * int(bps)
		if cost < bestCost {
			bestCost = cost
			subframe.Pred = frame.PredFixed
			subframe.Order = order
			subframe.ResidualCodingMethod = frame.ResidualCodingMethodRice1
			subframe.RiceSubframe = &frame.RiceSubframe{
				PartOrder:  0,
				Partitions: []frame.RicePartition{{Param: param}},
			}
		}
	}
}

// isConstant reports whether all given samples hold the same value.
func isConstant(samples []int32) bool {
	for _, sample := range samples[1:] {
		if sample != samples[0] {
			return false
		}
	}
	return true
}

// fixedResiduals returns the residuals of the fixed polynomial predictor with
// the given order. The returned slice has length len(samples)-order.
func fixedResiduals(samples []int32, order int) []int32 {
	residuals := make([]int32, 0, len(samples)-order)
	switch order {
	case 0:
		residuals = append(residuals, samples...)
	case 1:
		for i := 1; i < len(samples); i++ {
			residuals = append(residuals, samples[i]-samples[i-1])
		}
	case 2:
		for i := 2; i < len(samples); i++ {
			predicted := 2*samples[i-1] - samples[i-2]
			residuals = append(residuals, samples[i]-predicted)
		}
	case 3:
		for i := 3; i < len(samples); i++ {
			predicted := 3*samples[i-1] - 3*samples[i-2] + samples[i-3]
			residuals = append(residuals, samples[i]-predicted)
		}
	case 4:
		for i := 4; i < len(samples); i++ {
			predicted := 4*samples[i-1] - 6*samples[i-2] + 4*samples[i-3] - samples[i-4]
			residuals = append(residuals, samples[i]-predicted)
		}
	}
	return residuals
}

// bestRiceParam returns the Rice parameter in the range [0, 14] which encodes
// the given residuals in the fewest bits, and the resulting bit count.
func bestRiceParam(residuals []int32) (param uint, cost int) {
	cost = math.MaxInt
	for k := uint(0); k < 15; k++ {
		bits := 0
		for _, residual := range residuals {
			folded := iobits.EncodeZigZag(residual)
			// Unary coded quotient with stop bit, plus k remainder bits.
			bits += int(folded>>k) + 1 + int(k)
		}
		if bits < cost {
			cost = bits
			param = k
		}
	}
	return param, cost
}
