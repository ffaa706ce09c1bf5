package flac

import (
	"github.com/icza/bitio"
	"github.com/karlek/flac/frame"
	iobits "github.com/karlek/flac/internal/bits"
	"github.com/mewkiz/pkg/errutil"
)

// encodeSubframe encodes the given subframe, writing to bw.
func encodeSubframe(bw *bitio.Writer, hdr *frame.Header, subframe *frame.Subframe) error {
	if err := encodeSubframeHeader(bw, subframe.SubHeader); err != nil {
		return errutil.Err(err)
	}
	switch subframe.Pred {
	case frame.PredConstant:
		return encodeConstantSamples(bw, hdr, subframe)
	case frame.PredVerbatim:
		return encodeVerbatimSamples(bw, hdr, subframe)
	case frame.PredFixed:
		return encodeFixedSamples(bw, hdr, subframe)
	default:
		// TODO: implement LPC analysis so that PredFIR subframes are produced.
		return errutil.Newf("support for prediction method %v not yet implemented", subframe.Pred)
	}
}

// encodeSubframeHeader encodes the given subframe header, writing to bw.
func encodeSubframeHeader(bw *bitio.Writer, subHdr frame.SubHeader) error {
	// 1 bit: zero padding, to prevent sync-fooling strings of 1s.
	if err := bw.WriteBits(0x0, 1); err != nil {
		return errutil.Err(err)
	}

	// 6 bits: subframe type.
	var bits uint64
	switch subHdr.Pred {
	case frame.PredConstant:
		bits = 0x00
	case frame.PredVerbatim:
		bits = 0x01
	case frame.PredFixed:
		bits = 0x08 | uint64(subHdr.Order)
	case frame.PredFIR:
		bits = 0x20 | uint64(subHdr.Order-1)
	}
	if err := bw.WriteBits(bits, 6); err != nil {
		return errutil.Err(err)
	}

	// 1 bit: wasted bits-per-sample flag, followed by the unary coded wasted
	// bits-per-sample count if the flag is set.
	hasWastedBits := subHdr.Wasted > 0
	if err := bw.WriteBool(hasWastedBits); err != nil {
		return errutil.Err(err)
	}
	if hasWastedBits {
		if err := iobits.WriteUnary(bw, uint64(subHdr.Wasted)); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// encodeConstantSamples stores the constant sample of the given subframe,
// writing to bw.
func encodeConstantSamples(bw *bitio.Writer, hdr *frame.Header, subframe *frame.Subframe) error {
	samples := subframe.Samples
	sample := samples[0]
	for _, s := range samples[1:] {
		if s != sample {
			return errutil.Newf("constant sample mismatch; expected %v, got %v", sample, s)
		}
	}
	// Unencoded constant value of the subblock, n = frame's bits-per-sample.
	if err := bw.WriteBits(uint64(sample), hdr.BitsPerSample); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// encodeVerbatimSamples stores the samples of the given subframe verbatim,
// writing to bw.
func encodeVerbatimSamples(bw *bitio.Writer, hdr *frame.Header, subframe *frame.Subframe) error {
	samples := subframe.Samples
	if len(samples) != int(hdr.BlockSize) {
		return errutil.Newf("block size and sample count mismatch; expected %d, got %d", hdr.BlockSize, len(samples))
	}
	// Unencoded subblock; n = frame's bits-per-sample, i = frame's block size.
	for _, sample := range samples {
		if err := bw.WriteBits(uint64(sample), hdr.BitsPerSample); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// encodeFixedSamples stores the samples of the given subframe using a fixed
// polynomial predictor, writing to bw.
func encodeFixedSamples(bw *bitio.Writer, hdr *frame.Header, subframe *frame.Subframe) error {
	// Unencoded warm-up samples, one per predictor order.
	samples := subframe.Samples
	for i := 0; i < subframe.Order; i++ {
		if err := bw.WriteBits(uint64(samples[i]), hdr.BitsPerSample); err != nil {
			return errutil.Err(err)
		}
	}
	// Compute and encode the residuals of the fixed predictor.
	residuals := fixedResiduals(samples, subframe.Order)
	if err := encodeResiduals(bw, subframe, residuals); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// encodeResiduals encodes the residuals (prediction error signal) of the given
// subframe, writing to bw.
func encodeResiduals(bw *bitio.Writer, subframe *frame.Subframe, residuals []int32) error {
	// 2 bits: residual coding method.
	if err := bw.WriteBits(uint64(subframe.ResidualCodingMethod), 2); err != nil {
		return errutil.Err(err)
	}
	switch subframe.ResidualCodingMethod {
	case frame.ResidualCodingMethodRice1:
		return encodeRicePart(bw, subframe, 4, residuals)
	case frame.ResidualCodingMethodRice2:
		return encodeRicePart(bw, subframe, 5, residuals)
	default:
		return errutil.Newf("reserved residual coding method bit pattern (%02b)", uint8(subframe.ResidualCodingMethod))
	}
}

// encodeRicePart encodes the Rice partitions of residuals of the given
// subframe, using a Rice parameter of the specified size in bits, writing to
// bw.
func encodeRicePart(bw *bitio.Writer, subframe *frame.Subframe, paramSize uint8, residuals []int32) error {
	// 4 bits: partition order.
	riceSubframe := subframe.RiceSubframe
	partOrder := riceSubframe.PartOrder
	if err := bw.WriteBits(uint64(partOrder), 4); err != nil {
		return errutil.Err(err)
	}

	// Encode 2^partOrder partitions, each preceded by its Rice parameter. The
	// residuals of the warm-up samples are not encoded, which shortens the
	// first partition by the prediction order.
	escapeParam := uint(1)<<paramSize - 1
	nparts := 1 << uint(partOrder)
	cur := 0
	for i := range riceSubframe.Partitions {
		partition := &riceSubframe.Partitions[i]
		if err := bw.WriteBits(uint64(partition.Param), paramSize); err != nil {
			return errutil.Err(err)
		}
		nsamples := subframe.NSamples / nparts
		if i == 0 {
			nsamples -= subframe.Order
		}
		if partition.Param == escapeParam {
			// 5 bits: escaped residual sample size, followed by that many bits
			// per unencoded residual.
			width := partition.EscapedBitsPerSample
			if err := bw.WriteBits(uint64(width), 5); err != nil {
				return errutil.Err(err)
			}
			for j := 0; j < nsamples; j++ {
				if err := bw.WriteBits(uint64(residuals[cur]), uint8(width)); err != nil {
					return errutil.Err(err)
				}
				cur++
			}
			continue
		}
		for j := 0; j < nsamples; j++ {
			if err := encodeRiceResidual(bw, partition.Param, residuals[cur]); err != nil {
				return errutil.Err(err)
			}
			cur++
		}
	}
	return nil
}

// encodeRiceResidual encodes a single Rice coded residual, writing to bw.
func encodeRiceResidual(bw *bitio.Writer, k uint, residual int32) error {
	folded := iobits.EncodeZigZag(residual)

	// Split the folded residual into a unary coded quotient and a k-bit
	// remainder.
	high := folded >> k
	low := folded & (^uint32(0) >> (32 - k))
	if err := iobits.WriteUnary(bw, uint64(high)); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(uint64(low), uint8(k)); err != nil {
		return errutil.Err(err)
	}
	return nil
}
