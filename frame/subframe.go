package frame

import (
	"github.com/karlek/flac/internal/bits"
	"github.com/pkg/errors"
)

// ErrNegativeLPCShift is returned when parsing a linear prediction subframe
// with a negative coefficient shift. Negative shifts indicate a bit stream
// extension which is not implemented; the frame is well formed but cannot be
// decoded.
var ErrNegativeLPCShift = errors.New("frame.Frame.parseSubframe: support for negative LPC coefficient shift not implemented")

// A Subframe contains the encoded audio samples from one channel of an audio
// block (a part of the audio stream).
//
// ref: https://www.xiph.org/flac/format.html#subframe
type Subframe struct {
	// Subframe header, specifying the prediction method and order of the
	// subframe.
	SubHeader
	// Unencoded audio samples. Samples is initially nil, and gets populated by
	// the parse of the frame containing the subframe.
	Samples []int32
	// Number of audio samples in the subframe.
	NSamples int
	// Residual coding method used by the subframe.
	ResidualCodingMethod ResidualCodingMethod
	// Rice partitions of the residuals; nil for constant and verbatim
	// subframes.
	RiceSubframe *RiceSubframe
}

// A SubHeader specifies the prediction method and order of a subframe.
//
// ref: https://www.xiph.org/flac/format.html#subframe_header
type SubHeader struct {
	// Specifies the prediction method used to encode the audio samples of the
	// subframe.
	Pred Pred
	// Prediction order used by fixed and FIR linear prediction decoding.
	Order int
	// Wasted bits-per-sample count; samples are stored right-shifted by this
	// many bits and shifted back up after decoding.
	Wasted uint
}

// Pred specifies the prediction method used to encode the audio samples of a
// subframe.
type Pred uint8

// Prediction methods.
const (
	// PredConstant specifies that the subframe contains a constant sound. The
	// audio samples are encoded using run-length encoding.
	PredConstant Pred = iota
	// PredVerbatim specifies that the subframe contains unencoded audio
	// samples.
	PredVerbatim
	// PredFixed specifies that the subframe encodes residuals of a fixed
	// polynomial prediction, using a predefined set of coefficients selected by
	// the prediction order.
	PredFixed
	// PredFIR specifies that the subframe encodes residuals of a custom FIR
	// linear prediction, using quantized coefficients stored within the
	// subframe.
	PredFIR
)

// ResidualCodingMethod specifies the residual coding method used by a
// subframe.
type ResidualCodingMethod uint8

// Residual coding methods.
const (
	// Rice coding with a 4-bit Rice parameter.
	ResidualCodingMethodRice1 ResidualCodingMethod = 0
	// Rice coding with a 5-bit Rice parameter.
	ResidualCodingMethodRice2 ResidualCodingMethod = 1
)

// A RiceSubframe holds the partitioned Rice coding parameters of a subframe.
//
// ref: https://www.xiph.org/flac/format.html#partitioned_rice
type RiceSubframe struct {
	// Partition order; the residuals of the subframe are split into 2^order
	// partitions of equal length, except the first partition, which is
	// shortened by the prediction order.
	PartOrder int
	// Rice partitions, one per partition.
	Partitions []RicePartition
}

// A RicePartition holds the Rice parameter or escape sample size of one
// partition of residuals.
type RicePartition struct {
	// Rice parameter. The all-ones bit pattern of the parameter field width is
	// a sentinel marking an escaped partition.
	Param uint
	// Escaped residual sample size in bits-per-sample; valid if Param holds the
	// escape sentinel.
	EscapedBitsPerSample uint
}

// FixedCoeffs maps from prediction order to the predefined set of coefficients
// used by fixed prediction.
var FixedCoeffs = [...][]int32{
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// parseSubframe reads and parses the header and encoded audio samples of a
// subframe, decoding bps bits-per-sample audio samples.
//
// ref: https://www.xiph.org/flac/format.html#subframe
func (frame *Frame) parseSubframe(br *bits.Reader, bps uint) (subframe *Subframe, err error) {
	// Parse subframe header.
	subframe = &Subframe{NSamples: int(frame.BlockSize)}
	if err := subframe.parseHeader(br); err != nil {
		return subframe, err
	}
	if subframe.Order > subframe.NSamples {
		return subframe, errors.Errorf("frame.Frame.parseSubframe: prediction order (%d) exceeds block size (%d samples)", subframe.Order, subframe.NSamples)
	}

	// Audio samples of subframes with wasted bits are stored at a reduced
	// sample size, and shifted back up after decoding.
	if subframe.Wasted >= bps {
		return subframe, errors.Errorf("frame.Frame.parseSubframe: wasted bits-per-sample (%d) exceeds sample size (%d)", subframe.Wasted, bps)
	}
	bps -= subframe.Wasted

	// Decode audio samples.
	subframe.Samples = make([]int32, subframe.NSamples)
	switch subframe.Pred {
	case PredConstant:
		err = subframe.decodeConstant(br, bps)
	case PredVerbatim:
		err = subframe.decodeVerbatim(br, bps)
	case PredFixed:
		err = subframe.decodeFixed(br, bps)
	case PredFIR:
		err = subframe.decodeFIR(br, bps)
	}
	if err != nil {
		return subframe, err
	}

	if subframe.Wasted > 0 {
		for i := range subframe.Samples {
			subframe.Samples[i] <<= subframe.Wasted
		}
	}
	return subframe, nil
}

// parseHeader reads and parses the header of a subframe.
//
// Subframe header format (pseudo code):
//
//	type SUBFRAME_HEADER struct {
//	   _           uint1   // zero padding, to prevent sync-fooling.
//	   type        uint6
//	   // 0: no wasted bits-per-sample in source subblock.
//	   // 1: k wasted bits-per-sample in source subblock, k follows unary
//	   //    coded.
//	   has_wasted_bits uint1
//	}
//
// ref: https://www.xiph.org/flac/format.html#subframe_header
func (subHdr *SubHeader) parseHeader(br *bits.Reader) error {
	// 1 bit: zero padding.
	x, err := br.Read(1)
	if err != nil {
		return unexpected(err)
	}
	if x != 0 {
		return errors.New("frame.SubHeader.parseHeader: non-zero padding bit")
	}

	// 6 bits: subframe type.
	//    000000: constant.
	//    000001: verbatim.
	//    001xxx: fixed prediction; xxx = order, orders above 4 are reserved.
	//    1xxxxx: FIR linear prediction; xxxxx = order-1.
	//    other:  reserved.
	x, err = br.Read(6)
	if err != nil {
		return unexpected(err)
	}
	switch {
	case x == 0x00:
		subHdr.Pred = PredConstant
	case x == 0x01:
		subHdr.Pred = PredVerbatim
	case x&0x38 == 0x08:
		order := int(x & 0x07)
		if order > 4 {
			return errors.Errorf("frame.SubHeader.parseHeader: reserved fixed prediction order (%d)", order)
		}
		subHdr.Pred = PredFixed
		subHdr.Order = order
	case x&0x20 != 0:
		subHdr.Pred = PredFIR
		subHdr.Order = int(x&0x1F) + 1
	default:
		return errors.Errorf("frame.SubHeader.parseHeader: reserved subframe type bit pattern (%06b)", x)
	}

	// 1 bit: has wasted bits-per-sample.
	x, err = br.Read(1)
	if err != nil {
		return unexpected(err)
	}
	if x != 0 {
		// The wasted bits-per-sample count follows, unary coded.
		wasted, err := br.ReadUnary()
		if err != nil {
			return unexpected(err)
		}
		subHdr.Wasted = uint(wasted)
	}

	return nil
}

// decodeConstant reads an unencoded audio sample of the subframe, broadcasting
// it to each sample of the subblock.
//
// ref: https://www.xiph.org/flac/format.html#subframe_constant
func (subframe *Subframe) decodeConstant(br *bits.Reader, bps uint) error {
	x, err := br.Read(bps)
	if err != nil {
		return unexpected(err)
	}
	sample := int32(bits.IntN(x, bps))
	for i := range subframe.Samples {
		subframe.Samples[i] = sample
	}
	return nil
}

// decodeVerbatim reads the unencoded audio samples of the subframe.
//
// ref: https://www.xiph.org/flac/format.html#subframe_verbatim
func (subframe *Subframe) decodeVerbatim(br *bits.Reader, bps uint) error {
	for i := range subframe.Samples {
		x, err := br.Read(bps)
		if err != nil {
			return unexpected(err)
		}
		subframe.Samples[i] = int32(bits.IntN(x, bps))
	}
	return nil
}

// decodeFixed decodes the fixed prediction subframe; unencoded warm-up
// samples, followed by residuals transformed in place by the polynomial
// recurrence of the prediction order.
//
// ref: https://www.xiph.org/flac/format.html#subframe_fixed
func (subframe *Subframe) decodeFixed(br *bits.Reader, bps uint) error {
	// Parse unencoded warm-up samples.
	for i := 0; i < subframe.Order; i++ {
		x, err := br.Read(bps)
		if err != nil {
			return unexpected(err)
		}
		subframe.Samples[i] = int32(bits.IntN(x, bps))
	}

	// Decode residuals into the remaining sample slots.
	if err := subframe.decodeResiduals(br); err != nil {
		return err
	}

	fixedPredict(subframe.Samples, subframe.Order)
	return nil
}

// fixedPredict transforms the residuals stored after the warm-up samples in
// place, using the polynomial recurrence of the given prediction order. The
// arithmetic is 32-bit with silent wraparound, matching the integer model of
// the encoder.
func fixedPredict(samples []int32, order int) {
	switch order {
	case 0:
		// The residual is the audio sample.
	case 1:
		for i := 1; i < len(samples); i++ {
			samples[i] += samples[i-1]
		}
	case 2:
		for i := 2; i < len(samples); i++ {
			samples[i] += 2*samples[i-1] - samples[i-2]
		}
	case 3:
		for i := 3; i < len(samples); i++ {
			samples[i] += 3*samples[i-1] - 3*samples[i-2] + samples[i-3]
		}
	case 4:
		for i := 4; i < len(samples); i++ {
			samples[i] += 4*samples[i-1] - 6*samples[i-2] + 4*samples[i-3] - samples[i-4]
		}
	}
}

// decodeFIR decodes the FIR linear prediction subframe; unencoded warm-up
// samples, quantized coefficients and residuals reconstructed by linear
// prediction.
//
// ref: https://www.xiph.org/flac/format.html#subframe_lpc
func (subframe *Subframe) decodeFIR(br *bits.Reader, bps uint) error {
	// Parse unencoded warm-up samples.
	for i := 0; i < subframe.Order; i++ {
		x, err := br.Read(bps)
		if err != nil {
			return unexpected(err)
		}
		subframe.Samples[i] = int32(bits.IntN(x, bps))
	}

	// 4 bits: (coefficient precision in bits) - 1.
	x, err := br.Read(4)
	if err != nil {
		return unexpected(err)
	}
	if x == 0xF {
		return errors.New("frame.Subframe.decodeFIR: reserved coefficient precision bit pattern")
	}
	prec := uint(x) + 1

	// 5 bits: coefficient shift, signed.
	x, err = br.Read(5)
	if err != nil {
		return unexpected(err)
	}
	shift := bits.IntN(x, 5)
	if shift < 0 {
		return ErrNegativeLPCShift
	}

	// The quantized coefficients are stored in reverse; the coefficient of the
	// most recent sample comes first in the bit stream and occupies the last
	// slot of a fixed 32 coefficient window, zero padded for lower orders.
	var coeffs [32]int32
	for i := 0; i < subframe.Order; i++ {
		x, err := br.Read(prec)
		if err != nil {
			return unexpected(err)
		}
		coeffs[31-i] = int32(bits.IntN(x, prec))
	}

	// Decode residuals into the remaining sample slots.
	if err := subframe.decodeResiduals(br); err != nil {
		return err
	}

	lpcPredict(subframe.Samples, subframe.Order, coeffs, uint(shift))
	return nil
}

// lpcPredict reconstructs the audio samples following the warm-up samples in
// place, adding the shifted linear prediction of prior samples to the residual
// stored at each position. The prediction accumulates in 64 bits to avoid
// overflow across up to 32 products of 32-bit magnitude; the shifted sum is
// truncated to 32 bits with wraparound.
func lpcPredict(samples []int32, order int, coeffs [32]int32, shift uint) {
	// Until 32 prior samples exist, only the taps of the prediction order may
	// be read; the zero padded slots of the coefficient window would align with
	// positions before the start of the sample slice.
	for i := order; i < len(samples) && i < 32; i++ {
		var sum int64
		for j := 0; j < order; j++ {
			sum += int64(coeffs[31-j]) * int64(samples[i-1-j])
		}
		samples[i] += int32(sum >> shift)
	}
	// Steady state; the full 32 tap window aligns with the 32 most recent
	// samples.
	for i := 32; i < len(samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(samples[i-32+j])
		}
		samples[i] += int32(sum >> shift)
	}
}

// decodeResiduals decodes the partitioned residuals of the subframe into the
// sample slots following the warm-up samples.
//
// ref: https://www.xiph.org/flac/format.html#residual
func (subframe *Subframe) decodeResiduals(br *bits.Reader) error {
	// 2 bits: residual coding method.
	//    00: Rice coding with a 4-bit Rice parameter.
	//    01: Rice coding with a 5-bit Rice parameter.
	//    10-11: reserved.
	x, err := br.Read(2)
	if err != nil {
		return unexpected(err)
	}
	switch x {
	case 0x0:
		subframe.ResidualCodingMethod = ResidualCodingMethodRice1
		return subframe.decodeRicePart(br, 4)
	case 0x1:
		subframe.ResidualCodingMethod = ResidualCodingMethodRice2
		return subframe.decodeRicePart(br, 5)
	}
	return errors.Errorf("frame.Subframe.decodeResiduals: reserved residual coding method bit pattern (%02b)", x)
}

// decodeRicePart decodes the Rice partitions of the subframe residuals, using
// a Rice parameter of the given field width in bits.
//
// ref: https://www.xiph.org/flac/format.html#partitioned_rice
// ref: https://www.xiph.org/flac/format.html#partitioned_rice2
func (subframe *Subframe) decodeRicePart(br *bits.Reader, paramSize uint) error {
	// 4 bits: partition order; the residuals are split into 2^order partitions.
	x, err := br.Read(4)
	if err != nil {
		return unexpected(err)
	}
	partOrder := int(x)
	nparts := 1 << uint(partOrder)
	nPartSamples := subframe.NSamples >> uint(partOrder)
	// The first partition is shortened by the warm-up sample count, and the
	// partitions together must cover the subframe exactly.
	if nPartSamples < subframe.Order {
		return errors.Errorf("frame.Subframe.decodeRicePart: partition sample count (%d) is less than the prediction order (%d)", nPartSamples, subframe.Order)
	}
	if nparts*nPartSamples != subframe.NSamples {
		return errors.Errorf("frame.Subframe.decodeRicePart: partition sample count (%d) does not divide the block (%d samples) evenly", nPartSamples, subframe.NSamples)
	}
	riceSubframe := &RiceSubframe{
		PartOrder:  partOrder,
		Partitions: make([]RicePartition, nparts),
	}
	subframe.RiceSubframe = riceSubframe

	i := subframe.Order
	for part := range riceSubframe.Partitions {
		partition := &riceSubframe.Partitions[part]
		// (4 or 5) bits: Rice parameter.
		x, err := br.Read(paramSize)
		if err != nil {
			return unexpected(err)
		}
		param := uint(x)
		partition.Param = param

		nsamples := nPartSamples
		if part == 0 {
			nsamples -= subframe.Order
		}

		if paramSize == 4 && param == 0xF || paramSize == 5 && param == 0x1F {
			// The all-ones parameter marks an escaped partition; the residuals
			// are stored unencoded at an explicit sample size.
			//
			// 5 bits: escaped residual sample size in bits-per-sample.
			x, err := br.Read(5)
			if err != nil {
				return unexpected(err)
			}
			width := uint(x)
			partition.EscapedBitsPerSample = width
			for j := 0; j < nsamples; j++ {
				x, err := br.Read(width)
				if err != nil {
					return unexpected(err)
				}
				subframe.Samples[i] = int32(bits.IntN(x, width))
				i++
			}
			continue
		}

		// Rice decode the residuals of the partition.
		for j := 0; j < nsamples; j++ {
			// Unary coded quotient, followed by param bits of remainder.
			q, err := br.ReadUnary()
			if err != nil {
				return unexpected(err)
			}
			r, err := br.Read(param)
			if err != nil {
				return unexpected(err)
			}
			folded := uint32(q<<param | r)
			subframe.Samples[i] = bits.DecodeZigZag(folded)
			i++
		}
	}

	return nil
}
