package rundb

import "github.com/triumf-dragon/coincore/internal/dlog"

// Configuration keys the core reads, per the external interfaces design.
const (
	KeyCoincWindowUs  = "/dragon/coinc/variables/window"       // microseconds
	KeyCoincBufferS   = "/dragon/coinc/variables/buffer_time"  // seconds
	KeyHeadIO32       = "/dragon/head/bank_names/io32"
	KeyHeadADC        = "/dragon/head/bank_names/adc"
	KeyHeadTDC        = "/dragon/head/bank_names/tdc"
	KeyHeadTSC        = "/dragon/head/bank_names/tsc"
	KeyTailIO32       = "/dragon/tail/bank_names/io32"
	KeyTailADC0       = "/dragon/tail/bank_names/adc0"
	KeyTailADC1       = "/dragon/tail/bank_names/adc1"
	KeyTailTDC        = "/dragon/tail/bank_names/tdc"
	KeyTailTSC        = "/dragon/tail/bank_names/tsc"
	KeyHeadScaler     = "/dragon/head/bank_names/scaler"
	KeyTailScaler     = "/dragon/tail/bank_names/scaler"
)

// Defaults, per the external interfaces design's bank name table.
const (
	DefaultCoincWindowUs = 10.0
	DefaultCoincBufferS  = 4.0

	DefaultHeadIO32 = "VTRH"
	DefaultHeadTSC  = "TSCH"
	DefaultHeadADC  = "ADC0"
	DefaultHeadTDC  = "TDC0"

	DefaultTailIO32 = "VTRT"
	DefaultTailTSC  = "TSCT"
	DefaultTailADC0 = "TLQ0"
	DefaultTailADC1 = "TLQ1"
	DefaultTailTDC  = "TLT0"

	DefaultHeadScaler = "VSCH"
	DefaultTailScaler = "VSCT"
)

// HeadBankNames names the four banks the head stream is expected to carry.
type HeadBankNames struct {
	IO32, ADC, TDC, TSC string
}

// TailBankNames names the five banks the tail stream is expected to carry
// (two ADC modules digitize the tail's heavy-ion detector array).
type TailBankNames struct {
	IO32, ADC0, ADC1, TDC, TSC string
}

// LoadHeadBankNames reads overrides from db, falling back to defaults, and
// applies the bank-name resolver to every name (whether default or
// overridden) so a misconfigured override is caught the same way a bad
// default would be.
func LoadHeadBankNames(db Database, logger *dlog.Logger) HeadBankNames {
	return HeadBankNames{
		IO32: ResolveBankName(logger, stringOr(db, KeyHeadIO32, DefaultHeadIO32)),
		ADC:  ResolveBankName(logger, stringOr(db, KeyHeadADC, DefaultHeadADC)),
		TDC:  ResolveBankName(logger, stringOr(db, KeyHeadTDC, DefaultHeadTDC)),
		TSC:  ResolveBankName(logger, stringOr(db, KeyHeadTSC, DefaultHeadTSC)),
	}
}

// LoadTailBankNames is LoadHeadBankNames' tail-stream counterpart.
func LoadTailBankNames(db Database, logger *dlog.Logger) TailBankNames {
	return TailBankNames{
		IO32: ResolveBankName(logger, stringOr(db, KeyTailIO32, DefaultTailIO32)),
		ADC0: ResolveBankName(logger, stringOr(db, KeyTailADC0, DefaultTailADC0)),
		ADC1: ResolveBankName(logger, stringOr(db, KeyTailADC1, DefaultTailADC1)),
		TDC:  ResolveBankName(logger, stringOr(db, KeyTailTDC, DefaultTailTDC)),
		TSC:  ResolveBankName(logger, stringOr(db, KeyTailTSC, DefaultTailTSC)),
	}
}

// CoincidenceVariables holds the two runtime-settable values from
// /dragon/coinc/variables: the window (already in microseconds) and the
// buffer span, converted from the stored seconds value to the
// microseconds the coincidence queue operates in.
type CoincidenceVariables struct {
	WindowUs     float64
	BufferSpanUs float64
}

func LoadCoincidenceVariables(db Database) CoincidenceVariables {
	window, ok := ReadValue[float64](db, KeyCoincWindowUs)
	if !ok {
		window = DefaultCoincWindowUs
	}
	bufferS, ok := ReadValue[float64](db, KeyCoincBufferS)
	if !ok {
		bufferS = DefaultCoincBufferS
	}
	return CoincidenceVariables{WindowUs: window, BufferSpanUs: bufferS * 1e6}
}

// LoadScalerBankName resolves the single scaler bank name for one stream
// (head or tail); callers pass the matching key/default pair.
func LoadScalerBankName(db Database, logger *dlog.Logger, key, def string) string {
	return ResolveBankName(logger, stringOr(db, key, def))
}

func stringOr(db Database, path, def string) string {
	if v, ok := ReadValue[string](db, path); ok {
		return v
	}
	return def
}
