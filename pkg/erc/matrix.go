package erc

import "github.com/OpenTraceLab/trace-eurorack/pkg/circuit"

// level is the outcome of connecting two pin types together.
type level uint8

const (
	ok level = iota
	warn
	fail
)

// matrixOrder is the row/column order of conflictMatrix.
var matrixOrder = []circuit.PinType{
	circuit.PinInput,
	circuit.PinOutput,
	circuit.PinBidirectional,
	circuit.PinTriState,
	circuit.PinPassive,
	circuit.PinFree,
	circuit.PinUnspecified,
	circuit.PinPowerIn,
	circuit.PinPowerOut,
	circuit.PinOpenCollector,
	circuit.PinOpenEmitter,
	circuit.PinNoConnect,
}

// conflictMatrix mirrors KiCad's default pin conflict map. It is symmetric.
var conflictMatrix = [12][12]level{
	//        I     O     Bi    3S    Pas   Free  Uns   PwrI  PwrO  OC    OE    NC
	/* I  */ {ok, ok, ok, ok, ok, ok, warn, ok, ok, ok, ok, fail},
	/* O  */ {ok, fail, ok, warn, ok, ok, warn, ok, fail, fail, fail, fail},
	/* Bi */ {ok, ok, ok, ok, ok, ok, warn, ok, warn, ok, warn, fail},
	/* 3S */ {ok, warn, ok, ok, ok, ok, warn, warn, fail, warn, warn, fail},
	/* Pas*/ {ok, ok, ok, ok, ok, ok, warn, ok, ok, ok, ok, fail},
	/* Fr */ {ok, ok, ok, ok, ok, ok, ok, ok, ok, ok, ok, fail},
	/* Uns*/ {warn, warn, warn, warn, warn, ok, warn, warn, warn, warn, warn, fail},
	/* PwI*/ {ok, ok, ok, warn, ok, ok, warn, ok, ok, ok, ok, fail},
	/* PwO*/ {ok, fail, warn, fail, ok, ok, warn, ok, fail, fail, fail, fail},
	/* OC */ {ok, fail, ok, warn, ok, ok, warn, ok, fail, ok, ok, fail},
	/* OE */ {ok, fail, warn, warn, ok, ok, warn, ok, fail, ok, ok, fail},
	/* NC */ {fail, fail, fail, fail, fail, fail, fail, fail, fail, fail, fail, fail},
}

var matrixIndex = func() map[circuit.PinType]int {
	m := make(map[circuit.PinType]int, len(matrixOrder))
	for i, t := range matrixOrder {
		m[t] = i
	}
	return m
}()

// conflict returns the outcome of connecting pin types a and b.
func conflict(a, b circuit.PinType) level {
	i, iok := matrixIndex[a]
	j, jok := matrixIndex[b]
	if !iok || !jok {
		return warn
	}
	return conflictMatrix[i][j]
}
