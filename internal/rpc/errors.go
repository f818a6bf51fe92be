package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ChainIngestor/internal/common"
)

var (
	tooManyResultsRe = regexp.MustCompile(`(?i)(query returned more than \d+ results|log response size exceeded|block range is too (wide|large))`)
	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// tooManyResults reports whether a provider refused eth_getLogs because the
// range is too large. It returns the text to look for a suggested range in.
func tooManyResults(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	text := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		text = fmt.Sprintf("%s %v", text, dataErr.ErrorData())
	}

	return text, tooManyResultsRe.MatchString(text)
}

// suggestedRange extracts the "[0xfrom, 0xto]" range some providers attach to a
// too-many-results error.
func suggestedRange(text string) (from, to uint64, ok bool) {
	m := suggestedRangeRe.FindStringSubmatch(text)
	if len(m) != 3 {
		return 0, 0, false
	}

	from, err1 := common.ParseUint64orHex(&m[1])
	to, err2 := common.ParseUint64orHex(&m[2])
	if err1 != nil || err2 != nil || to < from {
		return 0, 0, false
	}

	return from, to, true
}

// shrinkRange picks a smaller end for [from, to] after a too-many-results error.
// It returns false when the range is a single block and cannot shrink.
func shrinkRange(text string, from, to uint64) (uint64, bool) {
	if from >= to {
		return 0, false
	}

	if _, end, ok := suggestedRange(text); ok && end >= from && end < to {
		return end, true
	}

	return from + (to-from)/2, true
}
