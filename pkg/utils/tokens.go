package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
})

// CountTokens estimates how many tokens text occupies in a model prompt.
// Falls back to a rough bytes/4 estimate if the encoding cannot be loaded.
func CountTokens(text string) int {
	tkm, err := encoding()
	if err != nil {
		return len(text) / 4
	}
	return len(tkm.Encode(text, nil, nil))
}
