// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package llmprovider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/corerouter/pkg/types"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func getEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoding, encodingErr
}

// EstimateTokens returns a BPE token count for messages. Providers call
// this before sending a request so the caller can log/attribute estimated
// prompt size even for backends (like Ollama) whose response does not
// break prompt tokens out from completion tokens.
func EstimateTokens(messages []types.Message) int {
	enc, err := getEncoding()
	if err != nil {
		return 0
	}
	total := 0
	for _, m := range messages {
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total
}
